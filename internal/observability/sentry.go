package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// sensitiveHeaders carry session tokens and must never reach Sentry.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}

func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for _, name := range sensitiveHeaders {
		delete(event.Request.Headers, name)
	}
	event.Request.Cookies = ""
	event.Request.Data = ""
	return event
}

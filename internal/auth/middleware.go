package auth

import (
	"context"
	"net/http"
	"strings"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/apperr"
	"videotube-accounts/internal/response"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (account.Profile, error)
}

// AuthenticatedHandler receives the identity resolved by Middleware.
type AuthenticatedHandler func(w http.ResponseWriter, r *http.Request, user account.Profile)

// Middleware admits requests carrying a valid access token, read from the
// accessToken cookie or an Authorization: Bearer header.
func Middleware(authenticator Authenticator, next AuthenticatedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFrom(r)
		if token == "" {
			gateRejections.WithLabelValues("missing").Inc()
			response.Error(w, apperr.Unauthorized("access token is missing"))
			return
		}

		user, err := authenticator.Authenticate(r.Context(), token)
		if err != nil {
			gateRejections.WithLabelValues(apperr.KindOf(err).String()).Inc()
			response.Error(w, err)
			return
		}

		next(w, r, user)
	})
}

func accessTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(AccessCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

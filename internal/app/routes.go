package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"videotube-accounts/internal/auth"
	"videotube-accounts/internal/maintenance"
	"videotube-accounts/internal/observability"
	"videotube-accounts/internal/profile"
	"videotube-accounts/internal/response"
)

const usersPrefix = "/api/v1/users"

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the constructed services the HTTP surface is built from.
type Deps struct {
	Auth          *auth.Service
	Profile       *profile.Service
	Cleanup       *maintenance.CleanupHandler
	LoginLimiter  *auth.LoginRateLimiter
	Database      Pinger
	Logger        *observability.Logger
	SecureCookies bool
	CORSOrigins   []string
}

func Routes(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	authHandler := auth.NewHandler(deps.Auth, deps.SecureCookies)
	profileHandler := profile.NewHandler(deps.Profile)
	gate := func(next auth.AuthenticatedHandler) http.Handler {
		return auth.Middleware(deps.Auth, next)
	}

	login := http.Handler(http.HandlerFunc(authHandler.Login))
	if deps.LoginLimiter != nil {
		login = deps.LoginLimiter.Middleware(login)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+usersPrefix+"/register", profileHandler.Register)
	mux.Handle("POST "+usersPrefix+"/login", login)
	mux.HandleFunc("POST "+usersPrefix+"/refresh-token", authHandler.Refresh)
	mux.Handle("POST "+usersPrefix+"/logout", gate(authHandler.Logout))
	mux.Handle("GET "+usersPrefix+"/me", gate(authHandler.Me))
	mux.Handle("POST "+usersPrefix+"/change-password", gate(authHandler.ChangePassword))
	mux.Handle("POST "+usersPrefix+"/update-details", gate(profileHandler.UpdateDetails))
	mux.Handle("POST "+usersPrefix+"/update-avatar", gate(profileHandler.UpdateAvatar))
	mux.Handle("POST "+usersPrefix+"/update-cover-image", gate(profileHandler.UpdateCoverImage))
	mux.Handle("GET "+usersPrefix+"/c/{username}", gate(profileHandler.Channel))
	mux.Handle("GET "+usersPrefix+"/history", gate(profileHandler.History))

	if deps.Cleanup != nil {
		mux.HandleFunc("GET /internal/maintenance/cleanup", deps.Cleanup.Handle)
		mux.HandleFunc("POST /internal/maintenance/cleanup", deps.Cleanup.Handle)
	}
	mux.HandleFunc("GET /health", healthHandler(deps.Database))
	mux.Handle("GET /metrics", observability.MetricsHandler())

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	withCORS := cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, withCORS(mux)))
}

type healthStatus struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := healthStatus{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)}

		if database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := database.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body.Status = "degraded"
			}
		}

		response.Success(w, status, body.Status, body)
	}
}

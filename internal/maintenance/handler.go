package maintenance

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"videotube-accounts/internal/apperr"
	"videotube-accounts/internal/observability"
	"videotube-accounts/internal/response"
)

// RefreshTokenSweeper clears refresh tokens whose expiry has passed.
type RefreshTokenSweeper interface {
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time, batchSize int) (int64, error)
}

type CleanupResult struct {
	ClearedRefreshTokens int64 `json:"clearedRefreshTokens"`
}

type CleanupHandler struct {
	sweeper    RefreshTokenSweeper
	logger     *observability.Logger
	cronSecret string
	batchSize  int
	now        func() time.Time
}

func NewCleanupHandler(sweeper RefreshTokenSweeper, logger *observability.Logger, cronSecret string, batchSize int) *CleanupHandler {
	if logger == nil {
		logger = observability.Nop()
	}
	return &CleanupHandler{
		sweeper:    sweeper,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle runs one sweep. It is hidden unless a cron secret is configured and
// requires that secret as a bearer token.
func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		response.Error(w, apperr.NotFound("not found"))
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(h.cronSecret)) != 1 {
		response.Error(w, apperr.Unauthorized("unauthorized"))
		return
	}

	cleared, err := h.sweeper.ClearExpiredRefreshTokens(r.Context(), h.now(), h.batchSize)
	if err != nil {
		h.logger.Error("auth_cleanup_failed", map[string]any{"error": err.Error()})
		response.Error(w, apperr.Internal("cleanup expired refresh tokens", err))
		return
	}

	h.logger.Info("auth_cleanup_completed", map[string]any{"cleared_refresh_tokens": cleared})
	response.Success(w, http.StatusOK, "cleanup completed", CleanupResult{ClearedRefreshTokens: cleared})
}

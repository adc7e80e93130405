package maintenance

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"portfolio-api/internal/observability"
	"portfolio-api/internal/web"
)

// MessagePurger removes read contact messages older than a cutoff.
type MessagePurger interface {
	PurgeRead(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type CleanupResult struct {
	DeletedMessages int64     `json:"deleted_messages"`
	Cutoff          time.Time `json:"cutoff"`
}

// CleanupHandler is called by the platform scheduler with the cron secret as a bearer token.
type CleanupHandler struct {
	purger     MessagePurger
	logger     *observability.Logger
	cronSecret string
	retention  time.Duration
	batchSize  int
	now        func() time.Time
}

func NewCleanupHandler(
	purger MessagePurger,
	logger *observability.Logger,
	cronSecret string,
	retention time.Duration,
	batchSize int,
) *CleanupHandler {
	return &CleanupHandler{
		purger:     purger,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		retention:  retention,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Without a secret the endpoint does not exist.
	if h.cronSecret == "" {
		web.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		web.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cutoff := h.now().UTC().Add(-h.retention)
	deleted, err := h.purger.PurgeRead(r.Context(), cutoff, h.batchSize)
	if err != nil {
		h.logger.Error("message_cleanup_failed", map[string]any{"error": err.Error(), "deleted_messages": deleted})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	result := CleanupResult{DeletedMessages: deleted, Cutoff: cutoff}
	h.logger.Info("message_cleanup_completed", map[string]any{
		"deleted_messages": deleted,
		"cutoff":           cutoff.Format(time.RFC3339),
	})

	web.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

func (h *CleanupHandler) authorized(r *http.Request) bool {
	parts := strings.SplitN(strings.TrimSpace(r.Header.Get("Authorization")), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(h.cronSecret)) == 1
}

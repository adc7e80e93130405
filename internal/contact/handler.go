package contact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"portfolio-api/internal/observability"
	"portfolio-api/internal/web"
)

const notifyTimeout = 10 * time.Second

type Store interface {
	Create(ctx context.Context, input Input) (Message, error)
	List(ctx context.Context, unreadOnly bool) ([]Message, error)
	SetRead(ctx context.Context, id string, read bool) (Message, error)
	Delete(ctx context.Context, id string) error
}

// Notifier delivers the new-message alert to the site owner.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Handler struct {
	store    Store
	notifier Notifier
	inbox    string
	logger   *observability.Logger
}

// NewHandler wires the contact endpoints. With a nil notifier or empty inbox no alert is sent.
func NewHandler(store Store, notifier Notifier, inbox string, logger *observability.Logger) *Handler {
	return &Handler{store: store, notifier: notifier, inbox: inbox, logger: logger}
}

type readRequest struct {
	Read *bool `json:"read"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var input Input
	if !web.DecodeJSON(w, r, &input) {
		return
	}
	if err := input.Normalize(); err != nil {
		message, _ := web.IsInputError(err)
		web.WriteError(w, http.StatusBadRequest, message)
		return
	}

	// Pretend success so the bot learns nothing.
	if input.isSpam() {
		h.logger.Warn("contact_spam_dropped", map[string]any{"ip": observability.ClientIP(r)})
		web.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "message received"})
		return
	}

	m, err := h.store.Create(r.Context(), input)
	if err != nil {
		h.internal(w, r, err, "failed to save message")
		return
	}

	h.alert(r.Context(), m)
	web.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "message received"})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	messages, err := h.store.List(r.Context(), unreadOnly)
	if err != nil {
		h.internal(w, r, err, "failed to list messages")
		return
	}
	web.WriteJSON(w, http.StatusOK, messages)
}

// MarkRead sets the read flag; an empty body marks the message read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}

	read := true
	if r.ContentLength != 0 {
		var body readRequest
		if !web.DecodeJSON(w, r, &body) {
			return
		}
		if body.Read != nil {
			read = *body.Read
		}
	}

	m, err := h.store.SetRead(r.Context(), id, read)
	if err != nil {
		h.fail(w, r, err, "failed to update message")
		return
	}
	web.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// alert is best effort: the message is already stored, so a failed send is only logged.
func (h *Handler) alert(ctx context.Context, m Message) {
	if h.notifier == nil || h.inbox == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	subject := "New portfolio message"
	if m.Subject != "" {
		subject += ": " + m.Subject
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s", m.Name, m.Email, m.Body)

	if err := h.notifier.Send(ctx, h.inbox, subject, body); err != nil {
		h.logger.Warn("contact_alert_failed", map[string]any{"message_id": m.ID, "error": err.Error()})
		return
	}
	h.logger.Info("contact_alert_sent", map[string]any{"message_id": m.ID})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		web.WriteError(w, http.StatusNotFound, "message not found")
		return
	}
	h.internal(w, r, err, fallback)
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.logger.Error("contact_request_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
	observability.CaptureError(r, err)
	web.WriteError(w, http.StatusInternalServerError, message)
}

func messageID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid message id")
		return "", false
	}
	return id, true
}

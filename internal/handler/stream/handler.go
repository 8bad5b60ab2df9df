package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/threadline/backend/internal/service/notify"
	"github.com/zhouzirui/threadline/backend/pkg/utils"
)

// Toast is the wire form of a notification.
type Toast struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	NodeID     string    `json:"nodeId,omitempty"`
	ParentID   string    `json:"parentId,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// ToastFrom converts a hub notification for delivery to clients.
func ToastFrom(n notify.Notification) Toast {
	return Toast{
		ID:         n.ID,
		Kind:       n.Kind,
		Message:    n.Message,
		NodeID:     n.NodeID,
		ParentID:   n.ParentID,
		DurationMS: n.Duration.Milliseconds(),
		CreatedAt:  n.CreatedAt,
		ExpiresAt:  n.ExpiresAt(),
	}
}

// Handler streams notifications as Server-Sent Events.
type Handler struct {
	hub       *notify.Hub
	heartbeat time.Duration
	logger    *zap.Logger
}

// New creates the SSE handler. A non-positive heartbeat defaults to 8s.
func New(hub *notify.Hub, heartbeat time.Duration, logger *zap.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, heartbeat: heartbeat, logger: logger}
}

// RegisterRoutes mounts the event stream.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.hub.Subscribe(16)
	defer sub.Close()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Debug("sse stream opened", zap.String("remote", r.RemoteAddr))

	if err := utils.SendSSEEvent(w, flusher, "status", map[string]string{"message": "stream established"}); err != nil {
		h.logger.Debug("sse write failed", zap.Error(err))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("sse stream closed", zap.String("remote", r.RemoteAddr))
			return
		case n, open := <-sub.C:
			if !open {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "toast", ToastFrom(n)); err != nil {
				h.logger.Debug("sse write failed", zap.Error(err))
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			}); err != nil {
				h.logger.Debug("sse write failed", zap.Error(err))
				return
			}
		}
	}
}

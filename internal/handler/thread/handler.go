package thread

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/threadline/backend/internal/model/thought"
	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	"github.com/zhouzirui/threadline/backend/pkg/utils"
)

// Handler serves the forest over REST.
type Handler struct {
	store   *forest.Store
	maxText int
	logger  *zap.Logger
}

// New creates the thread handler. maxText bounds accepted text length in runes.
func New(store *forest.Store, maxText int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, maxText: maxText, logger: logger}
}

// RegisterRoutes mounts the forest routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/forest", h.handleGetForest)
	r.Post("/threads", h.handleCreateRoot)
	r.Get("/nodes/{nodeID}", h.handleGetNode)
	r.Post("/nodes/{nodeID}/replies", h.handleAddReply)
	r.Get("/moods", h.handleListMoods)
}

// ComposeRequest is the body accepted by both create routes.
type ComposeRequest struct {
	Text string `json:"text"`
	Mood string `json:"mood" validate:"omitempty,oneof=calm happy thoughtful"`
}

type forestResponse struct {
	Threads []thought.View `json:"threads"`
	Stats   forest.Stats   `json:"stats"`
}

type mutationResponse struct {
	Node     thought.View `json:"node"`
	ParentID string       `json:"parentId,omitempty"`
	Notified bool         `json:"notified"`
}

func (h *Handler) handleGetForest(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Forest(r.Context())
	threads := make([]thought.View, 0, len(snap.Roots))
	for _, root := range snap.Roots {
		threads = append(threads, root.View())
	}
	h.respond(w, http.StatusOK, forestResponse{Threads: threads, Stats: snap.Stats})
}

func (h *Handler) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, ok := h.store.Find(r.Context(), chi.URLParam(r, "nodeID"))
	if !ok {
		h.respondError(w, http.StatusNotFound, forest.ErrTargetNotFound.Error())
		return
	}
	h.respond(w, http.StatusOK, node.View())
}

func (h *Handler) handleCreateRoot(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.writeResult(w, h.store.CreateRoot(r.Context(), req.Text, req.Mood), "")
}

func (h *Handler) handleAddReply(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	parentID := chi.URLParam(r, "nodeID")
	h.writeResult(w, h.store.AddReply(r.Context(), parentID, req.Text, req.Mood), parentID)
}

func (h *Handler) handleListMoods(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, map[string]any{
		"moods":   thought.Moods(),
		"default": thought.DefaultMood,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ComposeRequest, bool) {
	var req ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	if h.maxText > 0 {
		if err := utils.ValidateField("text", req.Text, "max="+strconv.Itoa(h.maxText)); err != nil {
			h.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return req, false
		}
	}
	return req, true
}

// writeResult maps a store outcome onto an HTTP status.
func (h *Handler) writeResult(w http.ResponseWriter, res forest.Result, parentID string) {
	switch res.Status {
	case forest.Created:
		h.respond(w, http.StatusCreated, mutationResponse{
			Node:     res.Node.View(),
			ParentID: parentID,
			Notified: res.Notified,
		})
	case forest.TargetNotFound:
		h.respondError(w, http.StatusNotFound, res.Err().Error())
	default:
		h.respondError(w, http.StatusUnprocessableEntity, res.Err().Error())
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	if err := utils.RespondError(w, status, message); err != nil {
		h.logger.Warn("failed to encode error response", zap.Error(err))
	}
}

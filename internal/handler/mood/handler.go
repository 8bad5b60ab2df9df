package mood

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	moodservice "github.com/zhouzirui/threadline/backend/internal/service/mood"
	"github.com/zhouzirui/threadline/backend/pkg/utils"
)

// Classifier suggests a mood for a text.
type Classifier interface {
	Classify(ctx context.Context, text string) moodservice.Guidance
}

// Handler serves mood suggestions.
type Handler struct {
	classifier Classifier
}

// New creates the mood handler.
func New(classifier Classifier) *Handler {
	return &Handler{classifier: classifier}
}

// RegisterRoutes mounts the suggestion route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/moods/suggest", h.handleSuggest)
}

type suggestRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	_ = utils.RespondJSON(w, http.StatusOK, h.classifier.Classify(r.Context(), req.Text))
}

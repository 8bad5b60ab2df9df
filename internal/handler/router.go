package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/threadline/backend/internal/handler/live"
	moodhandler "github.com/zhouzirui/threadline/backend/internal/handler/mood"
	"github.com/zhouzirui/threadline/backend/internal/handler/stream"
	"github.com/zhouzirui/threadline/backend/internal/handler/thread"
	middlewarePkg "github.com/zhouzirui/threadline/backend/internal/middleware"
	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	moodservice "github.com/zhouzirui/threadline/backend/internal/service/mood"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
	"github.com/zhouzirui/threadline/backend/pkg/utils"
)

// Deps bundles what the HTTP layer needs.
type Deps struct {
	Store   *forest.Store
	Hub     *notify.Hub
	Moods   *moodservice.Service
	MaxText int
	Logger  *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		thread.New(deps.Store, deps.MaxText, logger.Named("thread")).RegisterRoutes(api)
		moodhandler.New(deps.Moods).RegisterRoutes(api)
		stream.New(deps.Hub, 0, logger.Named("sse")).RegisterRoutes(api)
		live.New(deps.Store, deps.Hub, logger.Named("ws")).RegisterRoutes(api)
	})

	return r
}

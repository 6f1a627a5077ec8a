package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/maktab-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/handler/participant"
	"github.com/zhouzirui/maktab-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/maktab-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/maktab-chat/backend/internal/middleware"
	participantModel "github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	chatService "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
	"github.com/zhouzirui/maktab-chat/backend/pkg/utils"
)

// Deps are the services the HTTP surface is wired to.
type Deps struct {
	Participants participantModel.Store
	Chat         *chatService.Service
	Limiter      *middlewarePkg.LimiterPool
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	participantHandler := participant.New(deps.Participants)
	chatHandler := chat.New(deps.Chat, deps.Limiter, deps.Logger)
	streamHandler := stream.New(deps.Chat, deps.Logger)
	wsHandler := ws.New(deps.Chat, deps.Limiter, deps.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		participantHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}

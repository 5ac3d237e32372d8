package httpapi

import (
	"net/http"

	"github.com/croissant676/SpyfallServer/internal/room"
	"github.com/croissant676/SpyfallServer/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRoutes(rm *room.Room, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Get("/", Hello)
	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(rm, log))
	return r
}

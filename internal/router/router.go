package router

import (
	"net/http"

	"badgerelay/internal/config"
	"badgerelay/internal/handlers/api/v1/badges"
	"badgerelay/internal/handlers/api/v1/events"
	"badgerelay/internal/handlers/api/v1/health"
	"badgerelay/internal/handlers/api/v1/queue"
	syncapi "badgerelay/internal/handlers/api/v1/sync"
	"badgerelay/internal/middleware"
	"badgerelay/internal/response"
	"badgerelay/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the root handler.
func SetupRouter(serviceCollection *services.ServiceCollection, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))

	r.NotFoundHandler = notFound()
	r.MethodNotAllowedHandler = methodNotAllowed()

	healthController := health.NewHealthController(serviceCollection.DBManager, logger)
	r.HandleFunc("/health/live", healthController.Live).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", healthController.Ready).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.AdminAuth(cfg.Server.AdminToken, logger))

	eventController := events.NewEventController(serviceCollection, logger)
	api.HandleFunc("/events/badge-awarded", eventController.BadgeAwarded).Methods(http.MethodPost)

	syncController := syncapi.NewSyncController(serviceCollection, logger)
	api.HandleFunc("/sync", syncController.Sync).Methods(http.MethodPost)

	queueController := queue.NewQueueController(serviceCollection, logger)
	api.HandleFunc("/queue/drain", queueController.Drain).Methods(http.MethodPost)
	api.HandleFunc("/queue/overview", queueController.Overview).Methods(http.MethodGet)

	badgeController := badges.NewBadgeController(serviceCollection, logger)
	api.HandleFunc("/prototypes", badgeController.ListPrototypes).Methods(http.MethodGet)
	api.HandleFunc("/prototypes", badgeController.CreatePrototype).Methods(http.MethodPost)
	api.HandleFunc("/prototypes/{id:[0-9]+}/instances", badgeController.BindInstance).Methods(http.MethodPost)

	return r
}

func notFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.QuickStatusResponse(w, r, http.StatusNotFound, "resource not found")
	})
}

func methodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.QuickStatusResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}

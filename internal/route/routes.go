package route

import (
	"net/http"

	"github.com/rs/cors"

	"safestep/internal/config"
	"safestep/internal/handler"
	"safestep/internal/logger"
	"safestep/internal/middleware"
	"safestep/internal/repository"
	"safestep/internal/service/crosswalk"
	"safestep/internal/service/storage"
	"safestep/internal/service/websocket"
)

// Dependencies groups what the HTTP layer needs from the rest of the app.
type Dependencies struct {
	Store   *crosswalk.Store
	ViewHub *websocket.HubService
	Events  repository.EventRepository
	Images  repository.ImageRepository
	Buffer  *storage.BufferService
	Capture handler.CaptureStatus
}

// SetupRoutes registers API endpoints and wraps the mux with request
// logging, CORS and an origin check. WebSocket upgrades and state-changing
// requests are only accepted from CORS_ORIGINS, the server's own host, or
// clients that send no Origin.
func SetupRoutes(deps Dependencies, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	allowedOrigin := middleware.AllowedOrigin(cfg.CORSOrigins)
	upgrader := handler.NewUpgrader(allowedOrigin)

	// Crosswalk state
	mux.HandleFunc("/api/crosswalk", handler.CrosswalkHandler(deps.Store))
	mux.HandleFunc("/api/crosswalk/stream", handler.CrosswalkStreamHandler(upgrader, deps.Store, logger))
	mux.HandleFunc("/api/crosswalk/history", handler.HistoryHandler(deps.Events, logger))

	// Snapshots and live view
	mux.HandleFunc("/api/snapshots", handler.SnapshotsHandler(deps.Images, logger))
	mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(deps.Buffer, deps.Images, logger))
	mux.HandleFunc("/api/snapshots/delete", handler.DeleteSnapshotHandler(deps.Buffer, deps.Images, logger))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(upgrader, deps.ViewHub, logger))

	// Logs
	mux.HandleFunc("/logs", handler.LogsHandler(logger))
	mux.HandleFunc("/logs/clear", handler.ClearLogsHandler(logger))

	mux.HandleFunc("/healthz", handler.HealthHandler(deps.Store, deps.Capture, deps.Events, logger))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	guarded := middleware.RequireOrigin(allowedOrigin, logger)(mux)
	return middleware.RequestLogger(logger, "/api/crosswalk", "/healthz")(c.Handler(guarded))
}

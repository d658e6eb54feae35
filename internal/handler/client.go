package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"safestep/internal/logger"
	ws "safestep/internal/service/websocket"
)

// NewUpgrader returns a WebSocket upgrader that only accepts origins passing
// checkOrigin.
func NewUpgrader(checkOrigin func(r *http.Request) bool) *websocket.Upgrader {
	return &websocket.Upgrader{CheckOrigin: checkOrigin}
}

// ViewWebsocketHandler registers viewers in the frame hub so they receive
// annotated camera frames.
func ViewWebsocketHandler(upgrader *websocket.Upgrader, hub *ws.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		logger.Info("Viewer connected")
		readUntilClosed(connection, "Viewer", logger)
	}
}

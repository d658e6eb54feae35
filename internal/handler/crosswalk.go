package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"safestep/internal/logger"
	"safestep/internal/service/crosswalk"
)

const stateWriteWait = 5 * time.Second

// CrosswalkHandler serves the shared detection state as
// {"detected": bool, "confidence": float}.
func CrosswalkHandler(store *crosswalk.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, store.Get())
	}
}

// CrosswalkStreamHandler sends the current state on connect and every change
// after it. The subscription is taken before the first read of the state, so
// no change is lost in between.
func CrosswalkStreamHandler(upgrader *websocket.Upgrader, store *crosswalk.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		updates, cancel := store.Subscribe()
		defer cancel()

		if err := writeState(connection, store.Get()); err != nil {
			logger.Error("Failed to send initial state: %v", err)
			return
		}

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			readUntilClosed(connection, "State subscriber", logger)
		}()

		for {
			select {
			case <-closed:
				return
			case state := <-updates:
				if err := writeState(connection, state); err != nil {
					logger.Warning("Failed to send state: %v", err)
					return
				}
			}
		}
	}
}

func writeState(connection *websocket.Conn, state interface{}) error {
	connection.SetWriteDeadline(time.Now().Add(stateWriteWait))
	return connection.WriteJSON(state)
}

// readUntilClosed drains client messages so control frames are processed,
// and returns once the peer goes away.
func readUntilClosed(connection *websocket.Conn, who string, logger *logger.Logger) {
	connection.SetReadLimit(512)
	for {
		if _, _, err := connection.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("%s disconnected normally", who)
			} else {
				logger.Warning("%s disconnected: %v", who, err)
			}
			return
		}
	}
}

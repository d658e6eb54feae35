package handler

import (
	"errors"
	"net/http"

	"safestep/internal/dto"
	"safestep/internal/logger"
	"safestep/internal/repository"
	"safestep/internal/repository/sqlite"
	"safestep/internal/service/crosswalk"
)

// CaptureStatus reports on the capture loop.
type CaptureStatus interface {
	Running() bool
	Frames() uint64
}

// HealthHandler reports "ok" while frames are being captured and "degraded"
// otherwise. events may be nil.
func HealthHandler(store *crosswalk.Store, capture CaptureStatus, events repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}

		health := dto.Health{
			Status:    "ok",
			UpdatedAt: store.UpdatedAt(),
		}
		if capture != nil {
			health.Camera = capture.Running()
			health.Frames = capture.Frames()
		}
		if !health.Camera {
			health.Status = "degraded"
		}

		if events != nil {
			if last, err := events.Latest(); err == nil {
				health.LastEvent = &last.CreatedAt
			} else if !errors.Is(err, sqlite.ErrNotFound) {
				logger.Warning("Failed to read last event: %v", err)
			}
		}

		writeJSON(w, http.StatusOK, health)
	}
}

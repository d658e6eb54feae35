package handler

import (
	"errors"
	"net/http"
	"os"

	"safestep/internal/logger"
	"safestep/internal/repository"
	"safestep/internal/repository/sqlite"
	"safestep/internal/service/storage"
)

// SnapshotsHandler lists stored snapshots, newest first.
func SnapshotsHandler(images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), defaultHistoryLimit)
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		list, err := images.List(limit)
		if err != nil {
			logger.Error("Failed to list snapshots: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list snapshots")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ViewSnapshotHandler serves a single snapshot image by name.
func ViewSnapshotHandler(buffer *storage.BufferService, images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}

		name := r.URL.Query().Get("name")
		path, err := buffer.Path(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := images.GetByFilename(name); err != nil {
			if errors.Is(err, sqlite.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			logger.Error("Failed to look up snapshot %s: %v", name, err)
			writeError(w, http.StatusInternalServerError, "failed to look up snapshot")
			return
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, path)
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and the database.
func DeleteSnapshotHandler(buffer *storage.BufferService, images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := r.URL.Query().Get("name")
		path, err := buffer.Path(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := images.DeleteByFilename(name); err != nil {
			if errors.Is(err, sqlite.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			logger.Error("Failed to delete from database: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to delete snapshot")
			return
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", path, err)
		}

		logger.Info("Deleted snapshot: %s", name)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "name": name})
	}
}

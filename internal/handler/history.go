package handler

import (
	"net/http"
	"strconv"
	"time"

	"safestep/internal/dto"
	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// historyResponse carries one page of events; Total counts every event
// matching the filter regardless of limit.
type historyResponse struct {
	Events []model.Event `json:"events"`
	Total  int           `json:"total"`
}

// HistoryHandler lists recorded changes of the detection flag.
// Query: limit, since (RFC3339), detected (true: only rising edges, false:
// only cleared), camera.
func HistoryHandler(events repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}

		filter, err := parseEventFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		list, err := events.List(filter)
		if err != nil {
			logger.Error("Failed to list events: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list events")
			return
		}

		total, err := events.Count(filter)
		if err != nil {
			logger.Error("Failed to count events: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to count events")
			return
		}

		writeJSON(w, http.StatusOK, historyResponse{Events: list, Total: total})
	}
}

func parseEventFilter(r *http.Request) (*dto.EventFilter, error) {
	q := r.URL.Query()

	limit := atoiDefault(q.Get("limit"), defaultHistoryLimit)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	filter := &dto.EventFilter{
		Camera: q.Get("camera"),
		Limit:  limit,
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filter.Since = since
	}

	if v := q.Get("detected"); v != "" {
		detected, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		filter.Detected = &detected
	}

	return filter, nil
}

package crosswalk

import (
	"fmt"

	"safestep/internal/dto"
	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/repository"
)

// SnapshotSink keeps an annotated frame and returns the name it will be stored under.
type SnapshotSink interface {
	AddImage(data []byte, camera string, detections []model.Detection) string
}

// Tracker applies a Checker to every frame, updates the Store and records
// changes of the detected flag.
type Tracker struct {
	checker   Checker
	store     *Store
	events    repository.EventRepository
	snapshots SnapshotSink
	camera    string
	logger    *logger.Logger
}

// NewTracker wires a tracker. events and snapshots may be nil.
func NewTracker(checker Checker, store *Store, events repository.EventRepository, snapshots SnapshotSink, camera string, logger *logger.Logger) *Tracker {
	return &Tracker{
		checker:   checker,
		store:     store,
		events:    events,
		snapshots: snapshots,
		camera:    camera,
		logger:    logger,
	}
}

// Observe evaluates the detections of one frame. snapshot is called only when
// a crosswalk appears, to fetch the annotated frame for storage.
func (t *Tracker) Observe(detections []model.Detection, snapshot func() ([]byte, error)) (dto.CrosswalkState, error) {
	previous := t.store.Get()
	state := t.checker.Check(detections)
	t.store.Set(state)

	if state.Detected == previous.Detected {
		return state, nil
	}

	if state.Detected {
		t.logger.Info("Crosswalk detected on %s (confidence %.2f)", t.camera, state.Confidence)
	} else {
		t.logger.Info("Crosswalk no longer detected on %s", t.camera)
	}

	event := &model.Event{
		Camera:     t.camera,
		Detected:   state.Detected,
		Confidence: state.Confidence,
	}

	if state.Detected && t.snapshots != nil && snapshot != nil {
		data, err := snapshot()
		if err != nil {
			t.logger.Warning("Could not capture snapshot: %v", err)
		} else {
			event.Snapshot = t.snapshots.AddImage(data, t.camera, detections)
		}
	}

	if t.events == nil {
		return state, nil
	}
	if _, err := t.events.Insert(event); err != nil {
		return state, fmt.Errorf("failed to record event: %w", err)
	}
	return state, nil
}

// Package crosswalk turns per-frame detections into the shared crosswalk
// detection record and keeps a history of its changes.
package crosswalk

import (
	"safestep/internal/dto"
	"safestep/internal/model"
)

const (
	DefaultLabel     = "crosswalk"
	DefaultThreshold = 0.80
)

// Checker decides whether a frame contains the target class.
type Checker struct {
	Label     string
	Threshold float64
}

// NewChecker returns a Checker, falling back to the defaults for empty values.
func NewChecker(label string, threshold float64) Checker {
	if label == "" {
		label = DefaultLabel
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Checker{Label: label, Threshold: threshold}
}

// Check reports the best detection of the target label whose confidence is
// strictly above the threshold. Without one the state is {false, 0}.
func (c Checker) Check(detections []model.Detection) dto.CrosswalkState {
	var state dto.CrosswalkState
	for _, d := range detections {
		if d.Label != c.Label || d.Confidence <= c.Threshold {
			continue
		}
		if !state.Detected || d.Confidence > state.Confidence {
			state = dto.CrosswalkState{Detected: true, Confidence: d.Confidence}
		}
	}
	return state
}

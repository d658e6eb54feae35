// Package yolo prepares input tensors for YOLOv8 models and decodes their output.
// It has no cgo dependencies so both inference backends share it.
package yolo

import (
	"fmt"

	"safestep/internal/model"
)

// DecodeYOLOv8 decodes a YOLOv8 detection head laid out as [1, 4+numClasses, numAnchors].
// The first four channels hold cx, cy, w, h in model input pixels, the rest are
// per-class scores. Anchors whose best class score is not above confThreshold are
// dropped. scaleX and scaleY map model input pixels to frame pixels.
func DecodeYOLOv8(output []float32, numClasses, numAnchors int, confThreshold, scaleX, scaleY float32, labels Labels) ([]model.Detection, error) {
	if numClasses <= 0 || numAnchors <= 0 {
		return nil, fmt.Errorf("invalid output shape: %d classes, %d anchors", numClasses, numAnchors)
	}
	if expected := (4 + numClasses) * numAnchors; len(output) < expected {
		return nil, fmt.Errorf("output too short: got %d values, expected %d", len(output), expected)
	}

	var detections []model.Detection
	for i := 0; i < numAnchors; i++ {
		classID, score := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if curr := output[numAnchors*(c+4)+i]; curr > score {
				score = curr
				classID = c
			}
		}

		if score <= confThreshold {
			continue
		}

		cx := output[i]
		cy := output[numAnchors+i]
		w := output[2*numAnchors+i]
		h := output[3*numAnchors+i]

		detections = append(detections, model.Detection{
			ClassID:    classID,
			Label:      labels.Name(classID),
			Confidence: float64(score),
			X:          int((cx - w/2) * scaleX),
			Y:          int((cy - h/2) * scaleY),
			Width:      int(w * scaleX),
			Height:     int(h * scaleY),
		})
	}

	return detections, nil
}

// NumClasses infers the class count from a [1, channels, anchors] output shape.
func NumClasses(shape []int64) (int, int, error) {
	if len(shape) != 3 || shape[1] <= 4 || shape[2] <= 0 {
		return 0, 0, fmt.Errorf("unsupported output shape %v", shape)
	}
	return int(shape[1] - 4), int(shape[2]), nil
}

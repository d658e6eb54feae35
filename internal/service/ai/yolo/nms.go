package yolo

import (
	"sort"

	"safestep/internal/model"
)

// NMS keeps the highest scoring box of every overlapping group of the same class.
// The result is sorted by confidence, highest first.
func NMS(detections []model.Detection, iouThreshold float64) []model.Detection {
	boxes := make([]model.Detection, len(detections))
	copy(boxes, detections)

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})

	kept := make([]model.Detection, 0, len(boxes))
	suppressed := make([]bool, len(boxes))
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])

		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] || boxes[j].ClassID != boxes[i].ClassID {
				continue
			}
			if IoU(boxes[i], boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// IoU returns the intersection over union of two boxes.
func IoU(a, b model.Detection) float64 {
	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0
	}

	interArea := float64(inter.Dx() * inter.Dy())
	union := float64(a.Width*a.Height+b.Width*b.Height) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

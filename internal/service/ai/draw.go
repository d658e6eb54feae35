package ai

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"safestep/internal/model"
)

var green = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Annotate draws every detection box with a "<label>: <confidence>" caption.
func Annotate(frame *gocv.Mat, detections []model.Detection) error {
	for _, detection := range detections {
		if err := gocv.Rectangle(frame, detection.Rect(), green, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s: %.2f", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, detection.Y-10)
		if err := gocv.PutText(frame, label, pt, gocv.FontHersheySimplex, 0.5, green, 2); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}

// EncodeJPEG returns a copy of the frame encoded as JPEG.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

package dto

import "safestep/internal/model"

// BufferedImage holds an annotated snapshot before it is flushed to disk.
type BufferedImage struct {
	Filename   string
	Timestamp  string
	Camera     string
	Detections []model.Detection
	Data       []byte
}

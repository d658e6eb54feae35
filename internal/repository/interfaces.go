package repository

import (
	"time"

	"safestep/internal/dto"
	"safestep/internal/model"
)

// EventRepository stores changes of the crosswalk detection flag.
type EventRepository interface {
	// Create operations
	Insert(event *model.Event) (int64, error)

	// Read operations
	List(filter *dto.EventFilter) ([]model.Event, error)
	Latest() (*model.Event, error)
	Count(filter *dto.EventFilter) (int, error)

	// Delete operations
	DeleteBefore(t time.Time) (int64, error)
}

// ImageRepository stores metadata of snapshots written to disk.
type ImageRepository interface {
	Insert(img *model.Image) (int64, error)
	GetByFilename(filename string) (*model.Image, error)
	List(limit int) ([]model.Image, error)
	DeleteByFilename(filename string) error
}

package model

import "time"

// Event records a change of the crosswalk detection flag.
type Event struct {
	ID         int64     `json:"id"`
	Camera     string    `json:"camera"`
	Detected   bool      `json:"detected"`
	Confidence float64   `json:"confidence"`
	Snapshot   string    `json:"snapshot,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

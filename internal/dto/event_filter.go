package dto

import "time"

// EventFilter narrows history queries. Zero values mean no restriction;
// Limit does not apply to counts.
type EventFilter struct {
	Camera   string
	Since    time.Time
	Detected *bool
	Limit    int
}

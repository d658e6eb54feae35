package dto

import "time"

type Health struct {
	Status    string     `json:"status"`
	Camera    bool       `json:"camera"`
	Frames    uint64     `json:"frames"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastEvent *time.Time `json:"last_event,omitempty"`
}

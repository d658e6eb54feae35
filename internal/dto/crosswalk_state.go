package dto

// CrosswalkState is the shared detection record served by /api/crosswalk.
type CrosswalkState struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

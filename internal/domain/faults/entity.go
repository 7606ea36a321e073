package faults

import "time"

// AnalysisFault represents a persisted record of a terminal analysis failure.
// Raw upstream detail lands here for ops; clients only ever see the
// sanitized stream message.
type AnalysisFault struct {
	ID          int64     `json:"id"`
	RequestID   string    `json:"request_id"`
	Phase       string    `json:"phase,omitempty"` // model-call | decode | archive
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProctorEvent is a single proctoring flag reported by the client during an
// attempt (tab switch, fullscreen exit, ...). Events are queued to Redis and
// batch-persisted; the attempt's violations counter is raised with a
// monotone-max merge so reordered delivery never loses a flag.
type ProctorEvent struct {
	ID         int64           `json:"id"`
	AttemptID  uuid.UUID       `json:"attempt_id"`
	StudentID  int             `json:"student_id"`
	ExamID     uuid.UUID       `json:"exam_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// QueuedProctorEvent is the wire form of a proctor event while it sits in
// the Redis queue between ingestion and batch persistence.
type QueuedProctorEvent struct {
	AttemptID  uuid.UUID       `json:"attempt_id"`
	StudentID  int             `json:"student_id"`
	ExamID     uuid.UUID       `json:"exam_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Violations int             `json:"violations"`
	RecordedAt int64           `json:"recorded_at"`
}

// ReportEventRequest is the payload for reporting a proctor event over REST.
// Violations carries the client's cumulative counter.
type ReportEventRequest struct {
	EventType  string          `json:"event_type" binding:"required,min=1,max=50"`
	Payload    json.RawMessage `json:"payload" binding:"omitempty"`
	Violations int             `json:"violations" binding:"min=0"`
}

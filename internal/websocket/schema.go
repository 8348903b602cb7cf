package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionSubmit    Action = "submit"
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestPayload is the single client message shape; unused fields are
// ignored per action.
type RequestPayload struct {
	Action     Action          `json:"action"`
	Answers    json.RawMessage `json:"answers,omitempty"`
	Violations int             `json:"violations,omitempty"`
	EventType  string          `json:"event_type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventClosed Event = "closed"
	EventPong   Event = "pong"
)

type SavedResponse struct {
	Event            Event  `json:"event"`
	Status           string `json:"status"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Violations       int    `json:"violations"`
}

type GradedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	Score  int    `json:"score"`
}

// ClosedResponse tells the client its attempt is already settled; sent when
// an action arrives after the deadline or a duplicate finalization.
type ClosedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. SUBMITTED and TERMINATED are
// terminal; an attempt never leaves a terminal state.
type AttemptStatus string

const (
	AttemptStatusActive     AttemptStatus = "ACTIVE"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusTerminated AttemptStatus = "TERMINATED"
)

// Submission reasons. The first reason written wins; it is never overwritten.
const (
	ReasonManualSubmit     = "MANUAL_SUBMIT"
	ReasonTimeExpired      = "TIME_EXPIRED"
	ReasonProctorViolation = "PROCTOR_VIOLATION"
)

// AnswerSet maps a question id (as text) to the student's chosen option text.
type AnswerSet map[string]string

// ParseAnswerSet decodes a raw answers payload. A malformed payload degrades
// to an empty set instead of failing: losing a submit outright is worse than
// grading it as unanswered.
func ParseAnswerSet(raw json.RawMessage) AnswerSet {
	if len(raw) == 0 {
		return AnswerSet{}
	}
	var answers AnswerSet
	if err := json.Unmarshal(raw, &answers); err != nil || answers == nil {
		return AnswerSet{}
	}
	return answers
}

// ExamAttempt is a student's single, non-repeatable session against one exam.
// At most one attempt exists per (student, exam) pair over the system's
// lifetime, enforced by a unique constraint plus a serialized start path.
type ExamAttempt struct {
	ID               uuid.UUID     `json:"id"`
	StudentID        int           `json:"student_id"`
	ExamID           uuid.UUID     `json:"exam_id"`
	Status           AttemptStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	EndsAt           time.Time     `json:"ends_at"`
	Answers          AnswerSet     `json:"answers"`
	Violations       int           `json:"violations"`
	SubmissionReason *string       `json:"submission_reason,omitempty"`
	QuestionOrder    []uuid.UUID   `json:"question_order,omitempty"`
}

// Terminal reports whether the attempt has reached a final state.
func (a *ExamAttempt) Terminal() bool {
	return a.Status == AttemptStatusSubmitted || a.Status == AttemptStatusTerminated
}

// Expired reports whether the deadline has passed at the given instant.
// Expiry is a read-time derived fact; it only becomes a stored state change
// when the attempt is next observed.
func (a *ExamAttempt) Expired(now time.Time) bool {
	return now.After(a.EndsAt)
}

// RemainingSeconds returns the time budget left at the given instant,
// clamped at zero.
func (a *ExamAttempt) RemainingSeconds(now time.Time) int64 {
	remaining := a.EndsAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// AttemptView is the start/resume response for a live attempt: everything a
// client needs to render or restore an in-progress session.
type AttemptView struct {
	AttemptID        uuid.UUID            `json:"attempt_id"`
	ExamID           uuid.UUID            `json:"exam_id"`
	ExamTitle        string               `json:"exam_title"`
	Status           AttemptStatus        `json:"status"`
	DurationMinutes  int                  `json:"duration_minutes,omitempty"`
	EndsAt           *time.Time           `json:"ends_at,omitempty"`
	RemainingSeconds int64                `json:"remaining_seconds"`
	Violations       int                  `json:"violations"`
	Answers          AnswerSet            `json:"answers,omitempty"`
	Questions        []QuestionForStudent `json:"questions,omitempty"`
}

// SaveProgressRequest is the payload for autosave and submit. Answers arrives
// as raw JSON so a malformed map degrades to empty instead of a 4xx.
type SaveProgressRequest struct {
	Answers    json.RawMessage `json:"answers"`
	Violations int             `json:"violations" binding:"min=0"`
	Reason     string          `json:"reason" binding:"omitempty,max=50"`
}

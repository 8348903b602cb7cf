package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a timed examination. DurationMinutes is fixed at creation;
// an attempt's deadline is derived from it once and never recomputed.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Duration returns the exam's time budget.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	WindowStart     *time.Time `json:"window_start" binding:"omitempty"`
	WindowEnd       *time.Time `json:"window_end" binding:"omitempty,gtfield=WindowStart"`
}

// StudentExamEntry is an exam as shown in the student catalog, overlaid with
// the caller's attempt status (null when the student never started it).
type StudentExamEntry struct {
	ExamID          uuid.UUID      `json:"exam_id"`
	Title           string         `json:"title"`
	DurationMinutes int            `json:"duration_minutes"`
	AttemptStatus   *AttemptStatus `json:"attempt_status"`
}

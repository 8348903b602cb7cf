package model

import (
	"time"

	"github.com/google/uuid"
)

// PassThresholdPercent is the fixed passing score used by downstream
// summaries. It is not stored on the Result itself.
const PassThresholdPercent = 40

// Result is the write-once grading record for an attempt. The unique
// attempt_id column enforces at-most-one grading; a Result is never updated
// after creation.
type Result struct {
	ID               uuid.UUID     `json:"id"`
	AttemptID        uuid.UUID     `json:"attempt_id"`
	StudentID        int           `json:"student_id"`
	ExamID           uuid.UUID     `json:"exam_id"`
	Score            int           `json:"score"`
	TotalQuestions   int           `json:"total_questions"`
	CorrectAnswers   int           `json:"correct_answers"`
	Violations       int           `json:"violations"`
	Status           AttemptStatus `json:"status"`
	SubmissionReason *string       `json:"submission_reason,omitempty"`
	SubmittedAt      time.Time     `json:"submitted_at"`
}

// Passed reports whether the score clears the fixed passing threshold.
func (r *Result) Passed() bool {
	return r.Score >= PassThresholdPercent
}

// ReviewVerdict is the tri-state outcome for one question in a review.
type ReviewVerdict string

const (
	VerdictCorrect    ReviewVerdict = "CORRECT"
	VerdictWrong      ReviewVerdict = "WRONG"
	VerdictUnanswered ReviewVerdict = "UNANSWERED"
)

// QuestionReview is the reconstructed per-question feedback for a graded
// attempt. It is re-derived from the stored answers and never consults the
// stored score.
type QuestionReview struct {
	QuestionID     uuid.UUID     `json:"question_id"`
	QuestionText   string        `json:"question_text"`
	Options        []string      `json:"options"`
	CorrectAnswer  string        `json:"correct_answer"`
	SelectedAnswer *string       `json:"selected_answer,omitempty"`
	Verdict        ReviewVerdict `json:"verdict"`
}

// ResultReview pairs a grading record with its reconstructed per-question
// feedback, in the attempt's original display order.
type ResultReview struct {
	Result Result           `json:"result"`
	Items  []QuestionReview `json:"items"`
}

// ResultSummary aggregates a student's results for the results page.
// TotalExams counts exams taken; CompletionPercent relates that to the exams
// currently offered.
type ResultSummary struct {
	TotalExams        int    `json:"total_exams"`
	Passed            int    `json:"passed"`
	Failed            int    `json:"failed"`
	AverageScore      int    `json:"average_score"`
	CompletionPercent int    `json:"completion_percent"`
	LatestExamTitle   string `json:"latest_exam_title,omitempty"`
}

// StudentResultEntry is one row in a student's result history.
type StudentResultEntry struct {
	ResultID         uuid.UUID     `json:"result_id"`
	ExamID           uuid.UUID     `json:"exam_id"`
	ExamTitle        string        `json:"exam_title"`
	Score            int           `json:"score"`
	TotalQuestions   int           `json:"total_questions"`
	CorrectAnswers   int           `json:"correct_answers"`
	Violations       int           `json:"violations"`
	Status           AttemptStatus `json:"status"`
	SubmissionReason *string       `json:"submission_reason,omitempty"`
	SubmittedAt      time.Time     `json:"submitted_at"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veduka/examhall-backend/internal/model"
)

// ResultService serves a student's grading history and per-question reviews.
// Everything here is read-only over immutable result rows.
type ResultService struct {
	results   ResultStore
	attempts  AttemptStore
	questions QuestionSource
	exams     ExamStore
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultStore, attempts AttemptStore, questions QuestionSource, exams ExamStore) *ResultService {
	return &ResultService{results: results, attempts: attempts, questions: questions, exams: exams}
}

// ListResults returns the student's result history, newest first.
func (s *ResultService) ListResults(ctx context.Context, studentID int) ([]model.StudentResultEntry, error) {
	entries, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return entries, nil
}

// Summary aggregates the student's results: exams taken, pass/fail split,
// rounded average score, how much of the current catalog is done, and the
// most recently graded exam.
func (s *ResultService) Summary(ctx context.Context, studentID int) (*model.ResultSummary, error) {
	entries, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	summary := &model.ResultSummary{
		TotalExams:        len(entries),
		CompletionPercent: ScorePercent(len(entries), len(exams)),
	}
	if len(entries) == 0 {
		return summary, nil
	}

	sum := 0
	latest := entries[0]
	for _, e := range entries {
		sum += e.Score
		if e.Score >= model.PassThresholdPercent {
			summary.Passed++
		}
		if e.SubmittedAt.After(latest.SubmittedAt) {
			latest = e
		}
	}
	summary.Failed = summary.TotalExams - summary.Passed
	summary.AverageScore = int(math.Round(float64(sum) / float64(len(entries))))
	summary.LatestExamTitle = latest.ExamTitle
	return summary, nil
}

// Review reconstructs per-question feedback for one of the student's results.
// The verdicts are re-derived from the attempt's stored answers against the
// current question set; the stored score is returned untouched alongside.
func (s *ResultService) Review(ctx context.Context, studentID int, resultID uuid.UUID) (*model.ResultReview, error) {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result.StudentID != studentID {
		return nil, ErrNotResultOwner
	}

	attempt, err := s.attempts.GetByID(ctx, result.AttemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	questions, err := s.questions.ListByExam(ctx, result.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	ordered := orderQuestions(questions, attempt.QuestionOrder)
	return &model.ResultReview{
		Result: *result,
		Items:  BuildReview(attempt.Answers, ordered),
	}, nil
}

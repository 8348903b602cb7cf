package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veduka/examhall-backend/internal/model"
)

// ExamAdminStore extends the exam lookup surface with the write operations
// the admin side needs.
type ExamAdminStore interface {
	ExamStore
	Create(ctx context.Context, e *model.Exam) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionAdminStore is the question write surface.
type QuestionAdminStore interface {
	QuestionSource
	Create(ctx context.Context, q *model.Question) error
	CountByExam(ctx context.Context, examID uuid.UUID) (int64, error)
}

// ExamAttemptCounter reports how many attempts reference an exam.
type ExamAttemptCounter interface {
	CountByExam(ctx context.Context, examID uuid.UUID) (int64, error)
}

// QuestionCacheInvalidator drops a cached question set after an exam edit.
type QuestionCacheInvalidator interface {
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// ExamService owns admin-side exam and question management. Deletion is
// guarded: an exam that has attempts can never be removed, so attempts and
// results stay resolvable for review indefinitely.
type ExamService struct {
	exams     ExamAdminStore
	questions QuestionAdminStore
	attempts  ExamAttemptCounter
	cache     QuestionCacheInvalidator
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamAdminStore, questions QuestionAdminStore, attempts ExamAttemptCounter, cache QuestionCacheInvalidator) *ExamService {
	return &ExamService{exams: exams, questions: questions, attempts: attempts, cache: cache}
}

// List returns all exams, newest first.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

// Get returns a single exam.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// Create registers a new exam. The duration is fixed from here on; attempts
// derive their deadline from it at start time and never recompute it.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	return exam, nil
}

// Delete removes an exam that has no attempts. Any attempt at all, in any
// state, blocks the deletion.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.attempts.CountByExam(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if count > 0 {
		return ErrExamHasAttempts
	}

	if err := s.exams.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("failed to invalidate question cache: %w", err)
	}
	return nil
}

// ListQuestions returns an exam's questions with correct answers included.
// Admin only; the student path goes through QuestionForStudent.
func (s *ExamService) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.Get(ctx, examID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// AddQuestion appends a question to an exam and drops the cached set.
func (s *ExamService) AddQuestion(ctx context.Context, examID uuid.UUID, req model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.Get(ctx, examID); err != nil {
		return nil, err
	}

	question := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: req.CorrectAnswer,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	if err := s.cache.Invalidate(ctx, examID); err != nil {
		return nil, fmt.Errorf("failed to invalidate question cache: %w", err)
	}
	return question, nil
}

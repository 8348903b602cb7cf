package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veduka/examhall-backend/internal/model"
)

type examAdminHarness struct {
	exams     *fakeExamStore
	questions *fakeQuestionSource
	attempts  *fakeAttemptStore
	cache     *fakeInvalidator
	svc       *ExamService
}

func newExamAdminHarness(t *testing.T) *examAdminHarness {
	t.Helper()
	h := &examAdminHarness{
		exams:     newFakeExamStore(),
		questions: newFakeQuestionSource(),
		attempts:  newFakeAttemptStore(),
		cache:     &fakeInvalidator{},
	}
	h.svc = NewExamService(h.exams, h.questions, h.attempts, h.cache)
	return h
}

func TestCreateExam(t *testing.T) {
	h := newExamAdminHarness(t)

	exam, err := h.svc.Create(context.Background(), model.CreateExamRequest{
		Title:           "Physics Midterm",
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, exam.ID)
	assert.Equal(t, "Physics Midterm", exam.Title)
	assert.Equal(t, 60, exam.DurationMinutes)
}

func TestDeleteExamWithoutAttempts(t *testing.T) {
	h := newExamAdminHarness(t)
	ctx := context.Background()

	exam := &model.Exam{ID: uuid.New(), Title: "Unused", DurationMinutes: 30}
	h.exams.add(exam)

	require.NoError(t, h.svc.Delete(ctx, exam.ID))

	_, err := h.svc.Get(ctx, exam.ID)
	assert.ErrorIs(t, err, ErrExamNotFound)
	assert.Contains(t, h.cache.calls, exam.ID)
}

func TestDeleteExamBlockedByAttempts(t *testing.T) {
	h := newExamAdminHarness(t)
	ctx := context.Background()

	exam := &model.Exam{ID: uuid.New(), Title: "Taken", DurationMinutes: 30}
	h.exams.add(exam)
	require.NoError(t, h.attempts.Create(ctx, &model.ExamAttempt{
		StudentID: 1,
		ExamID:    exam.ID,
		Status:    model.AttemptStatusSubmitted,
		Answers:   model.AnswerSet{},
	}))

	err := h.svc.Delete(ctx, exam.ID)
	assert.ErrorIs(t, err, ErrExamHasAttempts)

	// The exam is still there.
	_, err = h.svc.Get(ctx, exam.ID)
	assert.NoError(t, err)
}

func TestDeleteUnknownExam(t *testing.T) {
	h := newExamAdminHarness(t)

	err := h.svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestAddQuestionInvalidatesCache(t *testing.T) {
	h := newExamAdminHarness(t)
	ctx := context.Background()

	exam := &model.Exam{ID: uuid.New(), Title: "Chemistry", DurationMinutes: 30}
	h.exams.add(exam)

	q, err := h.svc.AddQuestion(ctx, exam.ID, model.AddQuestionRequest{
		QuestionText:  "Symbol for gold?",
		OptionA:       "Au",
		OptionB:       "Ag",
		OptionC:       "Gd",
		OptionD:       "Go",
		CorrectAnswer: "Au",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, q.ID)
	assert.Equal(t, exam.ID, q.ExamID)
	assert.Contains(t, h.cache.calls, exam.ID)

	listed, err := h.svc.ListQuestions(ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Au", listed[0].CorrectAnswer)
}

func TestAddQuestionUnknownExam(t *testing.T) {
	h := newExamAdminHarness(t)

	_, err := h.svc.AddQuestion(context.Background(), uuid.New(), model.AddQuestionRequest{
		QuestionText:  "orphan",
		OptionA:       "a",
		OptionB:       "b",
		OptionC:       "c",
		OptionD:       "d",
		CorrectAnswer: "a",
	})
	assert.ErrorIs(t, err, ErrExamNotFound)
}

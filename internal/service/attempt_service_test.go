package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veduka/examhall-backend/internal/model"
)

type attemptHarness struct {
	clk       *fakeClock
	attempts  *fakeAttemptStore
	exams     *fakeExamStore
	questions *fakeQuestionSource
	results   *fakeResultStore
	svc       *AttemptService
	exam      *model.Exam
	qs        []model.Question
}

func newAttemptHarness(t *testing.T) *attemptHarness {
	t.Helper()

	h := &attemptHarness{
		clk:       newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		attempts:  newFakeAttemptStore(),
		exams:     newFakeExamStore(),
		questions: newFakeQuestionSource(),
		results:   newFakeResultStore(),
	}

	h.exam = &model.Exam{ID: uuid.New(), Title: "Algebra Midterm", DurationMinutes: 30}
	h.exams.add(h.exam)

	for _, spec := range []struct{ text, correct string }{
		{"What is 2 + 2?", "4"},
		{"What is 3 * 3?", "9"},
		{"What is 10 / 2?", "5"},
	} {
		q := model.Question{
			ID:            uuid.New(),
			ExamID:        h.exam.ID,
			QuestionText:  spec.text,
			OptionA:       spec.correct,
			OptionB:       "1",
			OptionC:       "2",
			OptionD:       "3",
			CorrectAnswer: spec.correct,
		}
		h.questions.add(q)
		h.qs = append(h.qs, q)
	}

	h.svc = NewAttemptService(h.attempts, h.exams, h.questions, h.results, newFakeLocker(), h.clk)
	return h
}

// answersJSON builds a raw answers payload mapping question ids to choices.
func (h *attemptHarness) answersJSON(t *testing.T, picks map[int]string) json.RawMessage {
	t.Helper()
	m := make(map[string]string, len(picks))
	for i, ans := range picks {
		m[h.qs[i].ID.String()] = ans
	}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return raw
}

func TestStartOrResumeCreatesAttemptWithFixedDeadline(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	view, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	assert.Equal(t, model.AttemptStatusActive, view.Status)
	assert.Equal(t, "Algebra Midterm", view.ExamTitle)
	assert.Equal(t, int64(30*60), view.RemainingSeconds)
	assert.Len(t, view.Questions, 3)
	require.NotNil(t, view.EndsAt)
	assert.Equal(t, h.clk.Now().Add(30*time.Minute), *view.EndsAt)

	// Questions are stripped of correct answers.
	for _, q := range view.Questions {
		assert.Len(t, q.Options, 4)
	}
}

func TestStartOrResumeUnknownExam(t *testing.T) {
	h := newAttemptHarness(t)

	_, err := h.svc.StartOrResume(context.Background(), 1, uuid.New())
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestStartOrResumeOutsideWindow(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	opens := h.clk.Now().Add(time.Hour)
	closed := &model.Exam{ID: uuid.New(), Title: "Future Exam", DurationMinutes: 30, WindowStart: &opens}
	h.exams.add(closed)

	_, err := h.svc.StartOrResume(ctx, 1, closed.ID)
	assert.ErrorIs(t, err, ErrExamClosed)
}

func TestConcurrentStartsCreateSingleAttempt(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	const callers = 16
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = view.AttemptID
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "every caller must land on the same attempt")
	}
	assert.Len(t, h.attempts.attempts, 1)
}

func TestResumeRestoresSavedProgress(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	first, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	_, err = h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers:    h.answersJSON(t, map[int]string{0: "4"}),
		Violations: 2,
	})
	require.NoError(t, err)

	h.clk.Advance(10 * time.Minute)

	resumed, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	assert.Equal(t, first.AttemptID, resumed.AttemptID)
	assert.Equal(t, model.AttemptStatusActive, resumed.Status)
	assert.Equal(t, int64(20*60), resumed.RemainingSeconds)
	assert.Equal(t, 2, resumed.Violations)
	assert.Equal(t, "4", resumed.Answers[h.qs[0].ID.String()])
	// The deadline never moves on resume.
	assert.Equal(t, *first.EndsAt, *resumed.EndsAt)
}

func TestResumeAfterDeadlineSettlesAttempt(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	start, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	_, err = h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4", 1: "9"}),
	})
	require.NoError(t, err)

	h.clk.Advance(31 * time.Minute)

	view, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusTerminated, view.Status)
	assert.Empty(t, view.Questions)

	// The expired attempt was graded from its autosaved answers.
	res, err := h.results.GetByAttemptID(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CorrectAnswers)
	assert.Equal(t, 67, res.Score)
	assert.Equal(t, model.AttemptStatusTerminated, res.Status)
	require.NotNil(t, res.SubmissionReason)
	assert.Equal(t, model.ReasonTimeExpired, *res.SubmissionReason)
}

func TestSaveProgressKeepsViolationsMonotone(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	view, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	_, err = h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{Violations: 3})
	require.NoError(t, err)

	// A stale autosave with a lower counter must not regress it.
	ack, err := h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{Violations: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, ack.Violations)

	stored, err := h.attempts.GetByID(ctx, view.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Violations)
}

func TestSaveProgressAfterDeadlineWritesNothing(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	view, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	h.clk.Advance(31 * time.Minute)

	ack, err := h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4"}),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusTerminated, ack.Status)

	stored, err := h.attempts.GetByID(ctx, view.AttemptID)
	require.NoError(t, err)
	assert.Empty(t, stored.Answers, "late autosave must not change stored answers")
}

func TestSaveProgressWithoutAttemptIsSilentNoOp(t *testing.T) {
	h := newAttemptHarness(t)

	// A stale autosave timer can outlive the attempt it belongs to. The save
	// is acknowledged without an error and nothing is created.
	ack, err := h.svc.SaveProgress(context.Background(), 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4"}),
	})
	require.NoError(t, err)
	assert.Equal(t, h.exam.ID, ack.ExamID)
	assert.NotEqual(t, model.AttemptStatusActive, ack.Status)

	_, err = h.attempts.GetByStudentAndExam(context.Background(), 1, h.exam.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestSubmitGradesBySubmittedAnswers(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	res, err := h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers:    h.answersJSON(t, map[int]string{0: "4", 1: "1", 2: "5"}),
		Violations: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AttemptStatusSubmitted, res.Status)
	assert.Equal(t, 2, res.CorrectAnswers)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 67, res.Score)
	assert.Equal(t, 1, res.Violations)
	require.NotNil(t, res.SubmissionReason)
	assert.Equal(t, model.ReasonManualSubmit, *res.SubmissionReason)
}

func TestSubmitIsIdempotent(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	payload := model.SaveProgressRequest{Answers: h.answersJSON(t, map[int]string{0: "4"})}

	first, err := h.svc.Submit(ctx, 1, h.exam.ID, payload)
	require.NoError(t, err)

	// Retried submit with different answers changes nothing.
	second, err := h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4", 1: "9", 2: "5"}),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, 1, h.results.count())
}

func TestConcurrentSubmitsProduceOneResult(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	const callers = 10
	results := make([]*model.Result, callers)
	errs := make([]error, callers)
	payload := h.answersJSON(t, map[int]string{0: "4"})

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{Answers: payload})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.results.count())
	for _, res := range results[1:] {
		assert.Equal(t, results[0].ID, res.ID)
	}
}

func TestLateSubmitTerminatesButKeepsFinalAnswers(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	// One answer autosaved mid-exam; the final payload carries all three.
	_, err = h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4"}),
	})
	require.NoError(t, err)

	h.clk.Advance(31 * time.Minute)

	// The deadline only decides the status; the submitted answers still
	// replace the autosaved snapshot and are the ones graded.
	res, err := h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers:    h.answersJSON(t, map[int]string{0: "4", 1: "9", 2: "5"}),
		Violations: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AttemptStatusTerminated, res.Status)
	assert.Equal(t, 3, res.CorrectAnswers)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, 2, res.Violations)
	require.NotNil(t, res.SubmissionReason)
	assert.Equal(t, model.ReasonTimeExpired, *res.SubmissionReason)
}

func TestSubmitWithoutAttempt(t *testing.T) {
	h := newAttemptHarness(t)

	_, err := h.svc.Submit(context.Background(), 1, h.exam.ID, model.SaveProgressRequest{})
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSubmitEmptyExamScoresZero(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	empty := &model.Exam{ID: uuid.New(), Title: "Draft Exam", DurationMinutes: 10}
	h.exams.add(empty)

	_, err := h.svc.StartOrResume(ctx, 1, empty.ID)
	require.NoError(t, err)

	res, err := h.svc.Submit(ctx, 1, empty.ID, model.SaveProgressRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.TotalQuestions)
}

func TestSubmitMalformedAnswersGradesAsUnanswered(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	res, err := h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: json.RawMessage(`{"broken`),
	})
	require.NoError(t, err, "a malformed payload must not block submission")
	assert.Equal(t, 0, res.CorrectAnswers)
	assert.Equal(t, 0, res.Score)
}

func TestProctorTerminationReasonSurvivesLaterSubmit(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	view, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	reason := model.ReasonProctorViolation
	ok, err := h.attempts.Terminate(ctx, view.AttemptID, &reason)
	require.NoError(t, err)
	require.True(t, ok)

	// The duplicate manual submit arrives after termination; the first
	// reason sticks and the existing terminal state is graded.
	res, err := h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{Reason: model.ReasonManualSubmit})
	require.NoError(t, err)

	assert.Equal(t, model.AttemptStatusTerminated, res.Status)
	require.NotNil(t, res.SubmissionReason)
	assert.Equal(t, model.ReasonProctorViolation, *res.SubmissionReason)
}

func TestSubmitWithProctorReasonStaysSubmitted(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)

	// Status depends on the clock alone; the reason is just recorded.
	res, err := h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4"}),
		Reason:  model.ReasonProctorViolation,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AttemptStatusSubmitted, res.Status)
	require.NotNil(t, res.SubmissionReason)
	assert.Equal(t, model.ReasonProctorViolation, *res.SubmissionReason)
	assert.Equal(t, 1, res.CorrectAnswers)
}

func TestExpireOverdueSweepsAndGrades(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	// Two students start; a third starts later and is still within budget
	// when the sweep runs.
	a1, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)
	a2, err := h.svc.StartOrResume(ctx, 2, h.exam.ID)
	require.NoError(t, err)

	_, err = h.svc.SaveProgress(ctx, 1, h.exam.ID, model.SaveProgressRequest{
		Answers: h.answersJSON(t, map[int]string{0: "4", 1: "9", 2: "5"}),
	})
	require.NoError(t, err)

	h.clk.Advance(25 * time.Minute)
	a3, err := h.svc.StartOrResume(ctx, 3, h.exam.ID)
	require.NoError(t, err)

	h.clk.Advance(6 * time.Minute)

	expired, err := h.svc.ExpireOverdue(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	for _, id := range []uuid.UUID{a1.AttemptID, a2.AttemptID} {
		stored, err := h.attempts.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.AttemptStatusTerminated, stored.Status)

		res, err := h.results.GetByAttemptID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, res.SubmissionReason)
		assert.Equal(t, model.ReasonTimeExpired, *res.SubmissionReason)
	}

	// The abandoned attempt keeps its autosaved progress in the grade.
	res, err := h.results.GetByAttemptID(ctx, a1.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)

	stored, err := h.attempts.GetByID(ctx, a3.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusActive, stored.Status)
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)
	h.clk.Advance(31 * time.Minute)

	first, err := h.svc.ExpireOverdue(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := h.svc.ExpireOverdue(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Equal(t, 1, h.results.count())
}

func TestListCatalogOverlaysAttemptStatus(t *testing.T) {
	h := newAttemptHarness(t)
	ctx := context.Background()

	other := &model.Exam{ID: uuid.New(), Title: "History Final", DurationMinutes: 45}
	h.exams.add(other)

	_, err := h.svc.StartOrResume(ctx, 1, h.exam.ID)
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, 1, h.exam.ID, model.SaveProgressRequest{})
	require.NoError(t, err)

	catalog, err := h.svc.ListCatalog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	byID := make(map[uuid.UUID]model.StudentExamEntry, len(catalog))
	for _, entry := range catalog {
		byID[entry.ExamID] = entry
	}

	taken := byID[h.exam.ID]
	require.NotNil(t, taken.AttemptStatus)
	assert.Equal(t, model.AttemptStatusSubmitted, *taken.AttemptStatus)

	untouched := byID[other.ID]
	assert.Nil(t, untouched.AttemptStatus)
}

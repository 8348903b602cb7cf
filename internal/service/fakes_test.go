package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veduka/examhall-backend/internal/model"
)

// In-memory fakes mirroring the repository semantics: idempotent create,
// guarded terminal transitions, monotone-max violations, first-writer-wins
// reason and write-once results. Tests drive the services against these plus
// a manual clock.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func cloneAttempt(a *model.ExamAttempt) *model.ExamAttempt {
	c := *a
	c.Answers = make(model.AnswerSet, len(a.Answers))
	for k, v := range a.Answers {
		c.Answers[k] = v
	}
	if a.SubmissionReason != nil {
		r := *a.SubmissionReason
		c.SubmissionReason = &r
	}
	c.QuestionOrder = append([]uuid.UUID(nil), a.QuestionOrder...)
	return &c
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.ExamAttempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[uuid.UUID]*model.ExamAttempt)}
}

func (s *fakeAttemptStore) byPair(studentID int, examID uuid.UUID) *model.ExamAttempt {
	for _, a := range s.attempts {
		if a.StudentID == studentID && a.ExamID == examID {
			return a
		}
	}
	return nil
}

func (s *fakeAttemptStore) GetByStudentAndExam(_ context.Context, studentID int, examID uuid.UUID) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.byPair(studentID, examID); a != nil {
		return cloneAttempt(a), nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[id]; ok {
		return cloneAttempt(a), nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeAttemptStore) Create(_ context.Context, a *model.ExamAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byPair(a.StudentID, a.ExamID) != nil {
		// Unique constraint hit; mirrors ON CONFLICT DO NOTHING RETURNING.
		return pgx.ErrNoRows
	}
	a.ID = uuid.New()
	s.attempts[a.ID] = cloneAttempt(a)
	return nil
}

func (s *fakeAttemptStore) SaveProgress(_ context.Context, id uuid.UUID, answers model.AnswerSet, violations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.Status != model.AttemptStatusActive {
		return nil
	}
	a.Answers = make(model.AnswerSet, len(answers))
	for k, v := range answers {
		a.Answers[k] = v
	}
	if violations > a.Violations {
		a.Violations = violations
	}
	return nil
}

func (s *fakeAttemptStore) Finalize(_ context.Context, id uuid.UUID, status model.AttemptStatus, answers model.AnswerSet, violations int, reason *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.Status != model.AttemptStatusActive {
		return false, nil
	}
	a.Status = status
	a.Answers = make(model.AnswerSet, len(answers))
	for k, v := range answers {
		a.Answers[k] = v
	}
	if violations > a.Violations {
		a.Violations = violations
	}
	if a.SubmissionReason == nil && reason != nil {
		r := *reason
		a.SubmissionReason = &r
	}
	return true, nil
}

func (s *fakeAttemptStore) Terminate(_ context.Context, id uuid.UUID, reason *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.Status != model.AttemptStatusActive {
		return false, nil
	}
	a.Status = model.AttemptStatusTerminated
	if a.SubmissionReason == nil && reason != nil {
		r := *reason
		a.SubmissionReason = &r
	}
	return true, nil
}

func (s *fakeAttemptStore) RaiseViolations(_ context.Context, id uuid.UUID, violations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[id]; ok && violations > a.Violations {
		a.Violations = violations
	}
	return nil
}

func (s *fakeAttemptStore) ListByStudent(_ context.Context, studentID int) ([]model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range s.attempts {
		if a.StudentID == studentID {
			out = append(out, *cloneAttempt(a))
		}
	}
	return out, nil
}

func (s *fakeAttemptStore) ListExpiredActive(_ context.Context, before time.Time, limit int) ([]model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range s.attempts {
		if a.Status == model.AttemptStatusActive && a.EndsAt.Before(before) {
			out = append(out, *cloneAttempt(a))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeAttemptStore) CountByExam(_ context.Context, examID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.attempts {
		if a.ExamID == examID {
			n++
		}
	}
	return n, nil
}

func (s *fakeAttemptStore) CountByStudent(_ context.Context, studentID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.attempts {
		if a.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

type fakeExamStore struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{exams: make(map[uuid.UUID]*model.Exam)}
}

func (s *fakeExamStore) add(e *model.Exam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[e.ID] = e
}

func (s *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.exams[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeExamStore) List(_ context.Context) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Exam
	for _, e := range s.exams {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeExamStore) Create(_ context.Context, e *model.Exam) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	s.add(e)
	return nil
}

func (s *fakeExamStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exams, id)
	return nil
}

type fakeQuestionSource struct {
	mu     sync.Mutex
	byExam map[uuid.UUID][]model.Question
}

func newFakeQuestionSource() *fakeQuestionSource {
	return &fakeQuestionSource{byExam: make(map[uuid.UUID][]model.Question)}
}

func (s *fakeQuestionSource) add(q model.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byExam[q.ExamID] = append(s.byExam[q.ExamID], q)
}

func (s *fakeQuestionSource) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Question(nil), s.byExam[examID]...), nil
}

func (s *fakeQuestionSource) Create(_ context.Context, q *model.Question) error {
	q.ID = uuid.New()
	s.add(*q)
	return nil
}

func (s *fakeQuestionSource) CountByExam(_ context.Context, examID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byExam[examID])), nil
}

type fakeResultStore struct {
	mu        sync.Mutex
	byAttempt map[uuid.UUID]*model.Result
	titles    map[uuid.UUID]string
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{
		byAttempt: make(map[uuid.UUID]*model.Result),
		titles:    make(map[uuid.UUID]string),
	}
}

func (s *fakeResultStore) setTitle(examID uuid.UUID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[examID] = title
}

func (s *fakeResultStore) Create(_ context.Context, res *model.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byAttempt[res.AttemptID]; exists {
		return false, nil
	}
	res.ID = uuid.New()
	c := *res
	s.byAttempt[res.AttemptID] = &c
	return true, nil
}

func (s *fakeResultStore) GetByAttemptID(_ context.Context, attemptID uuid.UUID) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.byAttempt[attemptID]; ok {
		c := *r
		return &c, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeResultStore) GetByID(_ context.Context, id uuid.UUID) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byAttempt {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeResultStore) ListByStudent(_ context.Context, studentID int) ([]model.StudentResultEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StudentResultEntry
	for _, r := range s.byAttempt {
		if r.StudentID != studentID {
			continue
		}
		out = append(out, model.StudentResultEntry{
			ResultID:         r.ID,
			ExamID:           r.ExamID,
			ExamTitle:        s.titles[r.ExamID],
			Score:            r.Score,
			TotalQuestions:   r.TotalQuestions,
			CorrectAnswers:   r.CorrectAnswers,
			Violations:       r.Violations,
			Status:           r.Status,
			SubmissionReason: r.SubmissionReason,
			SubmittedAt:      r.SubmittedAt,
		})
	}
	return out, nil
}

func (s *fakeResultStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byAttempt)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (f *fakeInvalidator) Invalidate(_ context.Context, examID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, examID)
	return nil
}

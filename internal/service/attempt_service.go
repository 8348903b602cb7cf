package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veduka/examhall-backend/internal/clock"
	"github.com/veduka/examhall-backend/internal/config"
	"github.com/veduka/examhall-backend/internal/model"
)

// AttemptStore is the persistence surface the lifecycle manager needs.
// *repository.AttemptRepository satisfies it.
type AttemptStore interface {
	GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamAttempt, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	Create(ctx context.Context, a *model.ExamAttempt) error
	SaveProgress(ctx context.Context, id uuid.UUID, answers model.AnswerSet, violations int) error
	Finalize(ctx context.Context, id uuid.UUID, status model.AttemptStatus, answers model.AnswerSet, violations int, reason *string) (bool, error)
	Terminate(ctx context.Context, id uuid.UUID, reason *string) (bool, error)
	RaiseViolations(ctx context.Context, id uuid.UUID, violations int) error
	ListByStudent(ctx context.Context, studentID int) ([]model.ExamAttempt, error)
	ListExpiredActive(ctx context.Context, before time.Time, limit int) ([]model.ExamAttempt, error)
}

// ExamStore is the exam lookup surface. *repository.ExamRepository satisfies it.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
}

// QuestionSource yields an exam's question set. Satisfied by
// *repository.QuestionRepository directly or wrapped in the Redis cache.
type QuestionSource interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// ResultStore is the grading record surface. *repository.ResultRepository
// satisfies it.
type ResultStore interface {
	Create(ctx context.Context, res *model.Result) (bool, error)
	GetByAttemptID(ctx context.Context, attemptID uuid.UUID) (*model.Result, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.StudentResultEntry, error)
}

// Locker serializes a critical section under a named mutex.
// *locker.RedisLocker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// AttemptService owns the attempt lifecycle: start/resume, autosave, submit,
// expiry and grading. Every path that observes an attempt past its deadline
// terminates it in place, so expiry needs no scheduled job to be correct;
// the sweeper only tidies abandoned sessions.
type AttemptService struct {
	attempts  AttemptStore
	exams     ExamStore
	questions QuestionSource
	results   ResultStore
	locker    Locker
	clk       clock.Clock
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attempts AttemptStore, exams ExamStore, questions QuestionSource, results ResultStore, locker Locker, clk clock.Clock) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		exams:     exams,
		questions: questions,
		results:   results,
		locker:    locker,
		clk:       clk,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// ListCatalog returns every exam overlaid with the student's attempt status.
func (s *AttemptService) ListCatalog(ctx context.Context, studentID int) ([]model.StudentExamEntry, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	attempts, err := s.attempts.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	statusByExam := make(map[uuid.UUID]model.AttemptStatus, len(attempts))
	for _, a := range attempts {
		statusByExam[a.ExamID] = a.Status
	}

	entries := make([]model.StudentExamEntry, 0, len(exams))
	for _, e := range exams {
		entry := model.StudentExamEntry{
			ExamID:          e.ID,
			Title:           e.Title,
			DurationMinutes: e.DurationMinutes,
		}
		if status, ok := statusByExam[e.ID]; ok {
			entry.AttemptStatus = &status
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StartOrResume is the single entry point into an attempt. It creates the
// attempt on first call and resumes the existing one on every later call;
// the per-(student, exam) lock plus the idempotent insert guarantee at most
// one attempt row ever exists for the pair, no matter how many tabs race.
func (s *AttemptService) StartOrResume(ctx context.Context, studentID int, examID uuid.UUID) (*model.AttemptView, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	var view *model.AttemptView
	err = s.locker.WithLock(ctx, config.CacheKey.AttemptStartLockKey(studentID, examID.String()), func(ctx context.Context) error {
		attempt, err := s.attempts.GetByStudentAndExam(ctx, studentID, examID)
		switch {
		case err == nil:
		case errors.Is(err, pgx.ErrNoRows):
			attempt, err = s.createAttempt(ctx, studentID, exam)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		view, err = s.buildView(ctx, exam, attempt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *AttemptService) createAttempt(ctx context.Context, studentID int, exam *model.Exam) (*model.ExamAttempt, error) {
	now := s.clk.Now()
	if exam.WindowStart != nil && now.Before(*exam.WindowStart) {
		return nil, ErrExamClosed
	}
	if exam.WindowEnd != nil && now.After(*exam.WindowEnd) {
		return nil, ErrExamClosed
	}

	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	order := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		order[i] = q.ID
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	attempt := &model.ExamAttempt{
		StudentID:     studentID,
		ExamID:        exam.ID,
		Status:        model.AttemptStatusActive,
		StartedAt:     now,
		EndsAt:        now.Add(exam.Duration()),
		Answers:       model.AnswerSet{},
		QuestionOrder: order,
	}

	err = s.attempts.Create(ctx, attempt)
	if err == nil {
		return attempt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	// Insert hit the unique constraint: a concurrent start won (possible when
	// the lock lease expired mid-flight). Resume the winner's attempt.
	existing, err := s.attempts.GetByStudentAndExam(ctx, studentID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch attempt after create race: %w", err)
	}
	return existing, nil
}

// buildView settles expiry and grading for the observed attempt, then shapes
// the response. A live attempt gets its questions in the attempt's stored
// display order plus the saved answers; a terminal one gets status only.
func (s *AttemptService) buildView(ctx context.Context, exam *model.Exam, attempt *model.ExamAttempt) (*model.AttemptView, error) {
	now := s.clk.Now()

	if !attempt.Terminal() && attempt.Expired(now) {
		expired, err := s.expireNow(ctx, attempt)
		if err != nil {
			return nil, err
		}
		attempt = expired
	}

	if attempt.Terminal() {
		// Grading is normally done by whoever finalized the attempt; doing it
		// again here recovers attempts that crashed between the status write
		// and the result insert, and is a no-op otherwise.
		if _, err := s.ensureGraded(ctx, attempt); err != nil {
			return nil, err
		}
		return &model.AttemptView{
			AttemptID:  attempt.ID,
			ExamID:     attempt.ExamID,
			ExamTitle:  exam.Title,
			Status:     attempt.Status,
			Violations: attempt.Violations,
		}, nil
	}

	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	ordered := orderQuestions(questions, attempt.QuestionOrder)

	forStudent := make([]model.QuestionForStudent, len(ordered))
	for i := range ordered {
		forStudent[i] = ordered[i].ForStudent()
	}

	endsAt := attempt.EndsAt
	return &model.AttemptView{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		ExamTitle:        exam.Title,
		Status:           attempt.Status,
		DurationMinutes:  exam.DurationMinutes,
		EndsAt:           &endsAt,
		RemainingSeconds: attempt.RemainingSeconds(now),
		Violations:       attempt.Violations,
		Answers:          attempt.Answers,
		Questions:        forStudent,
	}, nil
}

// SaveProgress autosaves answers and the violation counter for a live
// attempt. Saves against a terminal or expired attempt, or with no attempt
// at all, are acknowledged without writing answers; the returned view
// carries the authoritative status so the client can stop the session.
// Autosave fires on a timer, so a stale client must never see an error.
func (s *AttemptService) SaveProgress(ctx context.Context, studentID int, examID uuid.UUID, req model.SaveProgressRequest) (*model.AttemptView, error) {
	attempt, err := s.attempts.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.AttemptView{ExamID: examID}, nil
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	now := s.clk.Now()

	if !attempt.Terminal() && attempt.Expired(now) {
		if attempt, err = s.expireNow(ctx, attempt); err != nil {
			return nil, err
		}
		if _, err = s.ensureGraded(ctx, attempt); err != nil {
			return nil, err
		}
	}

	if attempt.Terminal() {
		return &model.AttemptView{
			AttemptID:  attempt.ID,
			ExamID:     attempt.ExamID,
			Status:     attempt.Status,
			Violations: attempt.Violations,
		}, nil
	}

	answers := model.ParseAnswerSet(req.Answers)
	if err := s.attempts.SaveProgress(ctx, attempt.ID, answers, req.Violations); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	violations := attempt.Violations
	if req.Violations > violations {
		violations = req.Violations
	}
	return &model.AttemptView{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		Status:           attempt.Status,
		RemainingSeconds: attempt.RemainingSeconds(now),
		Violations:       violations,
	}, nil
}

// Submit finalizes an attempt and returns its grading record. The submitted
// answers and violations always persist; only the status depends on the
// clock: SUBMITTED on time, TERMINATED with reason TIME_EXPIRED past the
// deadline. Submitting an already-terminal attempt just returns the existing
// result, so client retries are safe.
func (s *AttemptService) Submit(ctx context.Context, studentID int, examID uuid.UUID, req model.SaveProgressRequest) (*model.Result, error) {
	attempt, err := s.attempts.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Terminal() {
		return s.ensureGraded(ctx, attempt)
	}

	status := model.AttemptStatusSubmitted
	reason := req.Reason
	if reason == "" {
		reason = model.ReasonManualSubmit
	}
	if attempt.Expired(s.clk.Now()) {
		status = model.AttemptStatusTerminated
		reason = model.ReasonTimeExpired
	}

	answers := model.ParseAnswerSet(req.Answers)
	if _, err := s.attempts.Finalize(ctx, attempt.ID, status, answers, req.Violations, &reason); err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}

	// Re-read the row: if a concurrent submit won the transition, its
	// answers and reason are the ones that stick.
	final, err := s.attempts.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}
	return s.ensureGraded(ctx, final)
}

// ExpireOverdue terminates and grades ACTIVE attempts whose deadline passed.
// Called periodically by the sweeper worker; every step is idempotent, so
// overlapping sweeps or a concurrent lazy expiry are harmless.
func (s *AttemptService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.attempts.ListExpiredActive(ctx, s.clk.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired attempts: %w", err)
	}

	expired := 0
	for i := range overdue {
		attempt, err := s.expireNow(ctx, &overdue[i])
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", overdue[i].ID.String()).Msg("Failed to expire attempt")
			continue
		}
		if _, err := s.ensureGraded(ctx, attempt); err != nil {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to grade expired attempt")
			continue
		}
		expired++
	}
	return expired, nil
}

// expireNow terminates an attempt that was observed past its deadline and
// returns the stored row. The guarded update means a concurrent finalizer
// simply wins; the reload reflects whoever got there first.
func (s *AttemptService) expireNow(ctx context.Context, attempt *model.ExamAttempt) (*model.ExamAttempt, error) {
	reason := model.ReasonTimeExpired
	if _, err := s.attempts.Terminate(ctx, attempt.ID, &reason); err != nil {
		return nil, fmt.Errorf("failed to terminate attempt: %w", err)
	}
	final, err := s.attempts.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}
	return final, nil
}

// ensureGraded returns the attempt's result, grading it first if no result
// exists yet. The write-once insert makes this safe to call from every
// finalization path: exactly one result row survives however many callers
// race, and an attempt that crashed after its status write still gets graded
// on the next observation.
func (s *AttemptService) ensureGraded(ctx context.Context, attempt *model.ExamAttempt) (*model.Result, error) {
	existing, err := s.results.GetByAttemptID(ctx, attempt.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	correct := CountCorrect(attempt.Answers, questions)
	result := &model.Result{
		AttemptID:        attempt.ID,
		StudentID:        attempt.StudentID,
		ExamID:           attempt.ExamID,
		Score:            ScorePercent(correct, len(questions)),
		TotalQuestions:   len(questions),
		CorrectAnswers:   correct,
		Violations:       attempt.Violations,
		Status:           attempt.Status,
		SubmissionReason: attempt.SubmissionReason,
		SubmittedAt:      s.clk.Now(),
	}

	inserted, err := s.results.Create(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to create result: %w", err)
	}
	if !inserted {
		// A concurrent grader got there first; theirs is the record.
		return s.results.GetByAttemptID(ctx, attempt.ID)
	}
	return result, nil
}

// orderQuestions arranges questions in the attempt's stored display order.
// Questions added to the exam after the attempt started trail at the end;
// ids that no longer resolve are skipped.
func orderQuestions(questions []model.Question, order []uuid.UUID) []model.Question {
	if len(order) == 0 {
		return questions
	}

	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ordered := make([]model.Question, 0, len(questions))
	seen := make(map[uuid.UUID]bool, len(order))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
			seen[id] = true
		}
	}
	for _, q := range questions {
		if !seen[q.ID] {
			ordered = append(ordered, q)
		}
	}
	return ordered
}

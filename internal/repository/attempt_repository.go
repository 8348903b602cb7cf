package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veduka/examhall-backend/internal/model"
)

// AttemptRepository handles exam attempt data access. The unique
// (student_id, exam_id) constraint plus the idempotent Create make duplicate
// attempt rows impossible even under concurrent starts; guarded UPDATEs keep
// status transitions monotonic.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, student_id, exam_id, status, started_at, ends_at,
	answers, violations, submission_reason, question_order`

// GetByStudentAndExam retrieves the attempt for a (student, exam) pair.
func (r *AttemptRepository) GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE student_id = $1 AND exam_id = $2`, studentID, examID,
	).Scan(&a.ID, &a.StudentID, &a.ExamID, &a.Status, &a.StartedAt, &a.EndsAt,
		&a.Answers, &a.Violations, &a.SubmissionReason, &a.QuestionOrder)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.StudentID, &a.ExamID, &a.Status, &a.StartedAt, &a.EndsAt,
		&a.Answers, &a.Violations, &a.SubmissionReason, &a.QuestionOrder)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new ACTIVE attempt. ON CONFLICT DO NOTHING collapses the
// check-then-create into one atomic statement: a concurrent duplicate start
// surfaces as pgx.ErrNoRows from the RETURNING clause, and the caller
// re-fetches the winner's row instead of failing.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts
		   (student_id, exam_id, status, started_at, ends_at, answers, violations, question_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (student_id, exam_id) DO NOTHING
		 RETURNING id`,
		a.StudentID, a.ExamID, a.Status, a.StartedAt, a.EndsAt,
		a.Answers, a.Violations, a.QuestionOrder,
	).Scan(&a.ID)
}

// SaveProgress replaces the answers and raises the violations counter for an
// ACTIVE attempt. The GREATEST merge keeps violations monotone even when
// autosaves arrive out of order. A terminal attempt is silently untouched.
func (r *AttemptRepository) SaveProgress(ctx context.Context, id uuid.UUID, answers model.AnswerSet, violations int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET answers = $2, violations = GREATEST(violations, $3)
		 WHERE id = $1 AND status = $4`,
		id, answers, violations, model.AttemptStatusActive)
	return err
}

// Finalize moves an ACTIVE attempt into a terminal state with its final
// answers. submission_reason is first-writer-wins via COALESCE. Returns
// false when the attempt was already terminal (the transition did not run).
func (r *AttemptRepository) Finalize(ctx context.Context, id uuid.UUID, status model.AttemptStatus, answers model.AnswerSet, violations int, reason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $2,
		     answers = $3,
		     violations = GREATEST(violations, $4),
		     submission_reason = COALESCE(submission_reason, $5)
		 WHERE id = $1 AND status = $6`,
		id, status, answers, violations, reason, model.AttemptStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Terminate expires an ACTIVE attempt in place, keeping its stored answers.
// Used by lazy expiry and the sweeper; a no-op on terminal attempts.
func (r *AttemptRepository) Terminate(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $2, submission_reason = COALESCE(submission_reason, $3)
		 WHERE id = $1 AND status = $4`,
		id, model.AttemptStatusTerminated, reason, model.AttemptStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RaiseViolations lifts the violations counter to at least the given value.
func (r *AttemptRepository) RaiseViolations(ctx context.Context, id uuid.UUID, violations int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET violations = GREATEST(violations, $2) WHERE id = $1`,
		id, violations)
	return err
}

// ListByStudent retrieves all attempts for a student.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.Status, &a.StartedAt, &a.EndsAt,
			&a.Answers, &a.Violations, &a.SubmissionReason, &a.QuestionOrder); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListExpiredActive retrieves ACTIVE attempts whose deadline passed before
// the given instant. Used by the expiry sweeper so abandoned sessions do not
// stay ACTIVE in storage forever.
func (r *AttemptRepository) ListExpiredActive(ctx context.Context, before time.Time, limit int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE status = $1 AND ends_at < $2
		 ORDER BY ends_at
		 LIMIT $3`, model.AttemptStatusActive, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.Status, &a.StartedAt, &a.EndsAt,
			&a.Answers, &a.Violations, &a.SubmissionReason, &a.QuestionOrder); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountByExam returns how many attempts reference an exam (admin delete guard).
func (r *AttemptRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1`, examID,
	).Scan(&count)
	return count, err
}

// CountByStudent returns how many attempts reference a student (delete guard).
func (r *AttemptRepository) CountByStudent(ctx context.Context, studentID int) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE student_id = $1`, studentID,
	).Scan(&count)
	return count, err
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veduka/examhall-backend/internal/model"
)

// ResultRepository handles grading record data access. The unique attempt_id
// column is the at-most-one-grading gate; rows are never updated.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a grading record. A concurrent or repeated grading of the
// same attempt is absorbed by ON CONFLICT DO NOTHING: the first writer wins
// and the score can never change afterwards. Returns false when a result for
// the attempt already existed.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO results
		   (attempt_id, student_id, exam_id, score, total_questions, correct_answers,
		    violations, status, submission_reason, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (attempt_id) DO NOTHING`,
		res.AttemptID, res.StudentID, res.ExamID, res.Score, res.TotalQuestions,
		res.CorrectAnswers, res.Violations, res.Status, res.SubmissionReason, res.SubmittedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const resultColumns = `id, attempt_id, student_id, exam_id, score, total_questions,
	correct_answers, violations, status, submission_reason, submitted_at`

// GetByID retrieves a result by id.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = $1`, id,
	).Scan(&res.ID, &res.AttemptID, &res.StudentID, &res.ExamID, &res.Score,
		&res.TotalQuestions, &res.CorrectAnswers, &res.Violations,
		&res.Status, &res.SubmissionReason, &res.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByAttemptID retrieves the result graded for an attempt, if any.
func (r *ResultRepository) GetByAttemptID(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results WHERE attempt_id = $1`, attemptID,
	).Scan(&res.ID, &res.AttemptID, &res.StudentID, &res.ExamID, &res.Score,
		&res.TotalQuestions, &res.CorrectAnswers, &res.Violations,
		&res.Status, &res.SubmissionReason, &res.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListByStudent retrieves a student's result history with exam titles,
// newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.StudentResultEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.exam_id, e.title, r.score, r.total_questions, r.correct_answers,
		        r.violations, r.status, r.submission_reason, r.submitted_at
		 FROM results r
		 JOIN exams e ON r.exam_id = e.id
		 WHERE r.student_id = $1
		 ORDER BY r.submitted_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.StudentResultEntry
	for rows.Next() {
		var entry model.StudentResultEntry
		if err := rows.Scan(&entry.ResultID, &entry.ExamID, &entry.ExamTitle, &entry.Score,
			&entry.TotalQuestions, &entry.CorrectAnswers, &entry.Violations,
			&entry.Status, &entry.SubmissionReason, &entry.SubmittedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veduka/examhall-backend/internal/model"
)

// DashboardRepository handles the aggregate queries behind the admin
// overview. These share tables with the lifecycle manager but are read-only.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts returns platform-wide totals in one round trip.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (students, exams, attempts, activeAttempts int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users WHERE role = $1),
		   (SELECT COUNT(*) FROM exams),
		   (SELECT COUNT(*) FROM exam_attempts),
		   (SELECT COUNT(*) FROM exam_attempts WHERE status = $2)`,
		model.RoleStudent, model.AttemptStatusActive,
	).Scan(&students, &exams, &attempts, &activeAttempts)
	return
}

// GetScoreAggregates returns the average score and the pass rate across all
// results. Both are 0 when no results exist.
func (r *DashboardRepository) GetScoreAggregates(ctx context.Context) (averageScore, passRate float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
		   COALESCE(AVG(score), 0),
		   COALESCE(SUM(CASE WHEN score >= $1 THEN 1 ELSE 0 END) * 100.0 / NULLIF(COUNT(*), 0), 0)
		 FROM results`, model.PassThresholdPercent,
	).Scan(&averageScore, &passRate)
	return
}

// AdminResultRow is one row of the admin-wide result listing.
type AdminResultRow struct {
	ResultID     string `json:"result_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	ExamTitle    string `json:"exam_title"`
	Score        int    `json:"score"`
	Violations   int    `json:"violations"`
	Status       string `json:"status"`
	SubmittedAt  string `json:"submitted_at"`
}

// ListAllResults retrieves every result joined with its student and exam.
func (r *DashboardRepository) ListAllResults(ctx context.Context) ([]AdminResultRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, u.name, u.email, e.title, r.score, r.violations, r.status,
		        to_char(r.submitted_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		 FROM results r
		 JOIN users u ON r.student_id = u.id
		 JOIN exams e ON r.exam_id = e.id
		 ORDER BY r.submitted_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []AdminResultRow
	for rows.Next() {
		var row AdminResultRow
		if err := rows.Scan(&row.ResultID, &row.StudentName, &row.StudentEmail, &row.ExamTitle,
			&row.Score, &row.Violations, &row.Status, &row.SubmittedAt); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

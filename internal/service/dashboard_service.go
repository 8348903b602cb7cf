package service

import (
	"context"
	"fmt"

	"github.com/veduka/examhall-backend/internal/repository"
)

// AdminOverview is the platform-wide snapshot shown on the admin dashboard.
type AdminOverview struct {
	TotalStudents  int     `json:"total_students"`
	TotalExams     int     `json:"total_exams"`
	TotalAttempts  int     `json:"total_attempts"`
	ActiveAttempts int     `json:"active_attempts"`
	AverageScore   float64 `json:"average_score"`
	PassRate       float64 `json:"pass_rate"`
}

// DashboardService serves admin-wide aggregates. It reads the repository
// directly: these are SQL aggregate queries with no business rules on top.
type DashboardService struct {
	dashboards *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(dashboards *repository.DashboardRepository) *DashboardService {
	return &DashboardService{dashboards: dashboards}
}

// Overview returns platform-wide counts and score aggregates.
func (s *DashboardService) Overview(ctx context.Context) (*AdminOverview, error) {
	students, exams, attempts, active, err := s.dashboards.GetSummaryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary counts: %w", err)
	}

	avg, passRate, err := s.dashboards.GetScoreAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get score aggregates: %w", err)
	}

	return &AdminOverview{
		TotalStudents:  students,
		TotalExams:     exams,
		TotalAttempts:  attempts,
		ActiveAttempts: active,
		AverageScore:   avg,
		PassRate:       passRate,
	}, nil
}

// ListAllResults returns every result joined with student and exam details.
func (s *DashboardService) ListAllResults(ctx context.Context) ([]repository.AdminResultRow, error) {
	rows, err := s.dashboards.ListAllResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return rows, nil
}

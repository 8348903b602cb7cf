package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/veduka/examhall-backend/internal/clock"
	"github.com/veduka/examhall-backend/internal/config"
	"github.com/veduka/examhall-backend/internal/model"
)

// ProctorService ingests proctoring flags (tab switch, fullscreen exit, ...)
// reported during a live attempt. The violation counter is raised
// synchronously with a monotone-max merge; the event record itself is queued
// to Redis and batch-persisted by the proctor worker so the hot path never
// waits on an insert.
type ProctorService struct {
	rdb      *redis.Client
	attempts AttemptStore
	clk      clock.Clock
}

// NewProctorService creates a new ProctorService.
func NewProctorService(rdb *redis.Client, attempts AttemptStore, clk clock.Clock) *ProctorService {
	return &ProctorService{rdb: rdb, attempts: attempts, clk: clk}
}

// Report records a proctor event against the student's attempt. Events
// against a terminal attempt are acknowledged but dropped; the session is
// already settled and its counters frozen.
func (s *ProctorService) Report(ctx context.Context, studentID int, examID uuid.UUID, req model.ReportEventRequest) (*model.AttemptView, error) {
	attempt, err := s.attempts.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Terminal() {
		return &model.AttemptView{
			AttemptID:  attempt.ID,
			ExamID:     attempt.ExamID,
			Status:     attempt.Status,
			Violations: attempt.Violations,
		}, nil
	}

	if err := s.attempts.RaiseViolations(ctx, attempt.ID, req.Violations); err != nil {
		return nil, fmt.Errorf("failed to raise violations: %w", err)
	}

	event := model.QueuedProctorEvent{
		AttemptID:  attempt.ID,
		StudentID:  studentID,
		ExamID:     examID,
		EventType:  req.EventType,
		Payload:    req.Payload,
		Violations: req.Violations,
		RecordedAt: s.clk.Now().Unix(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.ProctorEventsQueue, data).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue event: %w", err)
	}

	violations := attempt.Violations
	if req.Violations > violations {
		violations = req.Violations
	}
	return &model.AttemptView{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		Status:           attempt.Status,
		RemainingSeconds: attempt.RemainingSeconds(s.clk.Now()),
		Violations:       violations,
	}, nil
}

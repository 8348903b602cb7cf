package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/veduka/examhall-backend/internal/model"
)

// StudentAttemptCounter reports how many attempts reference a student.
type StudentAttemptCounter interface {
	CountByStudent(ctx context.Context, studentID int) (int64, error)
}

// StudentService owns admin-side student account management. Like exams,
// students with exam history cannot be deleted.
type StudentService struct {
	users    UserStore
	attempts StudentAttemptCounter
	auth     *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(users UserStore, attempts StudentAttemptCounter, auth *AuthService) *StudentService {
	return &StudentService{users: users, attempts: attempts, auth: auth}
}

// List returns all student accounts ordered by name.
func (s *StudentService) List(ctx context.Context) ([]model.User, error) {
	students, err := s.users.ListByRole(ctx, model.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// Get returns one student account.
func (s *StudentService) Get(ctx context.Context, id int) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if user.Role != model.RoleStudent {
		return nil, ErrStudentNotFound
	}
	return user, nil
}

// Create registers a student account on behalf of an admin.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (*model.User, error) {
	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleStudent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return user, nil
}

// Update changes a student's name and email.
func (s *StudentService) Update(ctx context.Context, id int, req model.UpdateStudentRequest) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != user.Email {
		_, err := s.users.GetByEmail(ctx, req.Email)
		if err == nil {
			return nil, ErrEmailTaken
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	if err := s.users.Update(ctx, id, req.Name, req.Email); err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}
	user.Name = req.Name
	user.Email = req.Email
	return user, nil
}

// Delete removes a student who has never taken an exam. Any attempt blocks
// the deletion so results stay attributable.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.attempts.CountByStudent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if count > 0 {
		return ErrStudentHasAttempts
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	// Drop any live session so a deleted account cannot keep acting.
	if err := s.auth.Logout(ctx, id); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

package service

import "errors"

// Sentinel errors shared across services. Handlers map these to response
// codes with errors.Is.
var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrResultNotFound  = errors.New("result not found")
	ErrStudentNotFound = errors.New("student not found")

	// ErrNotResultOwner is returned when a student reads a result that
	// belongs to a different student.
	ErrNotResultOwner = errors.New("result belongs to another student")

	// Referential delete guards: an exam or student with attempts can
	// never be removed, which also keeps attempts and results resolvable
	// for review forever.
	ErrExamHasAttempts    = errors.New("exam has existing attempts")
	ErrStudentHasAttempts = errors.New("student has existing attempts")

	// ErrExamClosed means the exam's availability window does not admit a
	// new attempt right now. Resuming an existing attempt is unaffected.
	ErrExamClosed = errors.New("exam is not open for new attempts")

	ErrEmailTaken = errors.New("email already registered")
)

package service

import (
	"errors"
	"fmt"

	"alcyxob/classroom-app/internal/repository"
)

// Error kinds. Every error returned by this package wraps exactly one of them,
// so callers classify with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrForbidden           = errors.New("not authorized")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSubmission = errors.New("submission already exists for this student")
	ErrConflict            = errors.New("conflict")
	ErrPersistence         = errors.New("persistence failure")
	ErrStorageUnavailable  = errors.New("file storage is not configured")
)

// Specific errors, kept for readable messages.
var (
	ErrUserAlreadyExists    = fmt.Errorf("%w: user with this email already exists", ErrConflict)
	ErrAlreadyEnrolled      = fmt.Errorf("%w: student is already enrolled in this class", ErrConflict)
	ErrAuthenticationFailed = fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	ErrAssignmentNotFound   = fmt.Errorf("%w: assignment not found", ErrNotFound)
	ErrClassNotFound        = fmt.Errorf("%w: class not found", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrSubmissionNotFound   = fmt.Errorf("%w: submission not found", ErrNotFound)
	ErrNotEnrolled          = fmt.Errorf("%w: student is not enrolled in this class", ErrNotFound)
	ErrSubmissionEvaluated  = fmt.Errorf("%w: submission already evaluated", ErrValidation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate maps a repository error onto the service taxonomy.
// notFound is returned for repository.ErrNotFound; unknown errors become ErrPersistence.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateSubmission), errors.Is(err, ErrPersistence):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
}

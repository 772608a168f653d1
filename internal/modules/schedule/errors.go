package schedule

import (
	"errors"
	"fmt"

	"driveschool/internal/domain"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrInstructorInactive = errors.New("instructor is not accepting bookings")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrResourceBusy       = errors.New("resource is locked by a booking in progress")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrInvalidTransition  = errors.New("invalid lesson status transition")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
)

// ConflictError carries the active lessons that block the requested
// window, for diagnostic display by the caller.
type ConflictError struct {
	Kind      domain.ResourceKind
	Conflicts []domain.Lesson
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %d overlapping lesson(s)", e.Kind, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error { return ErrSchedulingConflict }

package schedule

import (
	"context"
	"errors"
	"time"

	"driveschool/internal/domain"

	"gorm.io/gorm"
)

// Checker answers "is this resource free in this window" without writing
// anything. The booking write path re-runs the same check inside its
// transaction; this read-only form exists for diagnostics and pre-checks.
type Checker struct {
	lessons   LessonRepository
	directory DirectoryRepository
}

func NewChecker(lessons LessonRepository, directory DirectoryRepository) *Checker {
	return &Checker{lessons: lessons, directory: directory}
}

// FindConflicts returns the active lessons of the resource on the date
// that overlap the slot. A missing resource is an error, never "available".
func (c *Checker) FindConflicts(ctx context.Context, kind domain.ResourceKind, resourceID int64, date time.Time, slot domain.TimeSlot, excludeLessonID int64) ([]domain.Lesson, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	if err := c.EnsureResource(ctx, kind, resourceID); err != nil {
		return nil, err
	}

	existing, err := c.lessons.ListActiveForResource(ctx, kind, resourceID, date, excludeLessonID)
	if err != nil {
		return nil, err
	}

	var conflicts []domain.Lesson
	for _, l := range existing {
		if domain.Overlaps(slot, l.Slot()) {
			conflicts = append(conflicts, l)
		}
	}
	return conflicts, nil
}

func (c *Checker) IsAvailable(ctx context.Context, kind domain.ResourceKind, resourceID int64, date time.Time, slot domain.TimeSlot, excludeLessonID int64) (bool, error) {
	conflicts, err := c.FindConflicts(ctx, kind, resourceID, date, slot, excludeLessonID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// EnsureResource verifies the resource id exists in the directory.
func (c *Checker) EnsureResource(ctx context.Context, kind domain.ResourceKind, resourceID int64) error {
	switch kind {
	case domain.ResourceInstructor:
		if _, err := c.directory.InstructorByID(ctx, resourceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResourceNotFound
			}
			return err
		}
		return nil
	case domain.ResourceVehicle:
		ok, err := c.directory.VehicleExists(ctx, resourceID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrResourceNotFound
		}
		return nil
	default:
		return ErrValidation
	}
}

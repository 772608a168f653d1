package schedule

import (
	"context"
	"time"

	"driveschool/internal/domain"
)

// LessonRepository defines the lesson persistence operations the
// scheduling core needs.
type LessonRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Lesson, error)
	ListActiveForResource(ctx context.Context, kind domain.ResourceKind, resourceID int64, date time.Time, excludeID int64) ([]domain.Lesson, error)
	ListForResourceDay(ctx context.Context, kind domain.ResourceKind, resourceID int64, date time.Time) ([]domain.Lesson, error)
	CreateChecked(ctx context.Context, l *domain.Lesson, excludeID int64) (domain.ResourceKind, []domain.Lesson, error)
	CreateReplacement(ctx context.Context, l *domain.Lesson, originalID int64) (domain.ResourceKind, []domain.Lesson, error)
	TransitionStatus(ctx context.Context, id int64, from, to domain.LessonStatus, extra map[string]any) (bool, error)
	InstructorStats(ctx context.Context, instructorID int64) (*domain.InstructorStats, error)
}

// DirectoryRepository is the read-only lookup into entities owned by the
// CRUD layer.
type DirectoryRepository interface {
	StudentExists(ctx context.Context, id int64) (bool, error)
	InstructorByID(ctx context.Context, id int64) (*domain.Instructor, error)
	VehicleExists(ctx context.Context, id int64) (bool, error)
	CourseExists(ctx context.Context, id int64) (bool, error)
}

// NotificationSender is invoked best-effort after lifecycle events;
// delivery is someone else's problem.
type NotificationSender interface {
	NotifyLessonBooked(ctx context.Context, studentID, lessonID int64, start time.Time) error
	NotifyLessonCancelled(ctx context.Context, studentID, lessonID int64, reason string) error
	NotifyLessonCompleted(ctx context.Context, studentID, lessonID int64) error
}

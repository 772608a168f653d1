package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"driveschool/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonRepository struct {
	db *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

type lessonModel struct {
	ID                 int64      `gorm:"column:id;primaryKey"`
	StudentID          int64      `gorm:"column:student_id;index"`
	InstructorID       int64      `gorm:"column:instructor_id;index:idx_lessons_instructor_day"`
	VehicleID          *int64     `gorm:"column:vehicle_id;index:idx_lessons_vehicle_day"`
	CourseID           *int64     `gorm:"column:course_id"`
	Date               time.Time  `gorm:"column:date;index:idx_lessons_instructor_day;index:idx_lessons_vehicle_day"`
	StartTime          time.Time  `gorm:"column:start_time"`
	EndTime            time.Time  `gorm:"column:end_time"`
	Status             string     `gorm:"column:status;index"`
	Notes              *string    `gorm:"column:notes"`
	Rating             *int       `gorm:"column:rating"`
	PickupLocation     *string    `gorm:"column:pickup_location"`
	DropoffLocation    *string    `gorm:"column:dropoff_location"`
	CancellationReason *string    `gorm:"column:cancellation_reason"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
}

func (lessonModel) TableName() string { return "lessons" }

func toDomainLesson(m lessonModel) *domain.Lesson {
	return &domain.Lesson{
		ID:                 m.ID,
		StudentID:          m.StudentID,
		InstructorID:       m.InstructorID,
		VehicleID:          m.VehicleID,
		CourseID:           m.CourseID,
		Date:               m.Date,
		StartTime:          m.StartTime,
		EndTime:            m.EndTime,
		Status:             domain.LessonStatus(m.Status),
		Notes:              strOrEmpty(m.Notes),
		Rating:             m.Rating,
		PickupLocation:     strOrEmpty(m.PickupLocation),
		DropoffLocation:    strOrEmpty(m.DropoffLocation),
		CancellationReason: strOrEmpty(m.CancellationReason),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		CancelledAt:        m.CancelledAt,
	}
}

func toLessonModel(l *domain.Lesson) lessonModel {
	return lessonModel{
		ID:                 l.ID,
		StudentID:          l.StudentID,
		InstructorID:       l.InstructorID,
		VehicleID:          l.VehicleID,
		CourseID:           l.CourseID,
		Date:               l.Date,
		StartTime:          l.StartTime,
		EndTime:            l.EndTime,
		Status:             string(l.Status),
		Notes:              strPtr(l.Notes),
		Rating:             l.Rating,
		PickupLocation:     strPtr(l.PickupLocation),
		DropoffLocation:    strPtr(l.DropoffLocation),
		CancellationReason: strPtr(l.CancellationReason),
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
		CancelledAt:        l.CancelledAt,
	}
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func resourceColumn(kind domain.ResourceKind) (string, error) {
	switch kind {
	case domain.ResourceInstructor:
		return "instructor_id", nil
	case domain.ResourceVehicle:
		return "vehicle_id", nil
	default:
		return "", errors.New("repository: unknown resource kind " + string(kind))
	}
}

func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*domain.Lesson, error) {
	var m lessonModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainLesson(m), nil
}

// ListActiveForResource returns the resource's lessons on the given date
// whose status still counts toward conflicts. excludeID skips a lesson
// when an existing booking is re-validated against itself.
func (r *LessonRepository) ListActiveForResource(ctx context.Context, kind domain.ResourceKind, resourceID int64, date time.Time, excludeID int64) ([]domain.Lesson, error) {
	return listActive(r.db.WithContext(ctx), kind, resourceID, date, excludeID, false)
}

func (r *LessonRepository) ListForResourceDay(ctx context.Context, kind domain.ResourceKind, resourceID int64, date time.Time) ([]domain.Lesson, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}

	var models []lessonModel
	tx := r.db.WithContext(ctx).
		Where(col+" = ? AND date = ?", resourceID, date).
		Order("start_time").
		Find(&models)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Lesson, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainLesson(m))
	}
	return out, nil
}

func listActive(db *gorm.DB, kind domain.ResourceKind, resourceID int64, date time.Time, excludeID int64, forUpdate bool) ([]domain.Lesson, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}

	statuses := make([]string, 0, len(domain.ActiveLessonStatuses))
	for _, s := range domain.ActiveLessonStatuses {
		statuses = append(statuses, string(s))
	}

	q := db.Where(col+" = ? AND date = ? AND status IN ?", resourceID, date, statuses)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var models []lessonModel
	if err := q.Order("start_time").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Lesson, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainLesson(m))
	}
	return out, nil
}

var errBookingConflict = errors.New("repository: booking conflict")

// ErrOriginalChanged reports that the lesson a replacement was booked
// against left the scheduled state first.
var ErrOriginalChanged = errors.New("repository: original lesson no longer scheduled")

// CreateChecked re-runs the overlap check with the existing rows locked
// and inserts the lesson in the same transaction, so a concurrent insert
// for the same resource cannot slip between check and write. On conflict
// nothing is written and the conflicting lessons are returned.
func (r *LessonRepository) CreateChecked(ctx context.Context, l *domain.Lesson, excludeID int64) (domain.ResourceKind, []domain.Lesson, error) {
	var (
		conflictKind domain.ResourceKind
		conflicts    []domain.Lesson
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kind, found, err := insertChecked(tx, l, excludeID)
		if err != nil {
			return err
		}
		if kind != "" {
			conflictKind, conflicts = kind, found
			return errBookingConflict
		}
		return nil
	})

	if errors.Is(err, errBookingConflict) {
		return conflictKind, conflicts, nil
	}
	if err != nil {
		return "", nil, err
	}
	return "", nil, nil
}

// CreateReplacement books l in place of the lesson originalID: the
// original's scheduled->rescheduled flip, the locked overlap check (with
// the original excluded) and the insert all commit or roll back
// together. ErrOriginalChanged means the original left the scheduled
// state first; nothing is written then.
func (r *LessonRepository) CreateReplacement(ctx context.Context, l *domain.Lesson, originalID int64) (domain.ResourceKind, []domain.Lesson, error) {
	var (
		conflictKind domain.ResourceKind
		conflicts    []domain.Lesson
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&lessonModel{}).
			Where("id = ? AND status = ?", originalID, string(domain.LessonScheduled)).
			Update("status", string(domain.LessonRescheduled))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOriginalChanged
		}

		kind, found, err := insertChecked(tx, l, originalID)
		if err != nil {
			return err
		}
		if kind != "" {
			conflictKind, conflicts = kind, found
			return errBookingConflict
		}
		return nil
	})

	if errors.Is(err, errBookingConflict) {
		return conflictKind, conflicts, nil
	}
	if err != nil {
		return "", nil, err
	}
	return "", nil, nil
}

func insertChecked(tx *gorm.DB, l *domain.Lesson, excludeID int64) (domain.ResourceKind, []domain.Lesson, error) {
	slot := l.Slot()

	existing, err := listActive(tx, domain.ResourceInstructor, l.InstructorID, l.Date, excludeID, true)
	if err != nil {
		return "", nil, err
	}
	if found := overlapping(slot, existing); len(found) > 0 {
		return domain.ResourceInstructor, found, nil
	}

	if l.VehicleID != nil {
		existing, err = listActive(tx, domain.ResourceVehicle, *l.VehicleID, l.Date, excludeID, true)
		if err != nil {
			return "", nil, err
		}
		if found := overlapping(slot, existing); len(found) > 0 {
			return domain.ResourceVehicle, found, nil
		}
	}

	m := toLessonModel(l)
	if err := tx.Create(&m).Error; err != nil {
		return "", nil, err
	}
	*l = *toDomainLesson(m)
	return "", nil, nil
}

func overlapping(slot domain.TimeSlot, lessons []domain.Lesson) []domain.Lesson {
	var out []domain.Lesson
	for _, l := range lessons {
		if domain.Overlaps(slot, l.Slot()) {
			out = append(out, l)
		}
	}
	return out
}

// TransitionStatus flips status from->to as a compare-and-swap, so each
// lesson's transition is its own critical section. Returns false when the
// row was not in the expected state.
func (r *LessonRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.LessonStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": string(to)}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&lessonModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *LessonRepository) InstructorStats(ctx context.Context, instructorID int64) (*domain.InstructorStats, error) {
	stats := &domain.InstructorStats{InstructorID: instructorID}

	var rows []struct {
		Status string
		Cnt    int64
	}
	err := r.db.WithContext(ctx).
		Model(&lessonModel{}).
		Select("status, COUNT(*) AS cnt").
		Where("instructor_id = ?", instructorID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		switch domain.LessonStatus(row.Status) {
		case domain.LessonScheduled, domain.LessonInProgress:
			stats.Scheduled += row.Cnt
		case domain.LessonCompleted:
			stats.Completed = row.Cnt
		case domain.LessonCancelled:
			stats.Cancelled = row.Cnt
		case domain.LessonNoShow:
			stats.NoShows = row.Cnt
		}
	}

	var avg *float64
	err = r.db.WithContext(ctx).
		Model(&lessonModel{}).
		Select("AVG(rating)").
		Where("instructor_id = ? AND rating IS NOT NULL", instructorID).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AvgRating = *avg
	}

	return stats, nil
}

// IsUniqueViolation recognizes unique/exclusion guard violations from
// both the Postgres driver and GORM's translated errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01") {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

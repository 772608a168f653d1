package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"driveschool/internal/domain"
	"driveschool/internal/lock"
	"driveschool/internal/repository"

	"gorm.io/gorm"
)

const bookingLockTTL = 10 * time.Second

// Teaching window used for free-slot computation when no per-instructor
// schedule is configured.
const (
	defaultDayOpenHour  = 8
	defaultDayCloseHour = 20
)

type Service struct {
	lessons   LessonRepository
	directory DirectoryRepository
	checker   *Checker
	locker    lock.Locker
	notifs    NotificationSender
}

func NewService(lessons LessonRepository, directory DirectoryRepository, locker lock.Locker, notifs NotificationSender) *Service {
	return &Service{
		lessons:   lessons,
		directory: directory,
		checker:   NewChecker(lessons, directory),
		locker:    locker,
		notifs:    notifs,
	}
}

func (s *Service) Checker() *Checker { return s.checker }

// CreateLesson books a lesson. All validations and both availability
// checks run before any write; the insert itself re-checks under row
// locks so nothing needs rolling back.
func (s *Service) CreateLesson(ctx context.Context, req CreateLessonRequest) (*domain.Lesson, error) {
	return s.createLesson(ctx, req, 0)
}

// createLesson validates and books. A non-zero replaceID books a
// replacement: the original lesson is excluded from the conflict checks
// and flipped to rescheduled in the same transaction as the insert.
func (s *Service) createLesson(ctx context.Context, req CreateLessonRequest, replaceID int64) (*domain.Lesson, error) {
	date, slot, err := parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.directory.StudentExists(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("student lookup: %w", err)
	}
	if !ok {
		return nil, ErrResourceNotFound
	}

	inst, err := s.directory.InstructorByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("instructor lookup: %w", err)
	}
	if !inst.IsAvailable {
		return nil, ErrInstructorInactive
	}

	if req.CourseID != nil {
		ok, err := s.directory.CourseExists(ctx, *req.CourseID)
		if err != nil {
			return nil, fmt.Errorf("course lookup: %w", err)
		}
		if !ok {
			return nil, ErrResourceNotFound
		}
	}
	if req.VehicleID != nil {
		ok, err := s.directory.VehicleExists(ctx, *req.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("vehicle lookup: %w", err)
		}
		if !ok {
			return nil, ErrResourceNotFound
		}
	}

	// Serialize check-then-insert per resource and date. Keys are taken
	// in a fixed order so two competing bookings cannot deadlock.
	keys := bookingLockKeys(req.InstructorID, req.VehicleID, date)
	acquired := make([]string, 0, len(keys))
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = s.locker.Unlock(ctx, acquired[i])
		}
	}()
	for _, key := range keys {
		got, err := s.locker.Lock(ctx, key, bookingLockTTL)
		if err != nil {
			return nil, fmt.Errorf("booking lock: %w", err)
		}
		if !got {
			return nil, ErrResourceBusy
		}
		acquired = append(acquired, key)
	}

	conflicts, err := s.checker.FindConflicts(ctx, domain.ResourceInstructor, req.InstructorID, date, slot, replaceID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Kind: domain.ResourceInstructor, Conflicts: conflicts}
	}
	if req.VehicleID != nil {
		conflicts, err = s.checker.FindConflicts(ctx, domain.ResourceVehicle, *req.VehicleID, date, slot, replaceID)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Kind: domain.ResourceVehicle, Conflicts: conflicts}
		}
	}

	l := &domain.Lesson{
		StudentID:       req.StudentID,
		InstructorID:    req.InstructorID,
		VehicleID:       req.VehicleID,
		CourseID:        req.CourseID,
		Date:            date,
		StartTime:       slot.Start,
		EndTime:         slot.End,
		Status:          domain.LessonScheduled,
		Notes:           req.Notes,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
	}

	var (
		kind        domain.ResourceKind
		txConflicts []domain.Lesson
	)
	if replaceID > 0 {
		kind, txConflicts, err = s.lessons.CreateReplacement(ctx, l, replaceID)
	} else {
		kind, txConflicts, err = s.lessons.CreateChecked(ctx, l, 0)
	}
	if err != nil {
		if errors.Is(err, repository.ErrOriginalChanged) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	if kind != "" {
		return nil, &ConflictError{Kind: kind, Conflicts: txConflicts}
	}

	if s.notifs != nil {
		_ = s.notifs.NotifyLessonBooked(ctx, l.StudentID, l.ID, l.StartTime)
	}
	return l, nil
}

func (s *Service) GetLesson(ctx context.Context, id int64) (*domain.Lesson, error) {
	l, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *Service) StartLesson(ctx context.Context, id int64) (*domain.Lesson, error) {
	return s.transition(ctx, id, domain.LessonInProgress, nil)
}

func (s *Service) CompleteLesson(ctx context.Context, id int64, rating *int, notes string) (*domain.Lesson, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, ErrInvalidRating
	}

	extra := map[string]any{}
	if rating != nil {
		extra["rating"] = *rating
	}
	if notes != "" {
		extra["notes"] = notes
	}

	l, err := s.transition(ctx, id, domain.LessonCompleted, extra)
	if err != nil {
		return nil, err
	}
	if s.notifs != nil {
		_ = s.notifs.NotifyLessonCompleted(ctx, l.StudentID, l.ID)
	}
	return l, nil
}

func (s *Service) CancelLesson(ctx context.Context, id int64, reason string) (*domain.Lesson, error) {
	now := time.Now().UTC()
	extra := map[string]any{"cancelled_at": now}
	if reason != "" {
		extra["cancellation_reason"] = reason
	}

	l, err := s.transition(ctx, id, domain.LessonCancelled, extra)
	if err != nil {
		return nil, err
	}
	if s.notifs != nil {
		_ = s.notifs.NotifyLessonCancelled(ctx, l.StudentID, l.ID, reason)
	}
	return l, nil
}

func (s *Service) MarkNoShow(ctx context.Context, id int64) (*domain.Lesson, error) {
	return s.transition(ctx, id, domain.LessonNoShow, nil)
}

// transition validates against the lifecycle table and applies the change
// as a compare-and-swap; losing the race to another transition reports
// ErrInvalidTransition just like an invalid request would.
func (s *Service) transition(ctx context.Context, id int64, to domain.LessonStatus, extra map[string]any) (*domain.Lesson, error) {
	l, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(l.Status, to) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.lessons.TransitionStatus(ctx, id, l.Status, to, extra)
	if err != nil {
		return nil, fmt.Errorf("transition lesson %d: %w", id, err)
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.GetLesson(ctx, id)
}

// RescheduleLesson cancels-and-replaces: the original window is never
// edited in place. The replacement is validated against everything except
// the original lesson itself, and the original's flip to rescheduled
// commits in the same transaction as the replacement insert, so the two
// can never both end up scheduled.
func (s *Service) RescheduleLesson(ctx context.Context, id int64, req RescheduleRequest) (*domain.Lesson, error) {
	orig, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	if orig.Status != domain.LessonScheduled {
		return nil, ErrInvalidTransition
	}

	return s.createLesson(ctx, CreateLessonRequest{
		StudentID:       orig.StudentID,
		InstructorID:    orig.InstructorID,
		VehicleID:       orig.VehicleID,
		CourseID:        orig.CourseID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Notes:           orig.Notes,
		PickupLocation:  orig.PickupLocation,
		DropoffLocation: orig.DropoffLocation,
	}, orig.ID)
}

func (s *Service) CompleteMany(ctx context.Context, ids []int64) []BulkResult {
	out := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.CompleteLesson(ctx, id, nil, "")
		out = append(out, toBulkResult(id, err))
	}
	return out
}

func (s *Service) CancelMany(ctx context.Context, ids []int64, reason string) []BulkResult {
	out := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.CancelLesson(ctx, id, reason)
		out = append(out, toBulkResult(id, err))
	}
	return out
}

func toBulkResult(id int64, err error) BulkResult {
	if err != nil {
		return BulkResult{LessonID: id, Error: err.Error()}
	}
	return BulkResult{LessonID: id, OK: true}
}

func (s *Service) DaySchedule(ctx context.Context, kind domain.ResourceKind, resourceID int64, dateStr string) (*DaySchedule, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	if err := s.checker.EnsureResource(ctx, kind, resourceID); err != nil {
		return nil, err
	}

	lessons, err := s.lessons.ListForResourceDay(ctx, kind, resourceID, date)
	if err != nil {
		return nil, err
	}
	return &DaySchedule{Kind: kind, ResourceID: resourceID, Date: dateStr, Lessons: lessons}, nil
}

// FreeSlots returns the instructor's open windows for a date: the
// teaching day minus all active bookings.
func (s *Service) FreeSlots(ctx context.Context, instructorID int64, dateStr string) ([]domain.TimeSlot, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	if err := s.checker.EnsureResource(ctx, domain.ResourceInstructor, instructorID); err != nil {
		return nil, err
	}

	open := date.Add(defaultDayOpenHour * time.Hour)
	close := date.Add(defaultDayCloseHour * time.Hour)

	lessons, err := s.lessons.ListActiveForResource(ctx, domain.ResourceInstructor, instructorID, date, 0)
	if err != nil {
		return nil, err
	}

	booked := make([]domain.TimeSlot, 0, len(lessons))
	for _, l := range lessons {
		booked = append(booked, l.Slot())
	}
	return subtractBooked(open, close, booked), nil
}

func (s *Service) InstructorStats(ctx context.Context, instructorID int64) (*domain.InstructorStats, error) {
	if err := s.checker.EnsureResource(ctx, domain.ResourceInstructor, instructorID); err != nil {
		return nil, err
	}
	return s.lessons.InstructorStats(ctx, instructorID)
}

func parseDate(dateStr string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, ErrValidation
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
}

func parseWindow(dateStr, startStr, endStr string) (time.Time, domain.TimeSlot, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return time.Time{}, domain.TimeSlot{}, err
	}
	start, err := time.Parse("15:04", startStr)
	if err != nil {
		return time.Time{}, domain.TimeSlot{}, ErrValidation
	}
	end, err := time.Parse("15:04", endStr)
	if err != nil {
		return time.Time{}, domain.TimeSlot{}, ErrValidation
	}

	slot := domain.TimeSlot{
		Start: date.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute),
		End:   date.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute),
	}
	return date, slot, nil
}

func bookingLockKeys(instructorID int64, vehicleID *int64, date time.Time) []string {
	day := date.Format("2006-01-02")
	keys := []string{fmt.Sprintf("sched:instructor:%d:%s", instructorID, day)}
	if vehicleID != nil {
		keys = append(keys, fmt.Sprintf("sched:vehicle:%d:%s", *vehicleID, day))
	}
	sort.Strings(keys)
	return keys
}

// subtractBooked merges the booked slots and returns the gaps between
// open and close.
func subtractBooked(open, close time.Time, booked []domain.TimeSlot) []domain.TimeSlot {
	if len(booked) == 0 {
		return []domain.TimeSlot{{Start: open, End: close}}
	}

	sort.Slice(booked, func(i, j int) bool { return booked[i].Start.Before(booked[j].Start) })

	merged := make([]domain.TimeSlot, 0, len(booked))
	for _, b := range booked {
		if b.End.Before(open) || !b.Start.Before(close) {
			continue
		}
		if b.Start.Before(open) {
			b.Start = open
		}
		if b.End.After(close) {
			b.End = close
		}
		if !b.End.After(b.Start) {
			continue
		}

		if len(merged) == 0 {
			merged = append(merged, b)
			continue
		}
		last := merged[len(merged)-1]
		if !b.Start.After(last.End) {
			if b.End.After(last.End) {
				last.End = b.End
				merged[len(merged)-1] = last
			}
		} else {
			merged = append(merged, b)
		}
	}

	cur := open
	out := make([]domain.TimeSlot, 0)
	for _, b := range merged {
		if b.Start.After(cur) {
			out = append(out, domain.TimeSlot{Start: cur, End: b.Start})
		}
		if b.End.After(cur) {
			cur = b.End
		}
		if !cur.Before(close) {
			break
		}
	}
	if cur.Before(close) {
		out = append(out, domain.TimeSlot{Start: cur, End: close})
	}
	return out
}

package domain

import "time"

type LessonStatus string

const (
	LessonScheduled   LessonStatus = "scheduled"
	LessonInProgress  LessonStatus = "in_progress"
	LessonCompleted   LessonStatus = "completed"
	LessonCancelled   LessonStatus = "cancelled"
	LessonNoShow      LessonStatus = "no_show"
	LessonRescheduled LessonStatus = "rescheduled"
)

// ActiveLessonStatuses are the statuses that count toward double-booking
// conflicts.
var ActiveLessonStatuses = []LessonStatus{LessonScheduled, LessonInProgress}

func (s LessonStatus) Active() bool {
	return s == LessonScheduled || s == LessonInProgress
}

func (s LessonStatus) Terminal() bool {
	return s == LessonCompleted || s == LessonCancelled || s == LessonNoShow
}

type ResourceKind string

const (
	ResourceInstructor ResourceKind = "instructor"
	ResourceVehicle    ResourceKind = "vehicle"
)

type Lesson struct {
	ID           int64  `json:"id"`
	StudentID    int64  `json:"student_id"`
	InstructorID int64  `json:"instructor_id"`
	VehicleID    *int64 `json:"vehicle_id,omitempty"`
	CourseID     *int64 `json:"course_id,omitempty"`

	Date      time.Time `json:"date"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Status             LessonStatus `json:"status"`
	Notes              string       `json:"notes,omitempty"`
	Rating             *int         `json:"rating,omitempty"`
	PickupLocation     string       `json:"pickup_location,omitempty"`
	DropoffLocation    string       `json:"dropoff_location,omitempty"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (l *Lesson) Slot() TimeSlot {
	return TimeSlot{Start: l.StartTime, End: l.EndTime}
}

// InstructorStats is derived from lesson rows, never stored.
type InstructorStats struct {
	InstructorID int64   `json:"instructor_id"`
	Scheduled    int64   `json:"scheduled"`
	Completed    int64   `json:"completed"`
	Cancelled    int64   `json:"cancelled"`
	NoShows      int64   `json:"no_shows"`
	AvgRating    float64 `json:"avg_rating"`
}

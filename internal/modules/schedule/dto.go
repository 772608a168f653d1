package schedule

import "driveschool/internal/domain"

type CreateLessonRequest struct {
	StudentID    int64  `json:"student_id" binding:"required"`
	InstructorID int64  `json:"instructor_id" binding:"required"`
	VehicleID    *int64 `json:"vehicle_id"`
	CourseID     *int64 `json:"course_id"`

	Date      string `json:"date" binding:"required"`       // 2006-01-02
	StartTime string `json:"start_time" binding:"required"` // 15:04
	EndTime   string `json:"end_time" binding:"required"`   // 15:04

	Notes           string `json:"notes"`
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
}

type RescheduleRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type CompleteLessonRequest struct {
	Rating *int   `json:"rating"`
	Notes  string `json:"notes"`
}

type CancelLessonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type BulkTransitionRequest struct {
	LessonIDs []int64 `json:"lesson_ids" binding:"required"`
	Reason    string  `json:"reason"`
}

// BulkResult reports one lesson's outcome; a batch is not atomic across
// members.
type BulkResult struct {
	LessonID int64  `json:"lesson_id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

type DaySchedule struct {
	Kind       domain.ResourceKind `json:"kind"`
	ResourceID int64               `json:"resource_id"`
	Date       string              `json:"date"`
	Lessons    []domain.Lesson     `json:"lessons"`
}

package schedule

import "driveschool/internal/domain"

// lessonTransitions is the full status machine. completed, cancelled and
// no_show are terminal; rescheduled is only ever set by the reschedule
// operation and nothing leaves it.
var lessonTransitions = map[domain.LessonStatus]map[domain.LessonStatus]bool{
	domain.LessonScheduled: {
		domain.LessonInProgress:  true,
		domain.LessonCompleted:   true,
		domain.LessonCancelled:   true,
		domain.LessonNoShow:      true,
		domain.LessonRescheduled: true,
	},
	domain.LessonInProgress: {
		domain.LessonCompleted: true,
		domain.LessonCancelled: true,
	},
}

func CanTransition(from, to domain.LessonStatus) bool {
	return lessonTransitions[from][to]
}

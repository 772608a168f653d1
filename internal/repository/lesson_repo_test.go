package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"driveschool/internal/database"
	"driveschool/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:lessons_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&lessonModel{}))
	return db
}

func testDay() time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
}

func lessonAt(instructorID int64, startHour, endHour int) *domain.Lesson {
	day := testDay()
	return &domain.Lesson{
		StudentID:    1,
		InstructorID: instructorID,
		Date:         day,
		StartTime:    day.Add(time.Duration(startHour) * time.Hour),
		EndTime:      day.Add(time.Duration(endHour) * time.Hour),
		Status:       domain.LessonScheduled,
	}
}

func mustBook(t *testing.T, repo *LessonRepository, l *domain.Lesson) {
	t.Helper()
	kind, _, err := repo.CreateChecked(context.Background(), l, 0)
	require.NoError(t, err)
	require.Equal(t, domain.ResourceKind(""), kind)
	require.NotZero(t, l.ID)
}

func countLessons(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&lessonModel{}).Count(&n).Error)
	return n
}

func TestLessonRepository_CreateChecked_RejectsOverlap(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	mustBook(t, repo, lessonAt(2, 10, 11))

	dup := lessonAt(2, 10, 11)
	dup.StartTime = dup.StartTime.Add(30 * time.Minute)
	dup.EndTime = dup.EndTime.Add(30 * time.Minute)

	kind, conflicts, err := repo.CreateChecked(context.Background(), dup, 0)

	assert.NoError(t, err)
	assert.Equal(t, domain.ResourceInstructor, kind)
	assert.Len(t, conflicts, 1)
	assert.Zero(t, dup.ID)
	assert.Equal(t, int64(1), countLessons(t, db))
}

func TestLessonRepository_CreateChecked_BackToBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	mustBook(t, repo, lessonAt(2, 10, 11))
	mustBook(t, repo, lessonAt(2, 11, 12))
	mustBook(t, repo, lessonAt(2, 9, 10))

	assert.Equal(t, int64(3), countLessons(t, db))
}

func TestLessonRepository_CreateChecked_VehicleOverlap(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	vehicleID := int64(5)

	first := lessonAt(2, 10, 11)
	first.VehicleID = &vehicleID
	mustBook(t, repo, first)

	// Different instructor, same vehicle, overlapping window.
	second := lessonAt(3, 10, 12)
	second.VehicleID = &vehicleID

	kind, conflicts, err := repo.CreateChecked(context.Background(), second, 0)

	assert.NoError(t, err)
	assert.Equal(t, domain.ResourceVehicle, kind)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, int64(1), countLessons(t, db))
}

func TestLessonRepository_CreateChecked_IgnoresInactiveStatuses(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	blocked := lessonAt(2, 10, 11)
	mustBook(t, repo, blocked)

	ok, err := repo.TransitionStatus(context.Background(), blocked.ID, domain.LessonScheduled, domain.LessonCancelled, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// The cancelled lesson no longer blocks the window.
	mustBook(t, repo, lessonAt(2, 10, 11))
}

func TestLessonRepository_CreateChecked_ExcludeID(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	orig := lessonAt(2, 10, 11)
	mustBook(t, repo, orig)

	// A replacement overlapping only the original must go through when the
	// original is excluded from the check.
	repl := lessonAt(2, 10, 12)
	kind, _, err := repo.CreateChecked(context.Background(), repl, orig.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.ResourceKind(""), kind)
	assert.NotZero(t, repl.ID)
}

func TestLessonRepository_CreateChecked_NoDoubleBooking(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)
	rng := rand.New(rand.NewSource(7))

	day := testDay()
	var accepted []*domain.Lesson
	for i := 0; i < 60; i++ {
		start := rng.Intn(11) + 8 // 08..18
		length := rng.Intn(2) + 1 // 1..2h
		l := lessonAt(2, start, start+length)

		kind, _, err := repo.CreateChecked(context.Background(), l, 0)
		require.NoError(t, err)
		if kind == "" {
			accepted = append(accepted, l)
		}
	}

	require.NotEmpty(t, accepted)
	for i := 0; i < len(accepted); i++ {
		for j := i + 1; j < len(accepted); j++ {
			assert.False(t, domain.Overlaps(accepted[i].Slot(), accepted[j].Slot()),
				"lessons %d and %d overlap on %s", accepted[i].ID, accepted[j].ID, day.Format("2006-01-02"))
		}
	}
	assert.Equal(t, int64(len(accepted)), countLessons(t, db))
}

func TestLessonRepository_CreateReplacement(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	orig := lessonAt(2, 10, 11)
	mustBook(t, repo, orig)

	// Overlaps only the original, which the replacement supersedes.
	repl := lessonAt(2, 10, 12)
	kind, _, err := repo.CreateReplacement(context.Background(), repl, orig.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.ResourceKind(""), kind)
	assert.NotZero(t, repl.ID)

	got, err := repo.GetByID(context.Background(), orig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LessonRescheduled, got.Status)
}

func TestLessonRepository_CreateReplacement_StaleOriginal(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	orig := lessonAt(2, 10, 11)
	mustBook(t, repo, orig)

	ok, err := repo.TransitionStatus(ctx, orig.ID, domain.LessonScheduled, domain.LessonCancelled, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// The original is no longer scheduled: nothing gets written and the
	// original keeps its state.
	repl := lessonAt(2, 14, 15)
	_, _, err = repo.CreateReplacement(ctx, repl, orig.ID)

	assert.ErrorIs(t, err, ErrOriginalChanged)
	assert.Equal(t, int64(1), countLessons(t, db))

	got, err := repo.GetByID(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LessonCancelled, got.Status)
}

func TestLessonRepository_CreateReplacement_ConflictRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	orig := lessonAt(2, 10, 11)
	mustBook(t, repo, orig)
	other := lessonAt(2, 14, 15)
	mustBook(t, repo, other)

	// The new window collides with a third lesson: the transaction rolls
	// back and the original stays scheduled.
	repl := lessonAt(2, 14, 16)
	kind, conflicts, err := repo.CreateReplacement(ctx, repl, orig.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.ResourceInstructor, kind)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, int64(2), countLessons(t, db))

	got, err := repo.GetByID(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LessonScheduled, got.Status)
}

func TestLessonRepository_TransitionStatus_CAS(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	l := lessonAt(2, 10, 11)
	mustBook(t, repo, l)

	ok, err := repo.TransitionStatus(context.Background(), l.ID, domain.LessonScheduled, domain.LessonInProgress, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// The row is no longer scheduled, so the stale swap loses.
	ok, err = repo.TransitionStatus(context.Background(), l.ID, domain.LessonScheduled, domain.LessonCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LessonInProgress, got.Status)
}

func TestLessonRepository_TransitionStatus_Extra(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	l := lessonAt(2, 10, 11)
	mustBook(t, repo, l)

	ok, err := repo.TransitionStatus(context.Background(), l.ID, domain.LessonScheduled, domain.LessonCompleted,
		map[string]any{"rating": 5, "notes": "parallel parking nailed"})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LessonCompleted, got.Status)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 5, *got.Rating)
	assert.Equal(t, "parallel parking nailed", got.Notes)
}

func TestLessonRepository_InstructorStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	hours := [][2]int{{8, 9}, {9, 10}, {10, 11}, {11, 12}}
	ids := make([]int64, 0, len(hours))
	for _, h := range hours {
		l := lessonAt(2, h[0], h[1])
		mustBook(t, repo, l)
		ids = append(ids, l.ID)
	}

	_, err := repo.TransitionStatus(ctx, ids[0], domain.LessonScheduled, domain.LessonCompleted, map[string]any{"rating": 4})
	require.NoError(t, err)
	_, err = repo.TransitionStatus(ctx, ids[1], domain.LessonScheduled, domain.LessonCompleted, map[string]any{"rating": 5})
	require.NoError(t, err)
	_, err = repo.TransitionStatus(ctx, ids[2], domain.LessonScheduled, domain.LessonNoShow, nil)
	require.NoError(t, err)

	stats, err := repo.InstructorStats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.NoShows)
	assert.Equal(t, int64(1), stats.Scheduled)
	assert.InDelta(t, 4.5, stats.AvgRating, 0.001)
}

func TestLessonRepository_ListForResourceDay_Ordered(t *testing.T) {
	db := newTestDB(t)
	repo := NewLessonRepository(db)

	mustBook(t, repo, lessonAt(2, 14, 15))
	mustBook(t, repo, lessonAt(2, 8, 9))
	mustBook(t, repo, lessonAt(2, 11, 12))

	lessons, err := repo.ListForResourceDay(context.Background(), domain.ResourceInstructor, 2, testDay())
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	assert.True(t, lessons[0].StartTime.Before(lessons[1].StartTime))
	assert.True(t, lessons[1].StartTime.Before(lessons[2].StartTime))
}

package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func slotAt(startHour, startMin, endHour, endMin int) TimeSlot {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return TimeSlot{
		Start: day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		End:   day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{"back-to-back before", slotAt(9, 0, 10, 0), slotAt(10, 0, 11, 0), false},
		{"back-to-back after", slotAt(10, 0, 11, 0), slotAt(9, 0, 10, 0), false},
		{"partial overlap", slotAt(10, 0, 11, 0), slotAt(10, 30, 11, 30), true},
		{"containment", slotAt(9, 0, 12, 0), slotAt(10, 0, 10, 30), true},
		{"identical", slotAt(9, 0, 10, 0), slotAt(9, 0, 10, 0), true},
		{"disjoint", slotAt(8, 0, 9, 0), slotAt(14, 0, 15, 0), false},
		{"touch at start", slotAt(9, 0, 10, 0), slotAt(8, 0, 9, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "predicate must be symmetric")
		})
	}
}

func TestOverlapsSymmetryRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		a := randomSlot(rng)
		b := randomSlot(rng)
		assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "a=%v b=%v", a, b)
	}
}

func randomSlot(rng *rand.Rand) TimeSlot {
	start := rng.Intn(23 * 60)
	length := 1 + rng.Intn(180)
	return slotAt(start/60, start%60, (start+length)/60, (start+length)%60)
}

func TestTimeSlotValidate(t *testing.T) {
	assert.NoError(t, slotAt(9, 0, 10, 0).Validate())
	assert.ErrorIs(t, slotAt(10, 0, 10, 0).Validate(), ErrInvalidInterval)
	assert.ErrorIs(t, slotAt(11, 0, 10, 0).Validate(), ErrInvalidInterval)
}

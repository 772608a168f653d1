package domain

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval: start must be before end")

// TimeSlot is a half-open interval [Start, End) on a single calendar day.
// It is derived from lesson rows for overlap computation and never stored.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Validate() error {
	if !s.Start.Before(s.End) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two half-open slots intersect. Back-to-back
// slots (one ends exactly when the other starts) do not overlap. This is
// the single conflict predicate for both instructor and vehicle checks;
// do not restate it elsewhere.
func Overlaps(a, b TimeSlot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

package session

import (
	"fmt"
	"strings"
	"time"
)

// Overlap describes one already-scheduled session clashing with a candidate
// window: who is double-booked and when.
type Overlap struct {
	SessionID  string    `json:"session"`
	FairyNames []string  `json:"fairies"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// ConflictError rejects a scheduling request. It carries enough detail to
// report, per overlapping session, the conflicting fairies and time window.
type ConflictError struct {
	Overlaps []Overlap
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("book fairy already scheduled")
	for _, o := range e.Overlaps {
		fmt.Fprintf(&b, "; %s: %s - %s",
			strings.Join(o.FairyNames, ", "),
			o.Start.Format(time.RFC3339), o.End.Format(time.RFC3339))
	}
	return b.String()
}

// Overlaps reports whether the windows [s1,e1] and [s2,e2] clash. Windows
// that merely touch at a single instant still clash: back-to-back bookings
// for the same fairy are not allowed.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	if s1.Before(e2) && e1.After(s2) {
		return true
	}
	return e1.Equal(s2) || e2.Equal(s1)
}

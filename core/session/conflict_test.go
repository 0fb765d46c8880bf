package session

import (
	"strings"
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	day := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	// reference window: 10:00 - 11:00
	s, e := at(10, 0), at(11, 0)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		clash bool
	}{
		{name: "identical", start: at(10, 0), end: at(11, 0), clash: true},
		{name: "contained", start: at(10, 15), end: at(10, 45), clash: true},
		{name: "containing", start: at(9, 0), end: at(12, 0), clash: true},
		{name: "overlapping head", start: at(9, 30), end: at(10, 30), clash: true},
		{name: "overlapping tail", start: at(10, 30), end: at(11, 30), clash: true},
		{name: "touching at end", start: at(11, 0), end: at(12, 0), clash: true},
		{name: "touching at start", start: at(9, 0), end: at(10, 0), clash: true},
		{name: "gap after", start: at(11, 1), end: at(12, 0), clash: false},
		{name: "gap before", start: at(8, 0), end: at(9, 59), clash: false},
		{name: "distinct day", start: at(10, 0).AddDate(0, 0, 1), end: at(11, 0).AddDate(0, 0, 1), clash: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(s, e, tt.start, tt.end); got != tt.clash {
				t.Errorf("Overlaps() = %v, want %v", got, tt.clash)
			}
			// symmetric
			if got := Overlaps(tt.start, tt.end, s, e); got != tt.clash {
				t.Errorf("Overlaps() (swapped) = %v, want %v", got, tt.clash)
			}
		})
	}
}

func TestConflictErrorMessage(t *testing.T) {
	err := &ConflictError{Overlaps: []Overlap{
		{
			FairyNames: []string{"Jane Doe", "Thandi N."},
			Start:      time.Date(2025, time.July, 14, 10, 0, 0, 0, time.UTC),
			End:        time.Date(2025, time.July, 14, 11, 0, 0, 0, time.UTC),
		},
	}}
	msg := err.Error()
	for _, want := range []string{"already scheduled", "Jane Doe", "Thandi N.", "2025-07-14T10:00:00Z"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

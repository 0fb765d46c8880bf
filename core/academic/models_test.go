package academic

import (
	"testing"
	"time"
)

func Test_YearName(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "start of program year", now: date(2019, time.May, 1), want: "AY 19-20"},
		{name: "mid program year", now: date(2019, time.November, 15), want: "AY 19-20"},
		{name: "january crosses calendar year", now: date(2020, time.January, 10), want: "AY 19-20"},
		{name: "last day of program year", now: date(2020, time.April, 30), want: "AY 19-20"},
		{name: "next year starts in May", now: date(2020, time.May, 1), want: "AY 20-21"},
		{name: "april before first May", now: date(2019, time.April, 30), want: "AY 18-19"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearName(tt.now); got != tt.want {
				t.Errorf("YearName(%s) = %q; want %q", tt.now, got, tt.want)
			}
		})
	}
}

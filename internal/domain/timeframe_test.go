package domain

import (
	"testing"
	"time"
)

func TestTimeframeWindow(t *testing.T) {
	// Wednesday, 15 March 2023 10:30 UTC.
	now := time.Date(2023, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timeframe Timeframe
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "today is a one day half-open window",
			timeframe: TimeframeToday,
			wantStart: time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2023, time.March, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "this week starts on monday",
			timeframe: TimeframeThisWeek,
			wantStart: time.Date(2023, time.March, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "this month starts on the first",
			timeframe: TimeframeThisMonth,
			wantStart: time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "last month is bounded on both sides",
			timeframe: TimeframeLastMonth,
			wantStart: time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "this quarter starts in january for march",
			timeframe: TimeframeThisQuarter,
			wantStart: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "this year starts on jan 1",
			timeframe: TimeframeThisYear,
			wantStart: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "all time is unbounded",
			timeframe: TimeframeAllTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.timeframe.Window(now)
			if !start.Equal(tt.wantStart) {
				t.Fatalf("expected start %v, got %v", tt.wantStart, start)
			}
			if !end.Equal(tt.wantEnd) {
				t.Fatalf("expected end %v, got %v", tt.wantEnd, end)
			}
		})
	}
}

func TestTimeframeWindowSundayBelongsToCurrentWeek(t *testing.T) {
	// Sunday, 19 March 2023.
	now := time.Date(2023, time.March, 19, 23, 0, 0, 0, time.UTC)
	start, _ := TimeframeThisWeek.Window(now)
	want := time.Date(2023, time.March, 13, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Fatalf("expected week start %v, got %v", want, start)
	}
}

func TestTimeframeWindowQuarterBoundaries(t *testing.T) {
	tests := []struct {
		month time.Month
		want  time.Month
	}{
		{time.January, time.January},
		{time.March, time.January},
		{time.April, time.April},
		{time.June, time.April},
		{time.July, time.July},
		{time.October, time.October},
		{time.December, time.October},
	}

	for _, tt := range tests {
		now := time.Date(2023, tt.month, 20, 0, 0, 0, 0, time.UTC)
		start, _ := TimeframeThisQuarter.Window(now)
		if start.Month() != tt.want {
			t.Fatalf("month %v: expected quarter start %v, got %v", tt.month, tt.want, start.Month())
		}
	}
}

func TestParseTimeframe(t *testing.T) {
	if got := ParseTimeframe("last_month"); got != TimeframeLastMonth {
		t.Fatalf("expected last_month, got %q", got)
	}
	if got := ParseTimeframe("bogus"); got != TimeframeAllTime {
		t.Fatalf("expected all-time fallback for unknown value, got %q", got)
	}
	if got := ParseTimeframe(""); got != TimeframeAllTime {
		t.Fatalf("expected all-time for empty value, got %q", got)
	}
}

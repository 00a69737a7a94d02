package timestr

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	// Wednesday
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		in        string
		wantLower time.Time
		wantUpper time.Time
		wantErr   bool
	}{
		{in: "now", wantLower: now, wantUpper: now},
		{in: "today", wantLower: day(2025, 3, 12), wantUpper: day(2025, 3, 13).Add(-time.Nanosecond)},
		{in: "Tomorrow", wantLower: day(2025, 3, 13), wantUpper: day(2025, 3, 14).Add(-time.Nanosecond)},
		{in: "+7d", wantLower: day(2025, 3, 19), wantUpper: day(2025, 3, 20).Add(-time.Nanosecond)},
		{in: "-2h", wantLower: now.Add(-2 * time.Hour), wantUpper: now.Add(-2 * time.Hour)},
		{in: "in 3 days", wantLower: day(2025, 3, 15), wantUpper: day(2025, 3, 16).Add(-time.Nanosecond)},
		{in: "eom", wantLower: day(2025, 3, 31), wantUpper: day(2025, 4, 1).Add(-time.Nanosecond)},
		{in: "friday", wantLower: day(2025, 3, 14), wantUpper: day(2025, 3, 15).Add(-time.Nanosecond)},
		{in: "wednesday", wantLower: day(2025, 3, 19), wantUpper: day(2025, 3, 20).Add(-time.Nanosecond)},
		{in: "2025-12-25", wantLower: day(2025, 12, 25), wantUpper: day(2025, 12, 26).Add(-time.Nanosecond)},
		{in: "2025-12-25 09:15", wantLower: time.Date(2025, 12, 25, 9, 15, 0, 0, time.UTC), wantUpper: time.Date(2025, 12, 25, 9, 15, 0, 0, time.UTC)},
		{in: "someday", wantErr: true},
		{in: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Parse(tt.in, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !p.Lower().Equal(tt.wantLower) {
				t.Errorf("lower = %s, want %s", p.Lower(), tt.wantLower)
			}
			if !p.Upper().Equal(tt.wantUpper) {
				t.Errorf("upper = %s, want %s", p.Upper(), tt.wantUpper)
			}
		})
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

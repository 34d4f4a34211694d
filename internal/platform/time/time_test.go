package time

import (
	"testing"
	"time"
)

func TestDay_TruncatesInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:30 UTC is still the previous evening in New York
	ts := time.Date(2025, 3, 10, 2, 30, 0, 0, time.UTC)
	got := Day(ts, ny)
	if got.Day() != 9 || got.Hour() != 0 {
		t.Fatalf("Day = %v, want 2025-03-09 00:00 local", got)
	}
	if Day(ts, nil).Day() != 10 {
		t.Fatalf("nil loc should default to UTC")
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	cases := []struct {
		name string
		b    time.Time
		want int
	}{
		{"same day", time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC), 0},
		{"next day one minute later", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), 1},
		{"gap", time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC), 3},
		{"before", time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysBetween(base, tc.b, time.UTC); got != tc.want {
				t.Fatalf("DaysBetween = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := time.Date(2025, 3, 8, 12, 0, 0, 0, ny)
	b := time.Date(2025, 3, 9, 12, 0, 0, 0, ny) // spring forward day
	if got := DaysBetween(a, b, ny); got != 1 {
		t.Fatalf("DaysBetween across DST = %d, want 1", got)
	}
}

func TestLoadLocation_Fallback(t *testing.T) {
	if LoadLocation("") != time.UTC {
		t.Fatalf("empty name should be UTC")
	}
	if LoadLocation("Not/AZone") != time.UTC {
		t.Fatalf("unknown name should fall back to UTC")
	}
}

func TestPtr(t *testing.T) {
	if Ptr(time.Time{}) != nil {
		t.Fatalf("zero time should give nil")
	}
	now := time.Now()
	if p := Ptr(now); p == nil || !p.Equal(now) {
		t.Fatalf("Ptr lost value")
	}
}

package trigger

import (
	"testing"
	"time"

	"github.com/Ning0612/Regsync/internal/domain"
)

func TestNextFire_Daily(t *testing.T) {
	sched := domain.Schedule{Type: domain.ScheduleDaily, Offtime: 3 * time.Hour}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			"before today's slot",
			time.Date(2026, 8, 10, 1, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC),
		},
		{
			"exactly at the slot moves to tomorrow",
			time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 11, 3, 0, 0, 0, time.UTC),
		},
		{
			"after today's slot",
			time.Date(2026, 8, 10, 15, 30, 0, 0, time.UTC),
			time.Date(2026, 8, 11, 3, 0, 0, 0, time.UTC),
		},
		{
			"month boundary",
			time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(sched, tt.after)
			if !got.Equal(tt.want) {
				t.Errorf("NextFire(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestNextFire_Weekly(t *testing.T) {
	sched := domain.Schedule{Type: domain.ScheduleWeekly, Weekday: time.Friday, Offtime: 2*time.Hour + 30*time.Minute}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			// 2026-08-10 is a Monday
			"mid-week walks forward to friday",
			time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 14, 2, 30, 0, 0, time.UTC),
		},
		{
			"friday before the slot fires same day",
			time.Date(2026, 8, 14, 1, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 14, 2, 30, 0, 0, time.UTC),
		},
		{
			"friday after the slot wraps a full week",
			time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 21, 2, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(sched, tt.after)
			if !got.Equal(tt.want) {
				t.Errorf("NextFire(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestNextFire_NonUTCInputNormalized(t *testing.T) {
	sched := domain.Schedule{Type: domain.ScheduleDaily, Offtime: 12 * time.Hour}

	// 08:00+08:00 is 00:00 UTC, so the 12:00 UTC slot is still ahead
	loc := time.FixedZone("UTC+8", 8*3600)
	after := time.Date(2026, 8, 10, 8, 0, 0, 0, loc)

	got := NextFire(sched, after)
	want := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextFire(%v) = %v, want %v", after, got, want)
	}
}

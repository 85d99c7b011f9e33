package trigger

import (
	"time"

	"github.com/Ning0612/Regsync/internal/domain"
)

// NextFire returns the first instant strictly after the given time at
// which the schedule fires. Offtime is an offset from midnight UTC.
func NextFire(s domain.Schedule, after time.Time) time.Time {
	after = after.UTC()
	y, m, d := after.Date()
	candidate := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(s.Offtime)

	switch s.Type {
	case domain.ScheduleWeekly:
		// Walk to the configured weekday first, then skip a week if the
		// slot for today has already passed.
		for candidate.Weekday() != s.Weekday {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 7)
		}
	default:
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 1)
		}
	}
	return candidate
}

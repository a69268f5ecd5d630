package progress

import (
	"time"

	"code-sprint/internal/models"
)

// AdvanceStreak applies a first-time completion made on today. A second
// completion on the same calendar day leaves the streak alone; the day after
// the last completion extends it; any longer gap restarts it at 1.
func AdvanceStreak(p models.Profile, today time.Time) models.Profile {
	day := calendarDay(today)
	if p.LastCompletedDate != nil {
		last := calendarDay(*p.LastCompletedDate)
		if !day.After(last) {
			return p
		}
		if last.AddDate(0, 0, 1).Equal(day) {
			p.CurrentStreak++
		} else {
			p.CurrentStreak = 1
		}
	} else {
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastCompletedDate = &day
	return p
}

// calendarDay keeps the date as seen in t's own location, at UTC midnight.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

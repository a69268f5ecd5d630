package progress

import (
	"testing"
	"time"

	"code-sprint/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAdvanceStreak(t *testing.T) {
	today := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		in          models.Profile
		wantCurrent int
		wantLongest int
	}{
		{"first ever completion", models.Profile{}, 1, 1},
		{"consecutive day", models.Profile{CurrentStreak: 4, LongestStreak: 4, LastCompletedDate: date(2026, 3, 9)}, 5, 5},
		{"gap resets", models.Profile{CurrentStreak: 4, LongestStreak: 7, LastCompletedDate: date(2026, 3, 7)}, 1, 7},
		{"same day is unchanged", models.Profile{CurrentStreak: 2, LongestStreak: 3, LastCompletedDate: date(2026, 3, 10)}, 2, 3},
		{"clock behind last date is unchanged", models.Profile{CurrentStreak: 2, LongestStreak: 2, LastCompletedDate: date(2026, 3, 11)}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceStreak(tt.in, today)
			assert.Equal(t, tt.wantCurrent, got.CurrentStreak)
			assert.Equal(t, tt.wantLongest, got.LongestStreak)
			require.NotNil(t, got.LastCompletedDate)
		})
	}
}

func TestAdvanceStreak_AcrossMonthBoundary(t *testing.T) {
	p := models.Profile{CurrentStreak: 1, LongestStreak: 1, LastCompletedDate: date(2026, 2, 28)}
	got := AdvanceStreak(p, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, got.CurrentStreak)
}

func TestAdvanceStreak_UsesLocalCalendarDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2026-03-09 20:00 UTC is already 2026-03-10 in Tokyo.
	now := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC).In(tokyo)

	got := AdvanceStreak(models.Profile{CurrentStreak: 1, LongestStreak: 1, LastCompletedDate: date(2026, 3, 9)}, now)
	assert.Equal(t, 2, got.CurrentStreak)
	assert.Equal(t, *date(2026, 3, 10), *got.LastCompletedDate)
}

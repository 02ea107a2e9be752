package cost

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// applyResets zeroes any spent counter whose reset timestamp has passed and
// advances that timestamp to the next period boundary. The three periods are
// independent; a single call may reset zero to three of them. It returns
// whether the budget changed.
func applyResets(b *models.CreatorBudget, now time.Time) bool {
	changed := false
	if !now.Before(b.DailyResetAt) {
		b.DailySpent = decimal.Zero
		b.DailyResetAt = nextDailyReset(now)
		changed = true
	}
	if !now.Before(b.WeeklyResetAt) {
		b.WeeklySpent = decimal.Zero
		b.WeeklyResetAt = nextWeeklyReset(now)
		changed = true
	}
	if !now.Before(b.MonthlyResetAt) {
		b.MonthlySpent = decimal.Zero
		b.MonthlyResetAt = nextMonthlyReset(now)
		changed = true
	}
	return changed
}

func nextDailyReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func nextWeeklyReset(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return midnight.AddDate(0, 0, days)
}

func nextMonthlyReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

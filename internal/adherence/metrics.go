package adherence

import (
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

const (
	// HistoryDays streak lookback
	HistoryDays = 90
	// qualifyingPercent minimum daily adherence for a streak day
	qualifyingPercent = 80
)

const dayLayout = "2006-01-02"

// Qualifies reports whether a day meets the streak threshold (>= 80%)
func Qualifies(d models.DayAdherence) bool {
	return d.Total > 0 && d.Taken*100 >= d.Total*qualifyingPercent
}

// GroupByDay buckets doses due at or before now by local calendar day
func GroupByDay(doses []*models.DoseInstance, loc *time.Location, now time.Time) map[string]*models.DayAdherence {
	out := make(map[string]*models.DayAdherence)
	for _, d := range doses {
		if d.DueAt.After(now) {
			continue
		}
		key := d.DueAt.In(loc).Format(dayLayout)
		day, ok := out[key]
		if !ok {
			day = &models.DayAdherence{Date: key}
			out[key] = day
		}
		day.Total++
		if d.Status == models.DoseTaken {
			day.Taken++
		}
	}
	return out
}

// localDay returns the date key offset days before now in loc
func localDay(now time.Time, loc *time.Location, offset int) string {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()-offset, 12, 0, 0, 0, loc).Format(dayLayout)
}

// Streaks current streak walks back from today and stops at the first
// non-qualifying or empty day; longest is the best run over the history.
func Streaks(days map[string]*models.DayAdherence, loc *time.Location, now time.Time) models.StreakSummary {
	var s models.StreakSummary

	for offset := 0; offset < HistoryDays; offset++ {
		day, ok := days[localDay(now, loc, offset)]
		if !ok || !Qualifies(*day) {
			break
		}
		s.CurrentStreak++
	}

	run := 0
	for offset := HistoryDays - 1; offset >= 0; offset-- {
		day, ok := days[localDay(now, loc, offset)]
		if ok && Qualifies(*day) {
			run++
			if run > s.LongestStreak {
				s.LongestStreak = run
			}
			continue
		}
		run = 0
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	return s
}

// CompareWeeks days 0-6 against days 7-13 before now
func CompareWeeks(days map[string]*models.DayAdherence, loc *time.Location, now time.Time) models.WeeklyComparison {
	var w models.WeeklyComparison
	for offset := 0; offset < 14; offset++ {
		day, ok := days[localDay(now, loc, offset)]
		if !ok {
			continue
		}
		if offset < 7 {
			w.ThisWeekTaken += day.Taken
			w.ThisWeekTotal += day.Total
		} else {
			w.LastWeekTaken += day.Taken
			w.LastWeekTotal += day.Total
		}
	}
	w.ThisWeekAverage = percent(w.ThisWeekTaken, w.ThisWeekTotal)
	w.LastWeekAverage = percent(w.LastWeekTaken, w.LastWeekTotal)
	w.IsImproving = w.ThisWeekAverage > w.LastWeekAverage
	return w
}

// RecentDays the last n days oldest first; days without doses have zero totals
func RecentDays(days map[string]*models.DayAdherence, loc *time.Location, now time.Time, n int) []models.DayAdherence {
	out := make([]models.DayAdherence, 0, n)
	for offset := n - 1; offset >= 0; offset-- {
		key := localDay(now, loc, offset)
		if day, ok := days[key]; ok {
			out = append(out, *day)
			continue
		}
		out = append(out, models.DayAdherence{Date: key})
	}
	return out
}

func percent(taken, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(taken) * 100 / float64(total)
}

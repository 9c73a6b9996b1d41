package stock

import (
	"math"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// Window trailing period for rate, trend and adherence
const Window = 7 * 24 * time.Hour

// ProjectDepletion returns when quantity runs out at dailyRate doses per day.
// Zero quantity is depleted now; a non-positive rate is treated as 1/day.
func ProjectDepletion(quantity int, dailyRate float64, now time.Time) time.Time {
	if quantity <= 0 {
		return now
	}
	if dailyRate <= 0 {
		dailyRate = 1
	}
	days := float64(quantity) / dailyRate
	return now.Add(time.Duration(days * float64(24*time.Hour)))
}

// DaysRemaining quantity / rate, 0 when empty
func DaysRemaining(quantity int, dailyRate float64) float64 {
	if quantity <= 0 {
		return 0
	}
	if dailyRate <= 0 {
		dailyRate = 1
	}
	return float64(quantity) / dailyRate
}

// Trend compares taken doses in the two halves of the window ending at now
func Trend(doses []*models.DoseInstance, now time.Time) models.ConsumptionTrend {
	start := now.Add(-Window)
	mid := now.Add(-Window / 2)

	var first, second int
	for _, d := range doses {
		if d.Status != models.DoseTaken || d.DueAt.Before(start) || d.DueAt.After(now) {
			continue
		}
		if d.DueAt.Before(mid) {
			first++
		} else {
			second++
		}
	}

	switch {
	case float64(second) > float64(first)*1.2:
		return models.TrendIncreasing
	case float64(second) < float64(first)*0.8:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// Adherence7d taken / (taken + unresolved scheduled) as a rounded percentage
func Adherence7d(doses []*models.DoseInstance, now time.Time) int {
	start := now.Add(-Window)
	var taken, scheduled int
	for _, d := range doses {
		if d.DueAt.Before(start) || !d.DueAt.Before(now) {
			continue
		}
		switch d.Status {
		case models.DoseTaken:
			taken++
		case models.DoseScheduled:
			scheduled++
		}
	}
	if taken+scheduled == 0 {
		return 0
	}
	return int(math.Round(float64(taken) * 100 / float64(taken+scheduled)))
}

// TakenRate taken doses in the trailing window per day
func TakenRate(doses []*models.DoseInstance, now time.Time) float64 {
	start := now.Add(-Window)
	n := 0
	for _, d := range doses {
		if d.Status == models.DoseTaken && !d.DueAt.Before(start) && !d.DueAt.After(now) {
			n++
		}
	}
	return float64(n) / 7
}

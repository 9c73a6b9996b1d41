package scheduler

import (
	"sort"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// maxCandidates bounds a single schedule expansion
const maxCandidates = 1000

// ExpandSchedule returns the due timestamps of s inside [from, to), ascending.
// Times of day are interpreted in loc. Invalid time entries are skipped.
func ExpandSchedule(s *models.Schedule, loc *time.Location, from, to time.Time) []time.Time {
	if s == nil || !s.Active || !from.Before(to) {
		return nil
	}
	if s.IsRollingInterval() {
		return expandInterval(*s.AnchorAt, time.Duration(s.IntervalHours)*time.Hour, from, to)
	}

	times, _ := s.ParsedTimes()
	if len(times) == 0 {
		return nil
	}

	start := from.In(loc)
	days := int(to.Sub(from).Hours()/24) + 1

	var out []time.Time
	for offset := 0; offset <= days; offset++ {
		day := time.Date(start.Year(), start.Month(), start.Day()+offset, 0, 0, 0, 0, loc)
		if !s.RunsOn(day.Weekday()) {
			continue
		}
		for _, tod := range times {
			due := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour, tod.Minute, 0, 0, loc)
			if due.Before(from) || !due.Before(to) {
				continue
			}
			out = append(out, due)
			if len(out) >= maxCandidates {
				return out
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func expandInterval(anchor time.Time, every time.Duration, from, to time.Time) []time.Time {
	if every <= 0 {
		return nil
	}
	next := anchor
	if next.Before(from) {
		steps := from.Sub(anchor) / every
		next = anchor.Add(steps * every)
		if next.Before(from) {
			next = next.Add(every)
		}
	}

	var out []time.Time
	for ; next.Before(to) && len(out) < maxCandidates; next = next.Add(every) {
		out = append(out, next)
	}
	return out
}

package models

import (
	"fmt"
	"sort"
	"time"
)

// Frequency recurrence kind
type Frequency string

const (
	FrequencyDaily        Frequency = "daily"
	FrequencySpecificDays Frequency = "specific_days"
	FrequencyInterval     Frequency = "interval"
)

// Schedule recurrence rule attached to one medication (schedules table)
type Schedule struct {
	ScheduleID   string    `json:"schedule_id" db:"schedule_id"`
	MedicationID string    `json:"medication_id" db:"medication_id"`
	ProfileID    string    `json:"profile_id" db:"profile_id"`
	Times        []string  `json:"times" db:"times"` // "HH:MM" in the profile timezone
	Frequency    Frequency `json:"frequency" db:"frequency"`
	Weekdays     []int     `json:"weekdays,omitempty" db:"weekdays"` // 0=Sunday, specific_days only
	// IntervalHours and AnchorAt turn an interval schedule into a rolling
	// recurrence; without them it behaves like daily.
	IntervalHours int        `json:"interval_hours,omitempty" db:"interval_hours"`
	AnchorAt      *time.Time `json:"anchor_at,omitempty" db:"anchor_at"`
	Active        bool       `json:"active" db:"active"`
}

// TimeOfDay parsed "HH:MM"
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" (24h)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// ParsedTimes returns the valid times sorted ascending, deduplicated, and the invalid entries
func (s *Schedule) ParsedTimes() ([]TimeOfDay, []string) {
	seen := make(map[TimeOfDay]bool, len(s.Times))
	var out []TimeOfDay
	var invalid []string
	for _, raw := range s.Times {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		if seen[tod] {
			continue
		}
		seen[tod] = true
		out = append(out, tod)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Minute < out[j].Minute
	})
	return out, invalid
}

// RunsOn reports whether the schedule emits doses on weekday
func (s *Schedule) RunsOn(weekday time.Weekday) bool {
	if s.Frequency != FrequencySpecificDays {
		return true
	}
	for _, d := range s.Weekdays {
		if time.Weekday(d) == weekday {
			return true
		}
	}
	return false
}

// IsRollingInterval true interval recurrence with an anchor
func (s *Schedule) IsRollingInterval() bool {
	return s.Frequency == FrequencyInterval && s.IntervalHours > 0 && s.AnchorAt != nil
}

// DailyDoseCount configured doses per day, used as the fallback consumption rate
func (s *Schedule) DailyDoseCount() float64 {
	if s.IsRollingInterval() {
		return 24 / float64(s.IntervalHours)
	}
	times, _ := s.ParsedTimes()
	n := float64(len(times))
	if s.Frequency == FrequencySpecificDays && len(s.Weekdays) > 0 && len(s.Weekdays) < 7 {
		n = n * float64(len(s.Weekdays)) / 7
	}
	return n
}

package models

import "time"

// DayAdherence taken/total for one calendar day
type DayAdherence struct {
	Date  string `json:"date"` // 2006-01-02 in the profile timezone
	Taken int    `json:"taken"`
	Total int    `json:"total"`
}

// StreakSummary gamification counters
type StreakSummary struct {
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// WeeklyComparison trailing 14 days split into two weeks
type WeeklyComparison struct {
	ThisWeekAverage float64 `json:"this_week_average"`
	LastWeekAverage float64 `json:"last_week_average"`
	ThisWeekTaken   int     `json:"this_week_taken"`
	ThisWeekTotal   int     `json:"this_week_total"`
	LastWeekTaken   int     `json:"last_week_taken"`
	LastWeekTotal   int     `json:"last_week_total"`
	IsImproving     bool    `json:"is_improving"`
}

// SuggestionType adaptive hint kind
type SuggestionType string

const (
	SuggestReschedule     SuggestionType = "reschedule"
	SuggestExtraReminder  SuggestionType = "extra_reminder"
	SuggestStreakMotivate SuggestionType = "streak_motivation"
)

// Suggestion informational hint; never applied automatically
type Suggestion struct {
	Type                SuggestionType `json:"type"`
	MedicationID        string         `json:"medication_id"`
	MedicationName      string         `json:"medication_name"`
	Message             string         `json:"message"`
	AverageDelayMinutes int            `json:"average_delay_minutes,omitempty"`
	SuggestedTime       string         `json:"suggested_time,omitempty"`
	MissedCount         int            `json:"missed_count,omitempty"`
	StreakLength        int            `json:"streak_length,omitempty"`
}

// AdherenceSummary read model for dashboards
type AdherenceSummary struct {
	ProfileID   string           `json:"profile_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Streaks     StreakSummary    `json:"streaks"`
	Weekly      WeeklyComparison `json:"weekly"`
	Days        []DayAdherence   `json:"days"`
	Suggestions []Suggestion     `json:"suggestions"`
}

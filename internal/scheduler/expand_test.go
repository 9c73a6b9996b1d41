package scheduler

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

func TestExpandSchedule_SpecificDays(t *testing.T) {
	// 2026-03-02 is a Monday
	from := utc(2, 0)
	s := &models.Schedule{
		Times:     []string{"09:00"},
		Frequency: models.FrequencySpecificDays,
		Weekdays:  []int{int(time.Monday), int(time.Wednesday), int(time.Friday)},
		Active:    true,
	}

	got := ExpandSchedule(s, time.UTC, from, from.AddDate(0, 0, 7))
	want := []time.Time{
		time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandSchedule_IntervalWithoutAnchorActsDaily(t *testing.T) {
	from := utc(2, 0)
	s := &models.Schedule{Times: []string{"06:00", "14:00", "22:00"}, Frequency: models.FrequencyInterval, Active: true}

	got := ExpandSchedule(s, time.UTC, from, from.AddDate(0, 0, 1))
	assert.Len(t, got, 3)
}

func TestExpandSchedule_RollingInterval(t *testing.T) {
	anchor := time.Date(2026, 2, 27, 5, 0, 0, 0, time.UTC)
	s := &models.Schedule{Frequency: models.FrequencyInterval, IntervalHours: 8, AnchorAt: &anchor, Active: true}

	from := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	got := ExpandSchedule(s, time.UTC, from, from.Add(24*time.Hour))
	want := []time.Time{
		time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 5, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandSchedule_SkipsInvalidAndDuplicateTimes(t *testing.T) {
	from := utc(2, 0)
	s := &models.Schedule{Times: []string{"20:00", "8am", "08:00", "20:00"}, Frequency: models.FrequencyDaily, Active: true}

	got := ExpandSchedule(s, time.UTC, from, from.AddDate(0, 0, 1))
	want := []time.Time{utc(2, 8), utc(2, 20)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandSchedule_InactiveOrEmptyWindow(t *testing.T) {
	s := &models.Schedule{Times: []string{"08:00"}, Frequency: models.FrequencyDaily}
	assert.Empty(t, ExpandSchedule(s, time.UTC, utc(2, 0), utc(5, 0)))

	s.Active = true
	assert.Empty(t, ExpandSchedule(s, time.UTC, utc(5, 0), utc(2, 0)))
}

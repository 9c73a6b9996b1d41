package adherence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
)

// MedicationLookup resolves the medications of a profile (cache or repository)
type MedicationLookup interface {
	Medications(ctx context.Context, profileID string) (map[string]*models.Medication, error)
}

// Analyzer streaks, weekly comparison and suggestions from the dose log
type Analyzer struct {
	doses       repository.DoseRepository
	profiles    repository.ProfileRepository
	medications MedicationLookup
	defaultLoc  *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

func NewAnalyzer(doses repository.DoseRepository, profiles repository.ProfileRepository, medications MedicationLookup, defaultLoc *time.Location, logger *zap.Logger) *Analyzer {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Analyzer{
		doses:       doses,
		profiles:    profiles,
		medications: medications,
		defaultLoc:  defaultLoc,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Summary computes the dashboard read model. An empty profile id yields an
// empty summary.
func (a *Analyzer) Summary(ctx context.Context, profileID string) (*models.AdherenceSummary, error) {
	now := a.now()
	sum := &models.AdherenceSummary{ProfileID: profileID, GeneratedAt: now, Days: []models.DayAdherence{}, Suggestions: []models.Suggestion{}}
	if profileID == "" {
		return sum, nil
	}

	loc := a.defaultLoc
	if p, err := a.profiles.GetProfile(ctx, profileID); err != nil {
		a.logger.Warn("Failed to load profile, using default timezone", zap.String("user_id", profileID), zap.Error(err))
	} else {
		loc = p.Location(a.defaultLoc)
	}

	doses, err := a.doses.ListDoses(ctx, profileID, now.AddDate(0, 0, -HistoryDays), now.Add(time.Nanosecond), repository.DoseFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load dose history: %w", err)
	}

	meds, err := a.medications.Medications(ctx, profileID)
	if err != nil {
		return nil, err
	}
	doses = dropOrphans(doses, meds)

	days := GroupByDay(doses, loc, now)
	sum.Streaks = Streaks(days, loc, now)
	sum.Weekly = CompareWeeks(days, loc, now)
	sum.Days = RecentDays(days, loc, now, 14)
	if s := Suggestions(doses, meds, loc, now); len(s) > 0 {
		sum.Suggestions = s
	}
	return sum, nil
}

func dropOrphans(doses []*models.DoseInstance, meds map[string]*models.Medication) []*models.DoseInstance {
	out := doses[:0]
	for _, d := range doses {
		if _, ok := meds[d.MedicationID]; ok {
			out = append(out, d)
		}
	}
	return out
}

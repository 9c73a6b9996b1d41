package evaluator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
)

// Config detection thresholds
type Config struct {
	OverdueWindow        time.Duration
	CriticalAfter        time.Duration
	ElderlyAge           int
	ElderlyCriticalAfter time.Duration
	DuplicateWindow      time.Duration
}

// MedicationLookup resolves the medications of a profile (cache or repository)
type MedicationLookup interface {
	Medications(ctx context.Context, profileID string) (map[string]*models.Medication, error)
}

// State snapshot the rules evaluate against
type State struct {
	ProfileID   string
	Profile     *models.Profile
	Medications map[string]*models.Medication
	Stock       []*models.StockRecord
	Doses       []*models.DoseInstance // recent scheduled + taken doses, orphans removed
	Now         time.Time
}

// Rule one detection rule
type Rule interface {
	Name() string
	Evaluate(state *State) []models.Alert
}

// Evaluator runs every rule against a fresh snapshot and unions the results
type Evaluator struct {
	profiles    repository.ProfileRepository
	medications MedicationLookup
	stock       repository.StockRepository
	doses       repository.DoseRepository
	dismissals  *DismissalLedger
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time

	rules []Rule
}

func NewEvaluator(
	profiles repository.ProfileRepository,
	medications MedicationLookup,
	stock repository.StockRepository,
	doses repository.DoseRepository,
	dismissals *DismissalLedger,
	table *InteractionTable,
	cfg Config,
	logger *zap.Logger,
) *Evaluator {
	e := &Evaluator{
		profiles:    profiles,
		medications: medications,
		stock:       stock,
		doses:       doses,
		dismissals:  dismissals,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}

	e.rules = []Rule{
		NewStockRule(),
		NewMissedDoseRule(cfg),
		NewDuplicateDoseRule(cfg),
	}
	if table != nil {
		e.rules = append(e.rules, NewInteractionRule(table))
	}
	return e
}

// WithClock overrides the clock
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Evaluate returns the active, non-dismissed alerts for the profile
func (e *Evaluator) Evaluate(ctx context.Context, profileID string) ([]models.Alert, error) {
	if profileID == "" {
		return []models.Alert{}, nil
	}

	state, err := e.snapshot(ctx, profileID)
	if err != nil {
		return nil, err
	}

	alerts := make([]models.Alert, 0)
	seen := map[string]bool{}
	for _, rule := range e.rules {
		for _, a := range rule.Evaluate(state) {
			if seen[a.AlertID] {
				continue
			}
			seen[a.AlertID] = true
			a.DetectedAt = state.Now
			alerts = append(alerts, a)
		}
	}

	out := alerts[:0]
	for _, a := range alerts {
		dismissed, err := e.dismissals.IsDismissed(ctx, profileID, a.AlertID)
		if err != nil {
			e.logger.Warn("Failed to read dismissal, showing alert",
				zap.String("user_id", profileID), zap.String("alert_id", a.AlertID), zap.Error(err))
		}
		if !dismissed {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := severityOrder(out[i].Severity), severityOrder(out[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return out[i].AlertID < out[j].AlertID
	})
	return out, nil
}

func (e *Evaluator) snapshot(ctx context.Context, profileID string) (*State, error) {
	now := e.now()
	state := &State{ProfileID: profileID, Now: now}

	profile, err := e.profiles.GetProfile(ctx, profileID)
	if err != nil {
		e.logger.Warn("Failed to load profile", zap.String("user_id", profileID), zap.Error(err))
	}
	state.Profile = profile

	meds, err := e.medications.Medications(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load medications: %w", err)
	}
	state.Medications = meds

	stock, err := e.stock.ListStock(ctx, profileID)
	if err != nil {
		// stock read failures degrade to untracked
		e.logger.Warn("Failed to load stock records", zap.String("user_id", profileID), zap.Error(err))
	}
	state.Stock = stock

	lookback := e.cfg.OverdueWindow
	if e.cfg.DuplicateWindow > lookback {
		lookback = e.cfg.DuplicateWindow
	}
	// doses due earlier can still have been taken inside the window
	from := now.Add(-lookback - 24*time.Hour)
	doses, err := e.doses.ListDoses(ctx, profileID, from, now.Add(time.Nanosecond), repository.DoseFilter{
		Statuses: []models.DoseStatus{models.DoseScheduled, models.DoseTaken},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent doses: %w", err)
	}
	for _, d := range doses {
		if _, ok := meds[d.MedicationID]; ok {
			state.Doses = append(state.Doses, d)
		}
	}
	return state, nil
}

func severityOrder(s models.AlertSeverity) int {
	switch s {
	case models.SeverityCritical:
		return 0
	case models.SeverityUrgent:
		return 1
	default:
		return 2
	}
}

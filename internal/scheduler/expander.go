package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
	"github.com/leplonghi/Horamed-AG-sub003/internal/store"
)

// Skip reasons reported in Result.Reason
const (
	SkipNoSession   = "no_session"
	SkipRecent      = "recent_generation"
	SkipNoSchedules = "no_active_schedules"
	SkipCovered     = "window_covered"
)

// Config expander tuning
type Config struct {
	WindowDays      int
	MinInterval     time.Duration
	Concurrency     int
	DefaultLocation *time.Location
}

// Result outcome of one generation pass
type Result struct {
	ProfileID string `json:"profile_id"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	Schedules int    `json:"schedules"`
	Inserted  int    `json:"inserted"`
	Removed   int64  `json:"removed,omitempty"`
}

// Expander materialises dose instances for a profile's active schedules
type Expander struct {
	profiles  repository.ProfileRepository
	schedules repository.ScheduleRepository
	doses     repository.DoseRepository
	kv        store.KVStore
	notifier  notify.Notifier
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time

	// serialises passes per profile inside this process
	locks sync.Map
}

func NewExpander(
	profiles repository.ProfileRepository,
	schedules repository.ScheduleRepository,
	doses repository.DoseRepository,
	kv store.KVStore,
	notifier notify.Notifier,
	cfg Config,
	logger *zap.Logger,
) *Expander {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Expander{
		profiles:  profiles,
		schedules: schedules,
		doses:     doses,
		kv:        kv,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the clock
func (e *Expander) WithClock(now func() time.Time) *Expander {
	e.now = now
	return e
}

func lastGenerationKey(profileID string) string {
	return "horamed:generation:last:" + profileID
}

// EnsureDosesGenerated makes sure scheduled doses exist for the next
// windowDays days. windowDays <= 0 uses the configured window.
func (e *Expander) EnsureDosesGenerated(ctx context.Context, profileID string, windowDays int, force bool) (*Result, error) {
	res := &Result{ProfileID: profileID}
	if profileID == "" {
		res.Skipped, res.Reason = true, SkipNoSession
		return res, nil
	}
	if windowDays <= 0 {
		windowDays = e.cfg.WindowDays
	}

	unlock := e.lock(profileID)
	defer unlock()

	now := e.now()
	if !force && e.ranRecently(ctx, profileID, now) {
		res.Skipped, res.Reason = true, SkipRecent
		return res, nil
	}

	schedules, err := e.schedules.ListActiveSchedules(ctx, profileID)
	if err != nil {
		return res, fmt.Errorf("failed to load schedules: %w", err)
	}
	res.Schedules = len(schedules)
	if len(schedules) == 0 {
		e.logger.Debug("No active schedules, skipping generation", zap.String("user_id", profileID))
		res.Skipped, res.Reason = true, SkipNoSchedules
		return res, nil
	}

	windowEnd := now.AddDate(0, 0, windowDays)
	if !force {
		existing, err := e.doses.CountScheduled(ctx, profileID, now, windowEnd)
		if err != nil {
			return res, fmt.Errorf("failed to count scheduled doses: %w", err)
		}
		if existing >= len(schedules) {
			res.Skipped, res.Reason = true, SkipCovered
			return res, nil
		}
	}

	loc := e.location(ctx, profileID)
	inserted, err := e.expandAll(ctx, profileID, schedules, loc, now, windowEnd)
	res.Inserted = inserted
	if err != nil {
		return res, err
	}

	if err := e.kv.Set(ctx, lastGenerationKey(profileID), now.UTC().Format(time.RFC3339Nano), e.cfg.MinInterval); err != nil {
		e.logger.Warn("Failed to record generation time", zap.String("user_id", profileID), zap.Error(err))
	}

	if inserted > 0 || force {
		signal := notify.Signal{ProfileID: profileID, Inserted: inserted, WindowEnd: windowEnd, At: now}
		if err := e.notifier.Notify(ctx, signal); err != nil {
			e.logger.Error("Failed to emit reschedule signal", zap.String("user_id", profileID), zap.Error(err))
		}
	}

	e.logger.Info("Dose generation finished",
		zap.String("user_id", profileID),
		zap.Int("schedules", len(schedules)),
		zap.Int("inserted", inserted),
		zap.Bool("force", force),
	)
	return res, nil
}

// Regenerate drops future unconfirmed doses of medicationID and runs a
// forced pass. Past and resolved doses are kept.
func (e *Expander) Regenerate(ctx context.Context, profileID, medicationID string) (*Result, error) {
	if profileID == "" {
		return &Result{Skipped: true, Reason: SkipNoSession}, nil
	}

	var removed int64
	if medicationID != "" {
		n, err := e.doses.DeleteFutureScheduled(ctx, medicationID, e.now())
		if err != nil {
			return nil, fmt.Errorf("failed to clear future doses: %w", err)
		}
		removed = n
	}

	res, err := e.EnsureDosesGenerated(ctx, profileID, 0, true)
	if res != nil {
		res.Removed = removed
	}
	return res, err
}

// SweepMissed flips scheduled doses older than grace to missed
func (e *Expander) SweepMissed(ctx context.Context, profileID string, grace time.Duration) (int64, error) {
	if profileID == "" {
		return 0, nil
	}
	now := e.now()
	n, err := e.doses.MarkMissedBefore(ctx, profileID, now.Add(-grace), now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep missed doses: %w", err)
	}
	if n > 0 {
		e.logger.Info("Marked overdue doses as missed", zap.String("user_id", profileID), zap.Int64("count", n))
	}
	return n, nil
}

func (e *Expander) expandAll(ctx context.Context, profileID string, schedules []*models.Schedule, loc *time.Location, from, to time.Time) (int, error) {
	var (
		inserted int64
		failed   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, s := range schedules {
		s := s
		g.Go(func() error {
			n, err := e.expandOne(gctx, profileID, s, loc, from, to)
			if err != nil {
				// one broken schedule must not block the others
				atomic.AddInt64(&failed, 1)
				e.logger.Error("Failed to expand schedule",
					zap.String("user_id", profileID),
					zap.String("schedule_id", s.ScheduleID),
					zap.String("medication_id", s.MedicationID),
					zap.Error(err),
				)
				return nil
			}
			atomic.AddInt64(&inserted, int64(n))
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		return int(inserted), fmt.Errorf("failed to expand %d of %d schedules", failed, len(schedules))
	}
	return int(inserted), nil
}

func (e *Expander) expandOne(ctx context.Context, profileID string, s *models.Schedule, loc *time.Location, from, to time.Time) (int, error) {
	if _, invalid := s.ParsedTimes(); len(invalid) > 0 {
		e.logger.Warn("Ignoring invalid schedule times",
			zap.String("schedule_id", s.ScheduleID),
			zap.Strings("times", invalid),
		)
	}

	dues := ExpandSchedule(s, loc, from, to)
	if len(dues) == 0 {
		return 0, nil
	}

	created := e.now()
	doses := make([]*models.DoseInstance, 0, len(dues))
	for _, due := range dues {
		doses = append(doses, &models.DoseInstance{
			MedicationID: s.MedicationID,
			ProfileID:    profileID,
			ScheduleID:   s.ScheduleID,
			DueAt:        due.UTC(),
			Status:       models.DoseScheduled,
			CreatedAt:    created,
			UpdatedAt:    created,
		})
	}
	return e.doses.InsertIfAbsent(ctx, doses)
}

func (e *Expander) ranRecently(ctx context.Context, profileID string, now time.Time) bool {
	raw, err := e.kv.Get(ctx, lastGenerationKey(profileID))
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			e.logger.Warn("Failed to read generation time", zap.String("user_id", profileID), zap.Error(err))
		}
		return false
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false
	}
	return now.Sub(last) < e.cfg.MinInterval
}

func (e *Expander) location(ctx context.Context, profileID string) *time.Location {
	p, err := e.profiles.GetProfile(ctx, profileID)
	if err != nil {
		e.logger.Warn("Failed to load profile, using default timezone", zap.String("user_id", profileID), zap.Error(err))
		return e.cfg.DefaultLocation
	}
	return p.Location(e.cfg.DefaultLocation)
}

func (e *Expander) lock(profileID string) func() {
	v, _ := e.locks.LoadOrStore(profileID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/store"
)

// FeedConfig polling cadence
type FeedConfig struct {
	PollInterval time.Duration // cached result is served while younger
	Cooldown     time.Duration // forced refreshes inside this are coalesced
}

// Feed the alert read API: cached evaluation per profile with forced refresh
type Feed struct {
	evaluator  *Evaluator
	dismissals *DismissalLedger
	kv         store.KVStore
	cfg        FeedConfig
	logger     *zap.Logger
	now        func() time.Time

	group singleflight.Group
}

type feedEntry struct {
	EvaluatedAt time.Time      `json:"evaluated_at"`
	Alerts      []models.Alert `json:"alerts"`
}

func NewFeed(evaluator *Evaluator, dismissals *DismissalLedger, kv store.KVStore, cfg FeedConfig, logger *zap.Logger) *Feed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	return &Feed{
		evaluator:  evaluator,
		dismissals: dismissals,
		kv:         kv,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the clock
func (f *Feed) WithClock(now func() time.Time) *Feed {
	f.now = now
	return f
}

func feedKey(profileID string) string {
	return "horamed:alerts:feed:" + profileID
}

// Alerts current alert set. force re-evaluates unless the last evaluation is
// inside the cooldown.
func (f *Feed) Alerts(ctx context.Context, profileID string, force bool) ([]models.Alert, error) {
	if profileID == "" {
		return []models.Alert{}, nil
	}

	maxAge := f.cfg.PollInterval
	if force {
		maxAge = f.cfg.Cooldown
	}
	if entry, ok := f.cached(ctx, profileID); ok && f.now().Sub(entry.EvaluatedAt) < maxAge {
		return entry.Alerts, nil
	}

	v, err, _ := f.group.Do(profileID, func() (interface{}, error) {
		// shared by every coalesced caller
		evalCtx := context.WithoutCancel(ctx)
		alerts, err := f.evaluator.Evaluate(evalCtx, profileID)
		if err != nil {
			return nil, err
		}
		f.store(evalCtx, profileID, feedEntry{EvaluatedAt: f.now(), Alerts: alerts})
		return alerts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Alert), nil
}

// Dismiss suppresses alertID and drops it from the cached feed
func (f *Feed) Dismiss(ctx context.Context, profileID, alertID string) error {
	if err := f.dismissals.Dismiss(ctx, profileID, alertID); err != nil {
		return err
	}
	entry, ok := f.cached(ctx, profileID)
	if !ok {
		return nil
	}
	kept := entry.Alerts[:0]
	for _, a := range entry.Alerts {
		if a.AlertID != alertID {
			kept = append(kept, a)
		}
	}
	entry.Alerts = kept
	f.store(ctx, profileID, entry)
	return nil
}

// Invalidate forgets the cached feed
func (f *Feed) Invalidate(ctx context.Context, profileID string) {
	if err := f.kv.Del(ctx, feedKey(profileID)); err != nil {
		f.logger.Warn("Failed to invalidate alert feed", zap.String("user_id", profileID), zap.Error(err))
	}
}

func (f *Feed) cached(ctx context.Context, profileID string) (feedEntry, bool) {
	raw, err := f.kv.Get(ctx, feedKey(profileID))
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			f.logger.Warn("Failed to read alert feed cache", zap.String("user_id", profileID), zap.Error(err))
		}
		return feedEntry{}, false
	}
	var entry feedEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return feedEntry{}, false
	}
	if entry.Alerts == nil {
		entry.Alerts = []models.Alert{}
	}
	return entry, true
}

func (f *Feed) store(ctx context.Context, profileID string, entry feedEntry) {
	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := f.kv.Set(ctx, feedKey(profileID), string(b), f.cfg.PollInterval); err != nil {
		f.logger.Warn("Failed to write alert feed cache", zap.String("user_id", profileID), zap.Error(err))
	}
}

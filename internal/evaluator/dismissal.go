package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/store"
)

// DismissalLedger per-profile record of dismissed alert ids. A dismissal
// suppresses its alert for ttl.
type DismissalLedger struct {
	kv  store.KVStore
	ttl time.Duration
	now func() time.Time
}

func NewDismissalLedger(kv store.KVStore, ttl time.Duration) *DismissalLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DismissalLedger{kv: kv, ttl: ttl, now: time.Now}
}

// WithClock overrides the clock
func (l *DismissalLedger) WithClock(now func() time.Time) *DismissalLedger {
	l.now = now
	return l
}

func dismissalKey(profileID, alertID string) string {
	return "horamed:alerts:dismissed:" + profileID + ":" + alertID
}

// Dismiss records alertID as dismissed now
func (l *DismissalLedger) Dismiss(ctx context.Context, profileID, alertID string) error {
	if profileID == "" || alertID == "" {
		return fmt.Errorf("profile_id and alert_id are required")
	}
	at := l.now().UTC().Format(time.RFC3339Nano)
	if err := l.kv.Set(ctx, dismissalKey(profileID, alertID), at, l.ttl); err != nil {
		return fmt.Errorf("failed to record dismissal: %w", err)
	}
	return nil
}

// IsDismissed true while the dismissal is younger than ttl
func (l *DismissalLedger) IsDismissed(ctx context.Context, profileID, alertID string) (bool, error) {
	raw, err := l.kv.Get(ctx, dismissalKey(profileID, alertID))
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, nil
	}
	return l.now().Sub(at) < l.ttl, nil
}

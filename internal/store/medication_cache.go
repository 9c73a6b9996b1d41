package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// MedicationSource the uncached lookup
type MedicationSource interface {
	ListMedications(ctx context.Context, profileID string, includeInactive bool) ([]*models.Medication, error)
}

// MedicationCache per-profile medication list with TTL. Invalidate is called
// from the medication event path.
type MedicationCache struct {
	kv     KVStore
	source MedicationSource
	ttl    time.Duration
	logger *zap.Logger
}

func NewMedicationCache(kv KVStore, source MedicationSource, ttl time.Duration, logger *zap.Logger) *MedicationCache {
	return &MedicationCache{kv: kv, source: source, ttl: ttl, logger: logger}
}

func medicationCacheKey(profileID string) string {
	return "horamed:medications:" + profileID
}

// Medications all medications of the profile, inactive included, keyed by id
func (c *MedicationCache) Medications(ctx context.Context, profileID string) (map[string]*models.Medication, error) {
	key := medicationCacheKey(profileID)

	if raw, err := c.kv.Get(ctx, key); err == nil {
		var meds []*models.Medication
		if err := json.Unmarshal([]byte(raw), &meds); err == nil {
			return indexMedications(meds), nil
		}
		c.logger.Warn("Discarding undecodable medication cache entry", zap.String("profile_id", profileID))
	} else if err != ErrCacheMiss {
		c.logger.Warn("Medication cache read failed", zap.String("profile_id", profileID), zap.Error(err))
	}

	meds, err := c.source.ListMedications(ctx, profileID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load medications: %w", err)
	}

	if b, err := json.Marshal(meds); err == nil {
		if err := c.kv.Set(ctx, key, string(b), c.ttl); err != nil {
			c.logger.Warn("Medication cache write failed", zap.String("profile_id", profileID), zap.Error(err))
		}
	}
	return indexMedications(meds), nil
}

// Invalidate drops the cached list for the profile
func (c *MedicationCache) Invalidate(ctx context.Context, profileID string) error {
	return c.kv.Del(ctx, medicationCacheKey(profileID))
}

func indexMedications(meds []*models.Medication) map[string]*models.Medication {
	out := make(map[string]*models.Medication, len(meds))
	for _, m := range meds {
		out[m.MedicationID] = m
	}
	return out
}

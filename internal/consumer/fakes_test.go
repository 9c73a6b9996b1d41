package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/scheduler"
)

type fakeGenerator struct {
	mu          sync.Mutex
	generated   []string
	swept       []string
	regenerated [][2]string
	failFor     map[string]bool
}

func (f *fakeGenerator) EnsureDosesGenerated(_ context.Context, profileID string, _ int, _ bool) (*scheduler.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, profileID)
	if f.failFor[profileID] {
		return nil, errors.New("boom")
	}
	return &scheduler.Result{ProfileID: profileID, Inserted: 1}, nil
}

func (f *fakeGenerator) Regenerate(_ context.Context, profileID, medicationID string) (*scheduler.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regenerated = append(f.regenerated, [2]string{profileID, medicationID})
	if f.failFor[profileID] {
		return nil, errors.New("boom")
	}
	return &scheduler.Result{ProfileID: profileID}, nil
}

func (f *fakeGenerator) SweepMissed(_ context.Context, profileID string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept = append(f.swept, profileID)
	return 0, nil
}

func (f *fakeGenerator) generatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generated)
}

func (f *fakeGenerator) regeneratedCalls() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.regenerated...)
}

type fakeLister struct {
	profiles []string
	err      error
}

func (f fakeLister) ListProfilesWithActiveSchedules(context.Context) ([]string, error) {
	return f.profiles, f.err
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingInvalidator) Invalidate(_ context.Context, profileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, profileID)
	return nil
}

type countingFeed struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingFeed) Invalidate(_ context.Context, profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, profileID)
}

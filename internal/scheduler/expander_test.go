package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
	"github.com/leplonghi/Horamed-AG-sub003/internal/store"
)

type recordingNotifier struct {
	mu      sync.Mutex
	signals []notify.Signal
}

func (r *recordingNotifier) Notify(_ context.Context, s notify.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
	return nil
}

type fixture struct {
	store    *repository.MemoryStore
	kv       *store.MemoryKVStore
	notifier *recordingNotifier
	expander *Expander
	now      time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		notifier: &recordingNotifier{},
		now:      now,
	}
	f.kv = store.NewMemoryKVStore().WithClock(func() time.Time { return f.now })
	f.expander = NewExpander(f.store, f.store, f.store, f.kv, f.notifier, Config{
		WindowDays:  7,
		MinInterval: 6 * time.Hour,
		Concurrency: 2,
	}, zap.NewNop()).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) addDaily(medID string, times ...string) {
	f.store.PutProfile(models.Profile{ProfileID: "p1", Timezone: "UTC"})
	f.store.PutMedication(models.Medication{MedicationID: medID, ProfileID: "p1", Name: medID, Category: models.CategoryDrug, Active: true})
	f.store.PutSchedule(models.Schedule{ScheduleID: "s-" + medID, MedicationID: medID, Times: times, Frequency: models.FrequencyDaily, Active: true})
}

func (f *fixture) dueTimes(t *testing.T, medID string) []time.Time {
	t.Helper()
	doses, err := f.store.ListDoses(context.Background(), "p1", f.now.AddDate(0, 0, -30), f.now.AddDate(0, 0, 30), repository.DoseFilter{MedicationID: medID})
	require.NoError(t, err)
	out := make([]time.Time, 0, len(doses))
	for _, d := range doses {
		out = append(out, d.DueAt)
	}
	return out
}

func utc(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestEnsureDosesGenerated_TwoDayWindow(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	f.addDaily("paracetamol", "08:00", "20:00")

	res, err := f.expander.EnsureDosesGenerated(context.Background(), "p1", 2, false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 4, res.Inserted)

	want := []time.Time{utc(2, 8), utc(2, 20), utc(3, 8), utc(3, 20)}
	if diff := cmp.Diff(want, f.dueTimes(t, "paracetamol")); diff != "" {
		t.Errorf("due times mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, f.notifier.signals, 1)
	assert.Equal(t, 4, f.notifier.signals[0].Inserted)
}

func TestEnsureDosesGenerated_Idempotent(t *testing.T) {
	f := newFixture(t, utc(2, 7))
	f.addDaily("paracetamol", "08:00", "20:00")
	ctx := context.Background()

	_, err := f.expander.EnsureDosesGenerated(ctx, "p1", 7, true)
	require.NoError(t, err)
	first := f.dueTimes(t, "paracetamol")

	res, err := f.expander.EnsureDosesGenerated(ctx, "p1", 7, true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	if diff := cmp.Diff(first, f.dueTimes(t, "paracetamol")); diff != "" {
		t.Errorf("second pass changed doses (-first +second):\n%s", diff)
	}
	assert.Len(t, first, 14)
}

func TestEnsureDosesGenerated_ConcurrentPassesDoNotDuplicate(t *testing.T) {
	f := newFixture(t, utc(2, 7))
	f.addDaily("a", "08:00", "20:00")
	f.addDaily("b", "12:00")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.expander.EnsureDosesGenerated(context.Background(), "p1", 7, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.dueTimes(t, "a"), 14)
	assert.Len(t, f.dueTimes(t, "b"), 7)
}

func TestEnsureDosesGenerated_SkipsRecentRun(t *testing.T) {
	f := newFixture(t, utc(2, 7))
	f.addDaily("paracetamol", "08:00")
	ctx := context.Background()

	_, err := f.expander.EnsureDosesGenerated(ctx, "p1", 7, false)
	require.NoError(t, err)

	f.now = f.now.Add(5 * time.Hour)
	res, err := f.expander.EnsureDosesGenerated(ctx, "p1", 7, false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, SkipRecent, res.Reason)

	res, err = f.expander.EnsureDosesGenerated(ctx, "p1", 7, true)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestEnsureDosesGenerated_CoverageHeuristic(t *testing.T) {
	f := newFixture(t, utc(2, 7))
	f.addDaily("paracetamol", "08:00")
	f.store.PutDose(models.DoseInstance{MedicationID: "paracetamol", ProfileID: "p1", DueAt: utc(4, 8), Status: models.DoseScheduled})

	res, err := f.expander.EnsureDosesGenerated(context.Background(), "p1", 7, false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, SkipCovered, res.Reason)
	assert.Empty(t, f.notifier.signals)
}

func TestEnsureDosesGenerated_NoSchedulesOrSession(t *testing.T) {
	f := newFixture(t, utc(2, 7))

	res, err := f.expander.EnsureDosesGenerated(context.Background(), "p1", 7, false)
	require.NoError(t, err)
	assert.Equal(t, SkipNoSchedules, res.Reason)

	res, err = f.expander.EnsureDosesGenerated(context.Background(), "", 7, true)
	require.NoError(t, err)
	assert.Equal(t, SkipNoSession, res.Reason)
}

func TestEnsureDosesGenerated_InactiveScheduleStopsButKeepsHistory(t *testing.T) {
	f := newFixture(t, utc(2, 7))
	f.addDaily("paracetamol", "08:00")
	ctx := context.Background()

	_, err := f.expander.EnsureDosesGenerated(ctx, "p1", 2, true)
	require.NoError(t, err)
	require.Len(t, f.dueTimes(t, "paracetamol"), 2)

	f.store.PutSchedule(models.Schedule{ScheduleID: "s-paracetamol", MedicationID: "paracetamol", Times: []string{"08:00"}, Frequency: models.FrequencyDaily, Active: false})
	f.now = utc(4, 7)
	res, err := f.expander.EnsureDosesGenerated(ctx, "p1", 2, true)
	require.NoError(t, err)
	assert.Equal(t, SkipNoSchedules, res.Reason)
	assert.Len(t, f.dueTimes(t, "paracetamol"), 2)
}

func TestEnsureDosesGenerated_ProfileTimezone(t *testing.T) {
	f := newFixture(t, utc(2, 0))
	f.addDaily("losartana", "08:00")
	f.store.PutProfile(models.Profile{ProfileID: "p1", Timezone: "America/Sao_Paulo"})

	_, err := f.expander.EnsureDosesGenerated(context.Background(), "p1", 1, true)
	require.NoError(t, err)

	// 08:00 in Sao Paulo is 11:00 UTC
	want := []time.Time{utc(2, 11)}
	if diff := cmp.Diff(want, f.dueTimes(t, "losartana")); diff != "" {
		t.Errorf("due times mismatch (-want +got):\n%s", diff)
	}
}

func TestRegenerate_ReplacesFutureScheduledOnly(t *testing.T) {
	f := newFixture(t, utc(2, 7))
	f.addDaily("paracetamol", "08:00")
	ctx := context.Background()

	_, err := f.expander.EnsureDosesGenerated(ctx, "p1", 3, true)
	require.NoError(t, err)

	f.now = utc(2, 9)
	doses, err := f.store.ListDoses(ctx, "p1", utc(2, 0), utc(2, 23), repository.DoseFilter{})
	require.NoError(t, err)
	require.Len(t, doses, 1)
	taken := utc(2, 8)
	ok, err := f.store.TransitionStatus(ctx, doses[0].DoseID, models.DoseTaken, &taken, nil, f.now)
	require.NoError(t, err)
	require.True(t, ok)

	f.store.PutSchedule(models.Schedule{ScheduleID: "s-paracetamol", MedicationID: "paracetamol", Times: []string{"10:00"}, Frequency: models.FrequencyDaily, Active: true})
	res, err := f.expander.Regenerate(ctx, "p1", "paracetamol")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Removed)

	want := []time.Time{utc(2, 8)}
	for day := 2; day <= 8; day++ {
		want = append(want, utc(day, 10))
	}
	if diff := cmp.Diff(want, f.dueTimes(t, "paracetamol")); diff != "" {
		t.Errorf("due times mismatch (-want +got):\n%s", diff)
	}
}

func TestSweepMissed(t *testing.T) {
	f := newFixture(t, utc(2, 20))
	f.store.PutDose(models.DoseInstance{DoseID: "old", MedicationID: "m", ProfileID: "p1", DueAt: utc(2, 8), Status: models.DoseScheduled})
	f.store.PutDose(models.DoseInstance{DoseID: "recent", MedicationID: "m", ProfileID: "p1", DueAt: utc(2, 18), Status: models.DoseScheduled})

	n, err := f.expander.SweepMissed(context.Background(), "p1", 4*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	d, err := f.store.GetDose(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, models.DoseMissed, d.Status)
	d, err = f.store.GetDose(context.Background(), "recent")
	require.NoError(t, err)
	assert.Equal(t, models.DoseScheduled, d.Status)
}

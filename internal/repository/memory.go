package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// MemoryStore backs every repository interface when DB is disabled and in tests.
// The (medication, due_at) key map plays the role of the unique index.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]*models.Profile
	medications map[string]*models.Medication
	schedules   map[string]*models.Schedule
	doses       map[string]*models.DoseInstance
	doseKeys    map[models.DoseKey]string
	stock       map[string]*models.StockRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    map[string]*models.Profile{},
		medications: map[string]*models.Medication{},
		schedules:   map[string]*models.Schedule{},
		doses:       map[string]*models.DoseInstance{},
		doseKeys:    map[models.DoseKey]string{},
		stock:       map[string]*models.StockRecord{},
	}
}

// --- seeding ---

func (s *MemoryStore) PutProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ProfileID] = &p
}

func (s *MemoryStore) PutMedication(m models.Medication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medications[m.MedicationID] = &m
}

func (s *MemoryStore) PutSchedule(sc models.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ScheduleID == "" {
		sc.ScheduleID = uuid.NewString()
	}
	sc.Times = append([]string(nil), sc.Times...)
	sc.Weekdays = append([]int(nil), sc.Weekdays...)
	s.schedules[sc.ScheduleID] = &sc
}

func (s *MemoryStore) PutStock(rec models.StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[rec.MedicationID] = rec.Clone()
}

// PutDose stores d as is, replacing any dose with the same key
func (s *MemoryStore) PutDose(d models.DoseInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.DoseID == "" {
		d.DoseID = uuid.NewString()
	}
	if old, ok := s.doseKeys[d.Key()]; ok {
		delete(s.doses, old)
	}
	s.doses[d.DoseID] = &d
	s.doseKeys[d.Key()] = d.DoseID
}

// --- ProfileRepository ---

func (s *MemoryStore) GetProfile(_ context.Context, profileID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// --- MedicationRepository ---

func (s *MemoryStore) ListMedications(_ context.Context, profileID string, includeInactive bool) ([]*models.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Medication
	for _, m := range s.medications {
		if m.ProfileID != profileID || (!includeInactive && !m.Active) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicationID < out[j].MedicationID })
	return out, nil
}

func (s *MemoryStore) GetMedication(_ context.Context, medicationID string) (*models.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.medications[medicationID]
	if !ok {
		return nil, fmt.Errorf("medication %s: %w", medicationID, models.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) DeactivateMedication(_ context.Context, profileID, medicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.medications[medicationID]
	if !ok || m.ProfileID != profileID {
		return fmt.Errorf("medication %s: %w", medicationID, models.ErrNotFound)
	}
	m.Active = false
	return nil
}

// --- ScheduleRepository ---

func (s *MemoryStore) ListActiveSchedules(_ context.Context, profileID string) ([]*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Schedule
	for _, sc := range s.schedules {
		m, ok := s.medications[sc.MedicationID]
		if !ok || !m.Active || !sc.Active || m.ProfileID != profileID {
			continue
		}
		cp := *sc
		cp.ProfileID = m.ProfileID
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleID < out[j].ScheduleID })
	return out, nil
}

func (s *MemoryStore) ListProfilesWithActiveSchedules(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, sc := range s.schedules {
		m, ok := s.medications[sc.MedicationID]
		if !ok || !m.Active || !sc.Active || seen[m.ProfileID] {
			continue
		}
		seen[m.ProfileID] = true
		out = append(out, m.ProfileID)
	}
	sort.Strings(out)
	return out, nil
}

// --- DoseRepository ---

func (s *MemoryStore) InsertIfAbsent(_ context.Context, doses []*models.DoseInstance) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, d := range doses {
		if _, exists := s.doseKeys[d.Key()]; exists {
			continue
		}
		if d.DoseID == "" {
			d.DoseID = uuid.NewString()
		}
		if d.Status == "" {
			d.Status = models.DoseScheduled
		}
		cp := *d
		if cp.UpdatedAt.IsZero() {
			cp.UpdatedAt = cp.CreatedAt
		}
		s.doses[cp.DoseID] = &cp
		s.doseKeys[cp.Key()] = cp.DoseID
		inserted++
	}
	return inserted, nil
}

func (s *MemoryStore) GetDose(_ context.Context, doseID string) (*models.DoseInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doses[doseID]
	if !ok {
		return nil, fmt.Errorf("dose %s: %w", doseID, models.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDoses(_ context.Context, profileID string, from, to time.Time, filter DoseFilter) ([]*models.DoseInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DoseInstance
	for _, d := range s.doses {
		if d.ProfileID != profileID || d.DueAt.Before(from) || !d.DueAt.Before(to) {
			continue
		}
		if filter.MedicationID != "" && d.MedicationID != filter.MedicationID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, d.Status) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].MedicationID < out[j].MedicationID
	})
	return out, nil
}

func (s *MemoryStore) CountScheduled(ctx context.Context, profileID string, from, to time.Time) (int, error) {
	doses, err := s.ListDoses(ctx, profileID, from, to, DoseFilter{Statuses: []models.DoseStatus{models.DoseScheduled}})
	return len(doses), err
}

func (s *MemoryStore) TransitionStatus(_ context.Context, doseID string, status models.DoseStatus, takenAt *time.Time, delayMinutes *int, at time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, models.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doses[doseID]
	if !ok || d.Status != models.DoseScheduled {
		return false, nil
	}
	d.Status = status
	d.TakenAt = takenAt
	d.DelayMinutes = delayMinutes
	d.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) DeleteFutureScheduled(_ context.Context, medicationID string, from time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, d := range s.doses {
		if d.MedicationID == medicationID && d.Status == models.DoseScheduled && !d.DueAt.Before(from) {
			delete(s.doses, id)
			delete(s.doseKeys, d.Key())
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MarkMissedBefore(_ context.Context, profileID string, cutoff, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, d := range s.doses {
		if d.ProfileID == profileID && d.Status == models.DoseScheduled && d.DueAt.Before(cutoff) {
			d.Status = models.DoseMissed
			d.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

// --- StockRepository ---

func (s *MemoryStore) GetStock(_ context.Context, medicationID string, historySince time.Time) (*models.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.stock[medicationID]
	if !ok {
		return nil, models.ErrStockNotTracked
	}
	cp := rec.Clone()
	cp.History = cp.History[:0]
	for _, e := range rec.History {
		if !e.OccurredAt.Before(historySince) {
			cp.History = append(cp.History, e)
		}
	}
	return cp, nil
}

func (s *MemoryStore) ListStock(_ context.Context, profileID string) ([]*models.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.StockRecord
	for id, rec := range s.stock {
		m, ok := s.medications[id]
		if !ok || m.ProfileID != profileID {
			continue
		}
		cp := rec.Clone()
		cp.History = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicationID < out[j].MedicationID })
	return out, nil
}

func (s *MemoryStore) ApplyMutation(_ context.Context, medicationID string, fn StockMutation) (*models.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.stock[medicationID]
	if !ok {
		return nil, models.ErrStockNotTracked
	}
	work := rec.Clone()
	work.History = nil
	entry, err := fn(work)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return work, nil
	}
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	history := append(rec.History, *entry)
	stored := work.Clone()
	stored.History = history
	s.stock[medicationID] = stored
	work.History = []models.ConsumptionEntry{*entry}
	return work, nil
}

func hasStatus(statuses []models.DoseStatus, st models.DoseStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

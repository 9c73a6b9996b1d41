package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
)

// Ledger per-medication stock counter with depletion projection
type Ledger struct {
	stock       repository.StockRepository
	doses       repository.DoseRepository
	schedules   repository.ScheduleRepository
	medications repository.MedicationRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewLedger(
	stock repository.StockRepository,
	doses repository.DoseRepository,
	schedules repository.ScheduleRepository,
	medications repository.MedicationRepository,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		stock:       stock,
		doses:       doses,
		schedules:   schedules,
		medications: medications,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// DecrementOnDoseTaken consumes one unit. Untracked medications return
// (nil, nil); an empty stock stays at zero.
func (l *Ledger) DecrementOnDoseTaken(ctx context.Context, medicationID string) (*models.StockRecord, error) {
	now := l.now()
	rate := l.dailyRate(ctx, medicationID, now)

	rec, err := l.stock.ApplyMutation(ctx, medicationID, func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		if r.Quantity <= 0 {
			r.Quantity = 0
			return nil, nil
		}
		r.Quantity--
		p := ProjectDepletion(r.Quantity, rate, now)
		r.ProjectedDepletionAt = &p
		r.UpdatedAt = now
		return &models.ConsumptionEntry{OccurredAt: now, Amount: -1, Reason: models.ReasonTaken}, nil
	})
	if err != nil {
		if errors.Is(err, models.ErrStockNotTracked) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return rec, nil
}

// Refill adds quantity units and resets the refill baseline
func (l *Ledger) Refill(ctx context.Context, medicationID string, quantity int) (*models.StockRecord, error) {
	if quantity <= 0 {
		return nil, models.ErrInvalidQuantity
	}
	now := l.now()
	rate := l.dailyRate(ctx, medicationID, now)

	rec, err := l.stock.ApplyMutation(ctx, medicationID, func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		r.Quantity += quantity
		r.TotalAtRefill = r.Quantity
		r.LastRefillAt = &now
		p := ProjectDepletion(r.Quantity, rate, now)
		r.ProjectedDepletionAt = &p
		r.UpdatedAt = now
		return &models.ConsumptionEntry{OccurredAt: now, Amount: quantity, Reason: models.ReasonRefill}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refill stock: %w", err)
	}
	return rec, nil
}

// Adjust applies a manual correction. The result is clamped at zero and the
// history records the change actually applied.
func (l *Ledger) Adjust(ctx context.Context, medicationID string, delta int, reason models.ConsumptionReason) (*models.StockRecord, error) {
	if delta == 0 {
		return nil, models.ErrInvalidQuantity
	}
	switch reason {
	case models.ReasonAdjusted:
	case models.ReasonLost:
		if delta > 0 {
			return nil, models.ErrInvalidQuantity
		}
	default:
		return nil, fmt.Errorf("unsupported adjustment reason %q: %w", reason, models.ErrInvalidQuantity)
	}

	now := l.now()
	rate := l.dailyRate(ctx, medicationID, now)

	rec, err := l.stock.ApplyMutation(ctx, medicationID, func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		next := r.Quantity + delta
		if next < 0 {
			next = 0
		}
		applied := next - r.Quantity
		if applied == 0 {
			return nil, nil
		}
		r.Quantity = next
		p := ProjectDepletion(r.Quantity, rate, now)
		r.ProjectedDepletionAt = &p
		r.UpdatedAt = now
		return &models.ConsumptionEntry{OccurredAt: now, Amount: applied, Reason: reason}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	return rec, nil
}

// Summary read model; read failures degrade to an untracked summary
func (l *Ledger) Summary(ctx context.Context, medicationID string) *models.StockSummary {
	now := l.now()
	sum := &models.StockSummary{MedicationID: medicationID, Trend: models.TrendStable}

	rec, err := l.stock.GetStock(ctx, medicationID, now.Add(-Window))
	if err != nil {
		if !errors.Is(err, models.ErrStockNotTracked) {
			l.logger.Warn("Failed to read stock, treating as untracked",
				zap.String("medication_id", medicationID), zap.Error(err))
		}
		return sum
	}

	doses := l.recentDoses(ctx, medicationID, now)
	rate := l.rateFrom(ctx, medicationID, doses, now)

	sum.Tracked = true
	sum.Record = rec
	sum.DailyRate = rate
	sum.DaysRemaining = DaysRemaining(rec.Quantity, rate)
	p := ProjectDepletion(rec.Quantity, rate, now)
	sum.ProjectedDepletionAt = &p
	sum.Trend = Trend(doses, now)
	sum.Adherence7d = Adherence7d(doses, now)
	return sum
}

func (l *Ledger) dailyRate(ctx context.Context, medicationID string, now time.Time) float64 {
	return l.rateFrom(ctx, medicationID, l.recentDoses(ctx, medicationID, now), now)
}

// rateFrom: trailing taken rate, else configured doses per day, else 1
func (l *Ledger) rateFrom(ctx context.Context, medicationID string, doses []*models.DoseInstance, now time.Time) float64 {
	if rate := TakenRate(doses, now); rate > 0 {
		return rate
	}
	if rate := l.scheduledRate(ctx, medicationID); rate > 0 {
		return rate
	}
	return 1
}

func (l *Ledger) recentDoses(ctx context.Context, medicationID string, now time.Time) []*models.DoseInstance {
	med, err := l.medications.GetMedication(ctx, medicationID)
	if err != nil {
		return nil
	}
	doses, err := l.doses.ListDoses(ctx, med.ProfileID, now.Add(-Window), now.Add(time.Nanosecond), repository.DoseFilter{MedicationID: medicationID})
	if err != nil {
		l.logger.Warn("Failed to load recent doses", zap.String("medication_id", medicationID), zap.Error(err))
		return nil
	}
	return doses
}

func (l *Ledger) scheduledRate(ctx context.Context, medicationID string) float64 {
	med, err := l.medications.GetMedication(ctx, medicationID)
	if err != nil {
		return 0
	}
	schedules, err := l.schedules.ListActiveSchedules(ctx, med.ProfileID)
	if err != nil {
		l.logger.Warn("Failed to load schedules", zap.String("medication_id", medicationID), zap.Error(err))
		return 0
	}
	var rate float64
	for _, s := range schedules {
		if s.MedicationID == medicationID {
			rate += s.DailyDoseCount()
		}
	}
	return rate
}

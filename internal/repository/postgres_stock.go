package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// PostgresStockRepo stock_records + stock_history
type PostgresStockRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStockRepo(db *sql.DB, logger *zap.Logger) *PostgresStockRepo {
	return &PostgresStockRepo{db: db, logger: logger}
}

const stockColumns = `s.medication_id, s.quantity, s.unit, s.total_at_refill, s.last_refill_at,
	s.projected_depletion_at, s.updated_at`

func (r *PostgresStockRepo) GetStock(ctx context.Context, medicationID string, historySince time.Time) (*models.StockRecord, error) {
	if medicationID == "" {
		return nil, fmt.Errorf("medication_id is required")
	}

	query := `SELECT ` + stockColumns + ` FROM stock_records s WHERE s.medication_id = $1`
	rec, err := scanStock(r.db.QueryRowContext(ctx, query, medicationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrStockNotTracked
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_id, occurred_at, amount, reason
		FROM stock_history
		WHERE medication_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at, entry_id`, medicationID, historySince.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query stock history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.ConsumptionEntry
		var reason string
		if err := rows.Scan(&e.EntryID, &e.OccurredAt, &e.Amount, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan stock history: %w", err)
		}
		e.Reason = models.ConsumptionReason(reason)
		rec.History = append(rec.History, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock history: %w", err)
	}
	return rec, nil
}

func (r *PostgresStockRepo) ListStock(ctx context.Context, profileID string) ([]*models.StockRecord, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile_id is required")
	}

	query := `
		SELECT ` + stockColumns + `
		FROM stock_records s
		JOIN medications m ON m.medication_id = s.medication_id
		WHERE m.profile_id = $1
		ORDER BY s.medication_id
	`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock records: %w", err)
	}
	defer rows.Close()

	var out []*models.StockRecord
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock records: %w", err)
	}
	return out, nil
}

func (r *PostgresStockRepo) ApplyMutation(ctx context.Context, medicationID string, fn StockMutation) (*models.StockRecord, error) {
	if medicationID == "" {
		return nil, fmt.Errorf("medication_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// row lock serialises concurrent decrements
	query := `SELECT ` + stockColumns + ` FROM stock_records s WHERE s.medication_id = $1 FOR UPDATE`
	rec, err := scanStock(tx.QueryRowContext(ctx, query, medicationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrStockNotTracked
		}
		return nil, err
	}

	entry, err := fn(rec)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return rec, tx.Commit()
	}
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stock_records
		SET quantity = $2, total_at_refill = $3, last_refill_at = $4,
			projected_depletion_at = $5, updated_at = $6
		WHERE medication_id = $1`,
		medicationID, rec.Quantity, rec.TotalAtRefill, nullTime(rec.LastRefillAt),
		nullTime(rec.ProjectedDepletionAt), rec.UpdatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update stock record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_history (entry_id, medication_id, occurred_at, amount, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.EntryID, medicationID, entry.OccurredAt.UTC(), entry.Amount, string(entry.Reason))
	if err != nil {
		return nil, fmt.Errorf("failed to insert stock history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	rec.History = append(rec.History, *entry)
	return rec, nil
}

func scanStock(row rowScanner) (*models.StockRecord, error) {
	var (
		rec        models.StockRecord
		lastRefill sql.NullTime
		projected  sql.NullTime
	)
	if err := row.Scan(&rec.MedicationID, &rec.Quantity, &rec.Unit, &rec.TotalAtRefill,
		&lastRefill, &projected, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan stock record: %w", err)
	}
	if lastRefill.Valid {
		t := lastRefill.Time
		rec.LastRefillAt = &t
	}
	if projected.Valid {
		t := projected.Time
		rec.ProjectedDepletionAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// PostgresDoseRepo dose_instances table
type PostgresDoseRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDoseRepo(db *sql.DB, logger *zap.Logger) *PostgresDoseRepo {
	return &PostgresDoseRepo{db: db, logger: logger}
}

const doseColumns = `dose_id, medication_id, profile_id, schedule_id, due_at, status,
	taken_at, delay_minutes, created_at, updated_at`

func (r *PostgresDoseRepo) InsertIfAbsent(ctx context.Context, doses []*models.DoseInstance) (int, error) {
	if len(doses) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// uq_dose_medication_due makes concurrent passes harmless
	query := `
		INSERT INTO dose_instances (
			dose_id, medication_id, profile_id, schedule_id, due_at, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (medication_id, due_at) DO NOTHING
	`
	inserted := 0
	for _, d := range doses {
		if d.DoseID == "" {
			d.DoseID = uuid.NewString()
		}
		if d.Status == "" {
			d.Status = models.DoseScheduled
		}
		var scheduleID any
		if d.ScheduleID != "" {
			scheduleID = d.ScheduleID
		}
		res, err := tx.ExecContext(ctx, query, d.DoseID, d.MedicationID, d.ProfileID, scheduleID,
			d.DueAt.UTC(), string(d.Status), d.CreatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert dose instance: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

func (r *PostgresDoseRepo) GetDose(ctx context.Context, doseID string) (*models.DoseInstance, error) {
	if doseID == "" {
		return nil, fmt.Errorf("dose_id is required")
	}
	query := `SELECT ` + doseColumns + ` FROM dose_instances WHERE dose_id = $1`
	d, err := scanDose(r.db.QueryRowContext(ctx, query, doseID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("dose %s: %w", doseID, models.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (r *PostgresDoseRepo) ListDoses(ctx context.Context, profileID string, from, to time.Time, filter DoseFilter) ([]*models.DoseInstance, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile_id is required")
	}

	where := []string{"profile_id = $1", "due_at >= $2", "due_at < $3"}
	args := []any{profileID, from.UTC(), to.UTC()}
	argN := 4
	if filter.MedicationID != "" {
		where = append(where, fmt.Sprintf("medication_id = $%d", argN))
		args = append(args, filter.MedicationID)
		argN++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", argN))
		args = append(args, pq.Array(statuses))
	}

	query := `SELECT ` + doseColumns + ` FROM dose_instances WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY due_at, medication_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dose instances: %w", err)
	}
	defer rows.Close()

	var out []*models.DoseInstance
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dose instances: %w", err)
	}
	return out, nil
}

func (r *PostgresDoseRepo) CountScheduled(ctx context.Context, profileID string, from, to time.Time) (int, error) {
	if profileID == "" {
		return 0, fmt.Errorf("profile_id is required")
	}
	query := `
		SELECT COUNT(*) FROM dose_instances
		WHERE profile_id = $1 AND status = 'scheduled' AND due_at >= $2 AND due_at < $3
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, profileID, from.UTC(), to.UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scheduled doses: %w", err)
	}
	return n, nil
}

func (r *PostgresDoseRepo) TransitionStatus(ctx context.Context, doseID string, status models.DoseStatus, takenAt *time.Time, delayMinutes *int, at time.Time) (bool, error) {
	if doseID == "" {
		return false, fmt.Errorf("dose_id is required")
	}
	if !status.IsTerminal() {
		return false, models.ErrInvalidStatus
	}

	var taken, delay any
	if takenAt != nil {
		taken = takenAt.UTC()
	}
	if delayMinutes != nil {
		delay = *delayMinutes
	}

	query := `
		UPDATE dose_instances
		SET status = $2, taken_at = $3, delay_minutes = $4, updated_at = $5
		WHERE dose_id = $1 AND status = 'scheduled'
	`
	res, err := r.db.ExecContext(ctx, query, doseID, string(status), taken, delay, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update dose status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresDoseRepo) DeleteFutureScheduled(ctx context.Context, medicationID string, from time.Time) (int64, error) {
	if medicationID == "" {
		return 0, fmt.Errorf("medication_id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM dose_instances WHERE medication_id = $1 AND status = 'scheduled' AND due_at >= $2`,
		medicationID, from.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete future doses: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresDoseRepo) MarkMissedBefore(ctx context.Context, profileID string, cutoff, at time.Time) (int64, error) {
	if profileID == "" {
		return 0, fmt.Errorf("profile_id is required")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_instances SET status = 'missed', updated_at = $3
		WHERE profile_id = $1 AND status = 'scheduled' AND due_at < $2`,
		profileID, cutoff.UTC(), at.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark missed doses: %w", err)
	}
	return res.RowsAffected()
}

func scanDose(row rowScanner) (*models.DoseInstance, error) {
	var (
		d          models.DoseInstance
		scheduleID sql.NullString
		status     string
		takenAt    sql.NullTime
		delay      sql.NullInt64
	)
	if err := row.Scan(&d.DoseID, &d.MedicationID, &d.ProfileID, &scheduleID, &d.DueAt, &status,
		&takenAt, &delay, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan dose instance: %w", err)
	}
	d.ScheduleID = scheduleID.String
	d.Status = models.DoseStatus(status)
	if takenAt.Valid {
		t := takenAt.Time
		d.TakenAt = &t
	}
	if delay.Valid {
		v := int(delay.Int64)
		d.DelayMinutes = &v
	}
	return &d, nil
}

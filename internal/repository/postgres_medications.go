package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// PostgresMedicationRepo profiles, medications and schedules
type PostgresMedicationRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresMedicationRepo(db *sql.DB, logger *zap.Logger) *PostgresMedicationRepo {
	return &PostgresMedicationRepo{db: db, logger: logger}
}

func (r *PostgresMedicationRepo) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile_id is required")
	}

	query := `SELECT profile_id, timezone, birth_date FROM profiles WHERE profile_id = $1`

	var p models.Profile
	var birth sql.NullTime
	err := r.db.QueryRowContext(ctx, query, profileID).Scan(&p.ProfileID, &p.Timezone, &birth)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	if birth.Valid {
		b := birth.Time
		p.BirthDate = &b
	}
	return &p, nil
}

func (r *PostgresMedicationRepo) ListMedications(ctx context.Context, profileID string, includeInactive bool) ([]*models.Medication, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile_id is required")
	}

	query := `
		SELECT medication_id, profile_id, name, dose_description, category,
			take_with_food, active, created_at
		FROM medications
		WHERE profile_id = $1 AND ($2 OR active)
		ORDER BY created_at, medication_id
	`
	rows, err := r.db.QueryContext(ctx, query, profileID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var out []*models.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medications: %w", err)
	}
	return out, nil
}

func (r *PostgresMedicationRepo) GetMedication(ctx context.Context, medicationID string) (*models.Medication, error) {
	if medicationID == "" {
		return nil, fmt.Errorf("medication_id is required")
	}

	query := `
		SELECT medication_id, profile_id, name, dose_description, category,
			take_with_food, active, created_at
		FROM medications
		WHERE medication_id = $1
	`
	m, err := scanMedication(r.db.QueryRowContext(ctx, query, medicationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("medication %s: %w", medicationID, models.ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

func (r *PostgresMedicationRepo) DeactivateMedication(ctx context.Context, profileID, medicationID string) error {
	if profileID == "" || medicationID == "" {
		return fmt.Errorf("profile_id and medication_id are required")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE medications SET active = FALSE WHERE medication_id = $1 AND profile_id = $2`,
		medicationID, profileID)
	if err != nil {
		return fmt.Errorf("failed to deactivate medication: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("medication %s: %w", medicationID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresMedicationRepo) ListActiveSchedules(ctx context.Context, profileID string) ([]*models.Schedule, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile_id is required")
	}

	query := `
		SELECT s.schedule_id, s.medication_id, m.profile_id, s.times, s.frequency,
			s.weekdays, s.interval_hours, s.anchor_at, s.active
		FROM schedules s
		JOIN medications m ON m.medication_id = s.medication_id
		WHERE m.profile_id = $1 AND s.active AND m.active
		ORDER BY s.schedule_id
	`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var out []*models.Schedule
	for rows.Next() {
		var (
			s        models.Schedule
			times    pq.StringArray
			weekdays pq.Int64Array
			interval sql.NullInt64
			anchor   sql.NullTime
			freq     string
		)
		if err := rows.Scan(&s.ScheduleID, &s.MedicationID, &s.ProfileID, &times, &freq,
			&weekdays, &interval, &anchor, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		s.Times = []string(times)
		s.Frequency = models.Frequency(freq)
		for _, d := range weekdays {
			s.Weekdays = append(s.Weekdays, int(d))
		}
		if interval.Valid {
			s.IntervalHours = int(interval.Int64)
		}
		if anchor.Valid {
			a := anchor.Time
			s.AnchorAt = &a
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}
	return out, nil
}

func (r *PostgresMedicationRepo) ListProfilesWithActiveSchedules(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT m.profile_id
		FROM schedules s
		JOIN medications m ON m.medication_id = s.medication_id
		WHERE s.active AND m.active
		ORDER BY m.profile_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile_id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (*models.Medication, error) {
	var (
		m        models.Medication
		category string
		created  time.Time
	)
	if err := row.Scan(&m.MedicationID, &m.ProfileID, &m.Name, &m.DoseDescription, &category,
		&m.TakeWithFood, &m.Active, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan medication: %w", err)
	}
	m.Category = models.ParseCategory(category)
	m.CreatedAt = created
	return &m, nil
}

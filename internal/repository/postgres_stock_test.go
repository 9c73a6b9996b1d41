package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

var stockRowColumns = []string{
	"medication_id", "quantity", "unit", "total_at_refill", "last_refill_at",
	"projected_depletion_at", "updated_at",
}

func setupMockStockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStockRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresStockRepo(db, zap.NewNop())
}

func TestApplyMutation_WritesRecordAndHistory(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	projected := now.Add(108 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("med-1").
		WillReturnRows(sqlmock.NewRows(stockRowColumns).AddRow("med-1", 10, "comprimido", 30, nil, nil, now))
	mock.ExpectExec(`UPDATE stock_records`).
		WithArgs("med-1", 9, 30, nil, projected, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_history`).
		WithArgs(sqlmock.AnyArg(), "med-1", now, -1, "taken").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := repo.ApplyMutation(context.Background(), "med-1", func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		r.Quantity--
		r.ProjectedDepletionAt = &projected
		r.UpdatedAt = now
		return &models.ConsumptionEntry{OccurredAt: now, Amount: -1, Reason: models.ReasonTaken}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, rec.Quantity)
	require.Len(t, rec.History, 1)
	assert.NotEmpty(t, rec.History[0].EntryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_NoChangeSkipsWrites(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("med-1").
		WillReturnRows(sqlmock.NewRows(stockRowColumns).AddRow("med-1", 0, "un", 10, nil, now, now))
	mock.ExpectCommit()

	rec, err := repo.ApplyMutation(context.Background(), "med-1", func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_UpdateFailureRollsBack(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("med-1").
		WillReturnRows(sqlmock.NewRows(stockRowColumns).AddRow("med-1", 4, "un", 10, nil, nil, now))
	mock.ExpectExec(`UPDATE stock_records`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := repo.ApplyMutation(context.Background(), "med-1", func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		r.Quantity--
		r.UpdatedAt = now
		return &models.ConsumptionEntry{OccurredAt: now, Amount: -1, Reason: models.ReasonTaken}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update stock record")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_NotTracked(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("med-x").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ApplyMutation(context.Background(), "med-x", func(r *models.StockRecord) (*models.ConsumptionEntry, error) {
		t.Fatal("mutation must not run")
		return nil, nil
	})
	assert.True(t, errors.Is(err, models.ErrStockNotTracked))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStock_LoadsHistory(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	since := now.Add(-7 * 24 * time.Hour)

	mock.ExpectQuery(`FROM stock_records s WHERE s.medication_id = \$1`).
		WithArgs("med-1").
		WillReturnRows(sqlmock.NewRows(stockRowColumns).AddRow("med-1", 8, "un", 10, now.Add(-48*time.Hour), nil, now))
	mock.ExpectQuery(`FROM stock_history`).
		WithArgs("med-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "occurred_at", "amount", "reason"}).
			AddRow("e1", now.Add(-48*time.Hour), 10, "refill").
			AddRow("e2", now.Add(-24*time.Hour), -2, "taken"))

	rec, err := repo.GetStock(context.Background(), "med-1", since)
	require.NoError(t, err)
	assert.Equal(t, 8, rec.Quantity)
	require.NotNil(t, rec.LastRefillAt)
	require.Len(t, rec.History, 2)
	assert.Equal(t, models.ReasonRefill, rec.History[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

func TestProjectDepletion_Monotonic(t *testing.T) {
	now := testNow
	prev := ProjectDepletion(20, 2, now)
	for q := 19; q >= 0; q-- {
		p := ProjectDepletion(q, 2, now)
		assert.False(t, p.After(prev), "quantity %d", q)
		assert.False(t, p.Before(now), "quantity %d", q)
		prev = p
	}
	assert.Equal(t, now, ProjectDepletion(0, 2, now))
	assert.Equal(t, now.Add(24*time.Hour), ProjectDepletion(1, 0, now))
}

func takenAt(offset time.Duration) *models.DoseInstance {
	return &models.DoseInstance{DueAt: testNow.Add(-offset), Status: models.DoseTaken}
}

func TestTrend(t *testing.T) {
	h := time.Hour
	tests := []struct {
		name  string
		doses []*models.DoseInstance
		want  models.ConsumptionTrend
	}{
		{"empty", nil, models.TrendStable},
		{"only recent", []*models.DoseInstance{takenAt(10 * h)}, models.TrendIncreasing},
		{"only early", []*models.DoseInstance{takenAt(150 * h)}, models.TrendDecreasing},
		{"balanced", []*models.DoseInstance{takenAt(150 * h), takenAt(10 * h)}, models.TrendStable},
		{"five vs six", []*models.DoseInstance{
			takenAt(100 * h), takenAt(110 * h), takenAt(120 * h), takenAt(130 * h), takenAt(140 * h),
			takenAt(10 * h), takenAt(20 * h), takenAt(30 * h), takenAt(40 * h), takenAt(50 * h), takenAt(60 * h),
		}, models.TrendStable},
		{"outside window ignored", []*models.DoseInstance{takenAt(200 * h), takenAt(10 * h), takenAt(150 * h)}, models.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.doses, testNow))
		})
	}
}

func TestAdherence7d(t *testing.T) {
	doses := []*models.DoseInstance{
		takenAt(time.Hour),
		takenAt(2 * time.Hour),
		{DueAt: testNow.Add(-3 * time.Hour), Status: models.DoseScheduled},
		{DueAt: testNow.Add(-4 * time.Hour), Status: models.DoseMissed},
		{DueAt: testNow.Add(3 * time.Hour), Status: models.DoseScheduled},
	}
	assert.Equal(t, 67, Adherence7d(doses, testNow))
	assert.Equal(t, 0, Adherence7d(nil, testNow))
}

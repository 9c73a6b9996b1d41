package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/adherence"
	"github.com/leplonghi/Horamed-AG-sub003/internal/evaluator"
	httpapi "github.com/leplonghi/Horamed-AG-sub003/internal/http"
	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
	"github.com/leplonghi/Horamed-AG-sub003/internal/scheduler"
	"github.com/leplonghi/Horamed-AG-sub003/internal/service"
	"github.com/leplonghi/Horamed-AG-sub003/internal/stock"
	"github.com/leplonghi/Horamed-AG-sub003/internal/store"
)

var testNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

type testAPI struct {
	router *httpapi.Router
	store  *repository.MemoryStore
	events chan notify.MedicationEvent
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	clock := func() time.Time { return testNow }

	s := repository.NewMemoryStore()
	s.PutProfile(models.Profile{ProfileID: "p1", Timezone: "UTC"})
	s.PutMedication(models.Medication{MedicationID: "m1", ProfileID: "p1", Name: "Losartana", Category: models.CategoryDrug, Active: true})
	s.PutSchedule(models.Schedule{ScheduleID: "s1", MedicationID: "m1", ProfileID: "p1", Times: []string{"08:00", "20:00"}, Frequency: models.FrequencyDaily, Active: true})
	s.PutStock(models.StockRecord{MedicationID: "m1", Quantity: 0, Unit: "comprimido"})

	kv := store.NewMemoryKVStore().WithClock(clock)
	meds := store.NewMedicationCache(kv, s, time.Minute, logger)
	table, err := evaluator.LoadInteractionTable("")
	require.NoError(t, err)

	dismissals := evaluator.NewDismissalLedger(kv, 24*time.Hour).WithClock(clock)
	eval := evaluator.NewEvaluator(s, meds, s, s, dismissals, table, evaluator.Config{
		OverdueWindow: 4 * time.Hour, CriticalAfter: 2 * time.Hour, DuplicateWindow: 4 * time.Hour,
	}, logger).WithClock(clock)
	feed := evaluator.NewFeed(eval, dismissals, kv, evaluator.FeedConfig{PollInterval: time.Minute, Cooldown: 5 * time.Second}, logger).WithClock(clock)

	expander := scheduler.NewExpander(s, s, s, kv, nil, scheduler.Config{WindowDays: 2, MinInterval: time.Hour}, logger).WithClock(clock)
	ledger := stock.NewLedger(s, s, s, s, logger).WithClock(clock)
	analyzer := adherence.NewAnalyzer(s, s, meds, time.UTC, logger).WithClock(clock)

	events := make(chan notify.MedicationEvent, 4)
	doses := service.NewDoseService(s, ledger, feed, logger).WithClock(clock)
	medSvc := service.NewMedicationService(s, notify.NewChannelEventPublisher(events), logger)

	r := httpapi.NewRouter(logger)
	r.RegisterHealthRoutes()
	r.RegisterAlertRoutes(httpapi.NewAlertHandler(feed, logger))
	r.RegisterAdherenceRoutes(httpapi.NewAdherenceHandler(analyzer, logger))
	r.RegisterDoseRoutes(httpapi.NewDoseHandler(expander, doses, logger))
	r.RegisterStockRoutes(httpapi.NewStockHandler(ledger, s, logger))
	r.RegisterMedicationRoutes(httpapi.NewMedicationHandler(medSvc, logger))

	return &testAPI{router: r, store: s, events: events}
}

func (a *testAPI) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) httpapi.Result[json.RawMessage] {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code)
	var res httpapi.Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	res := decode(t, a.do(t, http.MethodGet, "/healthz", "", nil))
	assert.Equal(t, httpapi.ResultSuccess, res.Code)
}

func TestMissingUser_ReadsReturnEmpty(t *testing.T) {
	a := newTestAPI(t)

	res := decode(t, a.do(t, http.MethodGet, "/api/v1/alerts", "", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var page struct {
		Items []models.Alert `json:"items"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &page))
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)

	res = decode(t, a.do(t, http.MethodGet, "/api/v1/adherence", "", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var sum models.AdherenceSummary
	require.NoError(t, json.Unmarshal(res.Result, &sum))
	assert.Empty(t, sum.ProfileID)
	assert.Empty(t, sum.Days)
	assert.Empty(t, sum.Suggestions)

	res = decode(t, a.do(t, http.MethodGet, "/api/v1/stock/m1", "", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var stockSum models.StockSummary
	require.NoError(t, json.Unmarshal(res.Result, &stockSum))
	assert.False(t, stockSum.Tracked)
	assert.Nil(t, stockSum.Record)
}

func TestMissingUser_MutationsDeclineToAct(t *testing.T) {
	a := newTestAPI(t)

	res := decode(t, a.do(t, http.MethodPost, "/api/v1/stock/m1/refill", "", map[string]int{"quantity": 30}))
	assert.Equal(t, httpapi.ResultError, res.Code)
	assert.Equal(t, "user_id is required", res.Message)

	rec, err := a.store.GetStock(context.Background(), "m1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)

	res = decode(t, a.do(t, http.MethodDelete, "/api/v1/medications/m1", "", nil))
	assert.Equal(t, httpapi.ResultError, res.Code)
	assert.Empty(t, a.events)
}

func TestAlerts_ListAndDismiss(t *testing.T) {
	a := newTestAPI(t)

	res := decode(t, a.do(t, http.MethodGet, "/api/v1/alerts", "p1", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var page struct {
		Items []models.Alert `json:"items"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "stock_m1", page.Items[0].AlertID)

	res = decode(t, a.do(t, http.MethodPost, "/api/v1/alerts/stock_m1/dismiss", "p1", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)

	res = decode(t, a.do(t, http.MethodGet, "/api/v1/alerts?force=true", "p1", nil))
	require.NoError(t, json.Unmarshal(res.Result, &page))
	assert.Equal(t, 0, page.Total)

	assert.Equal(t, http.StatusMethodNotAllowed, a.do(t, http.MethodGet, "/api/v1/alerts/stock_m1/dismiss", "p1", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/v1/alerts/stock_m1", "p1", nil).Code)
}

func TestDoses_GenerateAndRecord(t *testing.T) {
	a := newTestAPI(t)
	a.store.PutStock(models.StockRecord{MedicationID: "m1", Quantity: 10})

	res := decode(t, a.do(t, http.MethodPost, "/api/v1/doses/generate", "p1", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var gen scheduler.Result
	require.NoError(t, json.Unmarshal(res.Result, &gen))
	assert.Equal(t, 4, gen.Inserted)

	doses, err := a.store.ListDoses(context.Background(), "p1", testNow, testNow.Add(48*time.Hour), repository.DoseFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, doses)
	path := "/api/v1/doses/" + doses[0].DoseID + "/status"

	res = decode(t, a.do(t, http.MethodPut, path, "p1", map[string]string{"status": "taken"}))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var dose models.DoseInstance
	require.NoError(t, json.Unmarshal(res.Result, &dose))
	assert.Equal(t, models.DoseTaken, dose.Status)

	res = decode(t, a.do(t, http.MethodPut, path, "p1", map[string]string{"status": "skipped"}))
	assert.Equal(t, httpapi.ResultError, res.Code)
	assert.Equal(t, "dose already resolved", res.Message)

	res = decode(t, a.do(t, http.MethodPut, "/api/v1/doses/"+doses[1].DoseID+"/status", "p1", map[string]string{"status": "bogus"}))
	assert.Equal(t, "invalid status", res.Message)

	res = decode(t, a.do(t, http.MethodPost, "/api/v1/doses/generate?days=0", "p1", nil))
	assert.Equal(t, httpapi.ResultError, res.Code)

	assert.Equal(t, http.StatusMethodNotAllowed, a.do(t, http.MethodGet, "/api/v1/doses/generate", "p1", nil).Code)
}

func TestStock_SummaryRefillAdjust(t *testing.T) {
	a := newTestAPI(t)

	res := decode(t, a.do(t, http.MethodPost, "/api/v1/stock/m1/refill", "p1", map[string]int{"quantity": 30}))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var rec models.StockRecord
	require.NoError(t, json.Unmarshal(res.Result, &rec))
	assert.Equal(t, 30, rec.Quantity)

	res = decode(t, a.do(t, http.MethodPost, "/api/v1/stock/m1/adjust", "p1", map[string]any{"delta": -2, "reason": "lost"}))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	require.NoError(t, json.Unmarshal(res.Result, &rec))
	assert.Equal(t, 28, rec.Quantity)

	res = decode(t, a.do(t, http.MethodGet, "/api/v1/stock/m1", "p1", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var sum models.StockSummary
	require.NoError(t, json.Unmarshal(res.Result, &sum))
	assert.True(t, sum.Tracked)
	assert.InDelta(t, 14.0, sum.DaysRemaining, 0.01)

	res = decode(t, a.do(t, http.MethodPost, "/api/v1/stock/m1/refill", "p1", map[string]int{"quantity": 0}))
	assert.Equal(t, "invalid quantity", res.Message)

	res = decode(t, a.do(t, http.MethodGet, "/api/v1/stock/m1", "intruder", nil))
	assert.Equal(t, "not found", res.Message)
}

func TestAdherence_SummaryAndReport(t *testing.T) {
	a := newTestAPI(t)
	taken := testNow.Add(-22 * time.Hour)
	a.store.PutDose(models.DoseInstance{DoseID: "d1", MedicationID: "m1", ProfileID: "p1", DueAt: taken, Status: models.DoseTaken, TakenAt: &taken})

	res := decode(t, a.do(t, http.MethodGet, "/api/v1/adherence", "p1", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)
	var sum models.AdherenceSummary
	require.NoError(t, json.Unmarshal(res.Result, &sum))
	assert.Equal(t, "p1", sum.ProfileID)

	rr := a.do(t, http.MethodGet, "/api/v1/adherence/report.xlsx", "p1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "adherence_20260302.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Days", "Suggestions"}, f.GetSheetList())

	header, err := f.GetCellValue("Days", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", header)
}

func TestMedications_Delete(t *testing.T) {
	a := newTestAPI(t)

	res := decode(t, a.do(t, http.MethodDelete, "/api/v1/medications/m1", "p1", nil))
	require.Equal(t, httpapi.ResultSuccess, res.Code)

	med, err := a.store.GetMedication(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, med.Active)

	ev := <-a.events
	assert.Equal(t, notify.EventMedicationDeleted, ev.Type)
	assert.Equal(t, "m1", ev.MedicationID)

	assert.Equal(t, http.StatusMethodNotAllowed, a.do(t, http.MethodGet, "/api/v1/medications/m1", "p1", nil).Code)
}

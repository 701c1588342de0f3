package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/validate"
)

func TestRecordWarehouse(t *testing.T) {
	m := New()
	w := models.NewWarehouse()
	users := models.NewTable(models.UserDimension, models.Column{Name: "user_id", Type: models.TypeInteger})
	require.NoError(t, users.Append(int64(1)))
	require.NoError(t, users.Append(int64(2)))
	w.Put(users)
	w.Put(models.NewTable(models.PaymentFacts))

	m.RecordWarehouse(w)

	assert.Equal(t, 2, testutil.CollectAndCount(m.tableRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tableRows.WithLabelValues(models.UserDimension)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.tableRows.WithLabelValues(models.PaymentFacts)))
}

func TestRecordReport(t *testing.T) {
	m := New()
	report := &validate.Report{
		IntegrityScore:    75,
		CompletenessScore: 100,
		Checks: []validate.CheckResult{
			{Name: "key_uniqueness/user_dimension", Status: validate.StatusPass},
			{Name: "cross_aggregate/monthly_revenue", Status: validate.StatusFail},
			{Name: "cardinality/plan_users", Status: validate.StatusSkipped},
		},
	}

	m.RecordReport(report)
	m.RecordReport(report)

	assert.Equal(t, 75.0, testutil.ToFloat64(m.integrityScore))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.completenessScore))
	assert.Equal(t, 1, testutil.CollectAndCount(m.checkFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkFailures.WithLabelValues("cross_aggregate/monthly_revenue")))
}

func TestRunsAndStages(t *testing.T) {
	m := New()
	m.RecordRun("success")
	m.RecordRun("success")
	m.RecordRun("failed")
	m.ObserveStage("extract", 20*time.Millisecond)
	m.ObserveStage("transform", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestHandlerExposesOwnRegistry(t *testing.T) {
	m := New()
	m.RecordRun("success")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `dice_etl_runs_total{status="success"} 1`)
	// стандартные коллекторы процесса не регистрируются
	assert.NotContains(t, string(body), "go_goroutines")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/LilVoxy/dice_warehouse/ETL/analytics"
	"github.com/LilVoxy/dice_warehouse/ETL/config"
	"github.com/LilVoxy/dice_warehouse/ETL/internal/fixtures"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/transform"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

const expectedChecks = 29

func buildWarehouse(t *testing.T) *models.Warehouse {
	t.Helper()
	return buildWarehouseFrom(t, fixtures.SampleSources())
}

func buildWarehouseFrom(t *testing.T, sources models.SourceSet) *models.Warehouse {
	t.Helper()
	logger := utils.NewNopLogger()
	w, _, err := transform.NewTransformer(config.GetConfig(), logger).
		Transform(context.Background(), sources)
	require.NoError(t, err)
	require.NoError(t, analytics.NewProcessor(logger).Process(w))
	return w
}

func newTestValidator() *Validator {
	return NewValidator(0.01, utils.NewNopLogger())
}

func TestValidateConsistentWarehouse(t *testing.T) {
	report := newTestValidator().Validate(buildWarehouse(t))

	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Checks, expectedChecks)
	assert.Equal(t, expectedChecks, report.Summary.ChecksRun)
	assert.Equal(t, expectedChecks, report.Summary.ChecksPassed)
	assert.Zero(t, report.Summary.ChecksSkipped)
	assert.Zero(t, report.Summary.OrphanedKeys)
	assert.True(t, report.Passed())
	assert.Empty(t, report.Failed())

	assert.InDelta(t, 100, report.IntegrityScore, 1e-9)
	assert.InDelta(t, 100, report.CompletenessScore, 1e-9)
	assert.InDelta(t, 100, report.OverallScore, 1e-9)
	assert.Equal(t, models.StarSchemaTables, report.Summary.TablesPresent)
	assert.Empty(t, report.Summary.TablesMissing)
	assert.Empty(t, report.Summary.Issues)
	assert.Equal(t, []string{"Хранилище согласовано, действий не требуется"}, report.Summary.Recommendations)

	c, ok := report.Check("cross_aggregate/monthly_revenue")
	require.True(t, ok)
	assert.Equal(t, StatusPass, c.Status)
	assert.InDelta(t, 109.98, c.Details["fact_total"], 1e-9)
}

func TestValidateDoesNotModifyWarehouse(t *testing.T) {
	w := buildWarehouse(t)
	before := w.RowCounts()

	newTestValidator().Validate(w)
	assert.Equal(t, before, w.RowCounts())
}

func TestValidateReportsOrphans(t *testing.T) {
	w := buildWarehouse(t)
	sessions, ok := w.Get(models.PlaySessionFacts)
	require.True(t, ok)
	i, _ := sessions.ColumnIndex("channel_id")
	sessions.Rows[0][i] = "TV"
	sessions.Rows[2][i] = "TV"

	report := newTestValidator().Validate(w)

	c, ok := report.Check("referential_coverage/play_session_facts.channel_id")
	require.True(t, ok)
	assert.Equal(t, StatusFail, c.Status)
	assert.Equal(t, 1, c.Details["orphan_count"])
	assert.Equal(t, 2, c.Details["orphan_rows"])
	assert.Equal(t, []string{"TV"}, c.Details["orphan_values"])

	assert.Equal(t, 1, report.Summary.OrphanedKeys)
	assert.Equal(t, 1, report.Summary.ChecksFailed)
	assert.False(t, report.Passed())
	assert.InDelta(t, float64(expectedChecks-1)/expectedChecks*100, report.IntegrityScore, 1e-9)
	require.Len(t, report.Summary.Recommendations, 1)
	assert.Equal(t, recommendations[KindReferentialCoverage], report.Summary.Recommendations[0])
}

func TestValidateCrossAggregateMismatch(t *testing.T) {
	// вторая оплата переносится в февраль, помесячная выручка получает две группы
	sources := fixtures.SampleSources()
	plans := sources[models.SourceUserPlan]
	start, _ := plans.ColumnIndex("start_date")
	end, _ := plans.ColumnIndex("end_date")
	plans.Rows[1][start] = "2024-02-02"
	plans.Rows[1][end] = "2024-02-03"
	w := buildWarehouseFrom(t, sources)

	monthly, ok := w.Get(analytics.MonthlyRevenueTable)
	require.True(t, ok)
	require.Equal(t, 2, monthly.Len())
	month, _ := monthly.ColumnIndex("month")
	w.Put(monthly.Filter(func(r models.Row) bool { return r[month] != int64(2) }))

	report := newTestValidator().Validate(w)

	c, ok := report.Check("cross_aggregate/monthly_revenue")
	require.True(t, ok)
	assert.Equal(t, StatusFail, c.Status)
	assert.InDelta(t, 109.98, c.Details["fact_total"], 1e-9)
	assert.InDelta(t, 9.99, c.Details["grouped_total"], 1e-9)
	assert.InDelta(t, 99.99, c.Details["difference"], 1e-9)

	other, ok := report.Check("cross_aggregate/quarterly_revenue")
	require.True(t, ok)
	assert.Equal(t, StatusPass, other.Status)
}

func TestValidateNegativeMeasure(t *testing.T) {
	w := buildWarehouse(t)
	sessions, _ := w.Get(models.PlaySessionFacts)
	i, _ := sessions.ColumnIndex("score")
	sessions.Rows[1][i] = int64(-5)

	report := newTestValidator().Validate(w)

	c, ok := report.Check("value_range/play_session_facts.score")
	require.True(t, ok)
	assert.Equal(t, StatusFail, c.Status)
	assert.Equal(t, 1, c.Details["negative_count"])
	assert.InDelta(t, -5, c.Details["min"], 1e-9)
}

func TestValidateDuplicateDimensionKey(t *testing.T) {
	w := buildWarehouse(t)
	users, _ := w.Get(models.UserDimension)
	users.Rows = append(users.Rows, append(models.Row(nil), users.Rows[0]...))

	report := newTestValidator().Validate(w)

	c, ok := report.Check("key_uniqueness/" + models.UserDimension)
	require.True(t, ok)
	assert.Equal(t, StatusFail, c.Status)
	assert.Equal(t, 1, c.Details["duplicates"])
	assert.Equal(t, []string{"1"}, c.Details["duplicate_values"])
}

func TestValidateMissingTableIsSkipped(t *testing.T) {
	w := buildWarehouse(t)
	w.Delete(models.UserPlanFacts)

	report := newTestValidator().Validate(w)

	// 4 внешних ключа, 1 мера и 1 ограничение кардинальности
	assert.Equal(t, 6, report.Summary.ChecksSkipped)
	assert.Equal(t, expectedChecks-6, report.Summary.ChecksRun)
	assert.Equal(t, 1, report.Summary.ChecksFailed)
	assert.Equal(t, []string{models.UserPlanFacts}, report.Summary.TablesMissing)

	c, ok := report.Check("referential_coverage/user_plan_facts.plan_id")
	require.True(t, ok)
	assert.Equal(t, StatusSkipped, c.Status)

	completeness, ok := report.Check("completeness/star_schema")
	require.True(t, ok)
	assert.Equal(t, StatusFail, completeness.Status)

	assert.InDelta(t, float64(expectedChecks-7)/float64(expectedChecks-6)*100, report.IntegrityScore, 1e-9)
	assert.InDelta(t, 8.0/9.0*100, report.CompletenessScore, 1e-9)
	assert.InDelta(t, 0.6*report.IntegrityScore+0.4*report.CompletenessScore, report.OverallScore, 1e-9)
}

func TestValidateEmptyWarehouse(t *testing.T) {
	report := newTestValidator().Validate(models.NewWarehouse())

	assert.Len(t, report.Checks, expectedChecks)
	assert.Equal(t, 1, report.Summary.ChecksRun)
	assert.Equal(t, 1, report.Summary.ChecksFailed)
	assert.Zero(t, report.IntegrityScore)
	assert.Zero(t, report.CompletenessScore)
	assert.Len(t, report.Summary.TablesMissing, len(models.StarSchemaTables))
}

func TestReportSerialization(t *testing.T) {
	report := newTestValidator().Validate(buildWarehouse(t))

	data, err := report.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])
	assert.Contains(t, decoded, "integrity_score")
	assert.Contains(t, decoded, "checks")
	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, expectedChecks, summary["checks_run"])

	data, err = report.YAML()
	require.NoError(t, err)
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, report.RunID, fromYAML.RunID)
	assert.Equal(t, report.Summary.ChecksPassed, fromYAML.Summary.ChecksPassed)
	assert.Len(t, fromYAML.Checks, expectedChecks)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))
	assert.Contains(t, buf.String(), "Integrity score:")
	assert.Contains(t, buf.String(), "[PASS   ] completeness/star_schema")
	assert.Contains(t, buf.String(), "Рекомендации:")
}

package analytics

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/dice_warehouse/ETL/config"
	"github.com/LilVoxy/dice_warehouse/ETL/internal/fixtures"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/transform"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

func buildWarehouse(t *testing.T) *models.Warehouse {
	t.Helper()
	w, _, err := transform.NewTransformer(config.GetConfig(), utils.NewNopLogger()).
		Transform(context.Background(), fixtures.SampleSources())
	require.NoError(t, err)
	return w
}

func decimalAt(t *testing.T, table *models.Table, row int, column string) decimal.Decimal {
	t.Helper()
	d, ok := table.Value(row, column).(decimal.Decimal)
	require.True(t, ok, "%s[%d].%s is %T", table.Name, row, column, table.Value(row, column))
	return d
}

func TestProcessBuildsAllDatasets(t *testing.T) {
	w := buildWarehouse(t)
	require.NoError(t, NewProcessor(utils.NewNopLogger()).Process(w))

	monthly, ok := w.Get(MonthlyRevenueTable)
	require.True(t, ok)
	assert.Equal(t, []string{"year", "month", "total_revenue", "total_transactions"}, monthly.ColumnNames())
	require.Equal(t, 1, monthly.Len())
	assert.Equal(t, int64(2024), monthly.Value(0, "year"))
	assert.Equal(t, int64(1), monthly.Value(0, "month"))
	assert.True(t, decimalAt(t, monthly, 0, "total_revenue").Equal(decimal.RequireFromString(fixtures.TotalRevenue)))
	assert.Equal(t, int64(fixtures.Payments), monthly.Value(0, "total_transactions"))

	quarterly, ok := w.Get(QuarterlyRevenueTable)
	require.True(t, ok)
	require.Equal(t, 1, quarterly.Len())
	assert.Equal(t, int64(1), quarterly.Value(0, "quarter"))

	channels, ok := w.Get(SessionsByChannelTable)
	require.True(t, ok)
	require.Equal(t, 2, channels.Len())
	assert.Equal(t, "MOB", channels.Value(0, "channel_id"))
	assert.Equal(t, "Mobile", channels.Value(0, "channel_name"))
	assert.Equal(t, int64(2), channels.Value(0, "total_sessions"))
	assert.Equal(t, int64(500), channels.Value(0, "total_score"))
	assert.True(t, decimalAt(t, channels, 0, "total_duration_minutes").Equal(decimal.NewFromInt(150)))
	assert.True(t, decimalAt(t, channels, 0, "avg_score").Equal(decimal.NewFromInt(250)))
	assert.True(t, decimalAt(t, channels, 0, "avg_duration_minutes").Equal(decimal.NewFromInt(75)))
	assert.True(t, decimalAt(t, channels, 0, "median_duration_minutes").Equal(decimal.NewFromInt(75)))
	assert.Equal(t, "WEB", channels.Value(1, "channel_id"))
	assert.Equal(t, int64(3), channels.Value(1, "total_sessions"))
	assert.True(t, decimalAt(t, channels, 1, "avg_score").Equal(decimal.NewFromInt(50)))
	assert.True(t, decimalAt(t, channels, 1, "median_score").Equal(decimal.NewFromInt(50)))
	assert.True(t, decimalAt(t, channels, 1, "median_duration_minutes").Equal(decimal.NewFromInt(30)))

	payments, ok := w.Get(UserPaymentAnalysisTable)
	require.True(t, ok)
	assert.Equal(t, []string{"frequency_name", "total_users", "total_revenue", "avg_cost", "avg_duration_days", "median_duration_days"},
		payments.ColumnNames())
	require.Equal(t, 2, payments.Len())
	assert.Equal(t, "Annually", payments.Value(0, "frequency_name"))
	assert.Equal(t, int64(1), payments.Value(0, "total_users"))
	assert.True(t, decimalAt(t, payments, 0, "total_revenue").Equal(decimal.RequireFromString("99.99")))
	assert.True(t, decimalAt(t, payments, 0, "avg_duration_days").Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "Monthly", payments.Value(1, "frequency_name"))
	assert.True(t, decimalAt(t, payments, 1, "avg_cost").Equal(decimal.RequireFromString("9.99")))
	assert.True(t, decimalAt(t, payments, 1, "median_duration_days").Equal(decimal.NewFromInt(365)))

	methods, ok := w.Get(PaymentsByMethodTable)
	require.True(t, ok)
	require.Equal(t, 2, methods.Len())
	assert.Equal(t, "PAYPAL", methods.Value(0, "payment_method_code"))
	assert.True(t, decimalAt(t, methods, 1, "total_revenue").Equal(decimal.RequireFromString("9.99")))
}

func TestProcessSkipsMissingInputs(t *testing.T) {
	w := buildWarehouse(t)
	w.Delete(models.PaymentFacts)

	require.NoError(t, NewProcessor(utils.NewNopLogger()).Process(w))

	_, ok := w.Get(MonthlyRevenueTable)
	assert.False(t, ok)
	_, ok = w.Get(PaymentsByMethodTable)
	assert.False(t, ok)
	_, ok = w.Get(SessionsByChannelTable)
	assert.True(t, ok)
}

func TestGroupJoinDropsUnmatchedFacts(t *testing.T) {
	channels := models.NewTable(models.ChannelDimension,
		models.Column{Name: "channel_id", Type: models.TypeString},
		models.Column{Name: "channel_name", Type: models.TypeString},
	)
	require.NoError(t, channels.Append("WEB", "Browser"))

	sessions := models.NewTable(models.PlaySessionFacts, models.PlaySessionFactColumns...)
	require.NoError(t, sessions.Append(int64(1), int64(1), int64(20240101), "WEB", "COMP", int64(10), decimal.NewFromInt(5)))
	require.NoError(t, sessions.Append(int64(2), int64(1), int64(20240101), "TV", "COMP", int64(20), decimal.NewFromInt(5)))
	require.NoError(t, sessions.Append(int64(3), int64(1), int64(20240101), nil, "COMP", int64(30), nil))

	out, err := SessionsByChannel(sessions, channels)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, int64(1), out.Value(0, "total_sessions"))
	assert.Equal(t, int64(10), out.Value(0, "total_score"))
}

func TestGroupJoinRejectsNonNumericMeasure(t *testing.T) {
	dim := models.NewTable("d", models.Column{Name: "k", Type: models.TypeString})
	fact := models.NewTable("f",
		models.Column{Name: "k", Type: models.TypeString},
		models.Column{Name: "label", Type: models.TypeString},
	)

	_, err := groupJoin("g", fact, dim, "k", "k", []string{"k"}, []aggregate{{name: "total", column: "label"}})
	assert.Error(t, err)

	_, err = groupJoin("g", fact, dim, "missing", "k", []string{"k"}, nil)
	assert.Error(t, err)
}

func TestUserPaymentAnalysisStatistics(t *testing.T) {
	plans := models.NewTable(models.PlanDimension,
		models.Column{Name: "plan_id", Type: models.TypeInteger},
		models.Column{Name: "frequency_name", Type: models.TypeString},
		models.Column{Name: "cost_amount", Type: models.TypeDecimal},
	)
	require.NoError(t, plans.Append(int64(1), "Monthly", decimal.RequireFromString("9.99")))
	require.NoError(t, plans.Append(int64(2), "Monthly", decimal.RequireFromString("19.99")))

	userPlans := models.NewTable(models.UserPlanFacts, models.UserPlanFactColumns...)
	for i, row := range [][2]int64{{1, 30}, {1, 31}, {2, 10}, {2, 100}} {
		require.NoError(t, userPlans.Append(int64(i), int64(i), row[0], int64(100), int64(20240101), row[1]))
	}
	// подписка на неизвестный тариф в анализ не попадает
	require.NoError(t, userPlans.Append(int64(9), int64(9), int64(7), int64(100), int64(20240101), int64(5)))

	out, err := UserPaymentAnalysis(userPlans, plans)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, int64(4), out.Value(0, "total_users"))
	assert.True(t, decimalAt(t, out, 0, "total_revenue").Equal(decimal.RequireFromString("59.96")))
	assert.True(t, decimalAt(t, out, 0, "avg_cost").Equal(decimal.RequireFromString("14.99")))
	assert.True(t, decimalAt(t, out, 0, "avg_duration_days").Equal(decimal.RequireFromString("42.75")))
	// четное число значений: среднее двух центральных (30 и 31)
	assert.True(t, decimalAt(t, out, 0, "median_duration_days").Equal(decimal.RequireFromString("30.5")))
}

func TestMeanAndMedianSkipNulls(t *testing.T) {
	channels := models.NewTable(models.ChannelDimension,
		models.Column{Name: "channel_id", Type: models.TypeString},
		models.Column{Name: "channel_name", Type: models.TypeString},
	)
	require.NoError(t, channels.Append("WEB", "Browser"))

	sessions := models.NewTable(models.PlaySessionFacts, models.PlaySessionFactColumns...)
	require.NoError(t, sessions.Append(int64(1), int64(1), int64(20240101), "WEB", "COMP", int64(10), decimal.NewFromInt(10)))
	require.NoError(t, sessions.Append(int64(2), int64(1), int64(20240101), "WEB", "COMP", int64(20), nil))
	require.NoError(t, sessions.Append(int64(3), int64(1), int64(20240101), "WEB", "COMP", int64(40), decimal.RequireFromString("20.005")))

	out, err := SessionsByChannel(sessions, channels)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.True(t, decimalAt(t, out, 0, "avg_score").Equal(decimal.RequireFromString("23.33")))
	assert.True(t, decimalAt(t, out, 0, "median_score").Equal(decimal.NewFromInt(20)))
	assert.True(t, decimalAt(t, out, 0, "avg_duration_minutes").Equal(decimal.RequireFromString("15")))
	assert.True(t, decimalAt(t, out, 0, "median_duration_minutes").Equal(decimal.RequireFromString("15")))

	empty := models.NewTable(models.PlaySessionFacts, models.PlaySessionFactColumns...)
	require.NoError(t, empty.Append(int64(4), int64(1), int64(20240101), "WEB", "COMP", int64(0), nil))
	out, err = SessionsByChannel(empty, channels)
	require.NoError(t, err)
	assert.Nil(t, out.Value(0, "avg_duration_minutes"))
	assert.Nil(t, out.Value(0, "median_duration_minutes"))
}

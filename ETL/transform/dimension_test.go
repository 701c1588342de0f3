package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/dice_warehouse/ETL/internal/fixtures"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

func dimensionDef(t *testing.T, name string) DimensionDef {
	t.Helper()
	for _, d := range DefaultDimensions() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("dimension %s not defined", name)
	return DimensionDef{}
}

func TestBuildUserDimensionLeftJoin(t *testing.T) {
	b := NewDimensionBuilder(utils.NewNopLogger())

	users, err := b.Build(dimensionDef(t, models.UserDimension), fixtures.SampleSources())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"user_id", "ip_address", "social_media_handle", "email",
		"username", "first_name", "last_name", "is_registered",
	}, users.ColumnNames())
	require.Equal(t, fixtures.Users, users.Len())

	// зарегистрированный пользователь: email из регистрации
	assert.Equal(t, "alice@dice.io", users.Value(0, "email"))
	assert.Equal(t, "alice", users.Value(0, "username"))
	assert.Equal(t, true, users.Value(0, "is_registered"))

	// без регистрации: email из user, остальное NULL
	assert.Equal(t, int64(3), users.Value(2, "user_id"))
	assert.Equal(t, "carol@example.com", users.Value(2, "email"))
	assert.Nil(t, users.Value(2, "username"))
	assert.Equal(t, false, users.Value(2, "is_registered"))
}

func TestBuildPlanDimensionCarriesFrequency(t *testing.T) {
	b := NewDimensionBuilder(utils.NewNopLogger())
	sources := fixtures.SampleSources()
	// тариф с неизвестной периодичностью остается в измерении
	require.NoError(t, sources[models.SourcePlan].Append(int64(3), "WEEKLY", nil))

	plans, err := b.Build(dimensionDef(t, models.PlanDimension), sources)
	require.NoError(t, err)

	require.Equal(t, 3, plans.Len())
	assert.Equal(t, "Monthly", plans.Value(0, "frequency_name"))
	assert.Equal(t, "Annuel", plans.Value(1, "frequency_name_fr"))
	assert.Nil(t, plans.Value(2, "frequency_name"))
	assert.Equal(t, models.TypeDecimal, plans.Columns[2].Type)
}

func TestBuildDimensionDuplicateKey(t *testing.T) {
	b := NewDimensionBuilder(utils.NewNopLogger())
	sources := fixtures.SampleSources()
	// вторая регистрация того же пользователя размножает строку измерения
	require.NoError(t, sources[models.SourceUserRegistration].Append(int64(12), int64(1), "a2@dice.io", "alice2", "Alice", "Smith"))

	_, err := b.Build(dimensionDef(t, models.UserDimension), sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDuplicateKey))

	var be *models.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, models.UserDimension, be.Table)
	assert.Equal(t, "user_id", be.Column)
	assert.Equal(t, 1, be.Rows)
	assert.Contains(t, be.Detail, "повторяющиеся ключи: 1")
}

func TestBuildDimensionNullKey(t *testing.T) {
	b := NewDimensionBuilder(utils.NewNopLogger())
	sources := fixtures.SampleSources()
	require.NoError(t, sources[models.SourceChannelCode].Append(nil, "Unknown", "Inconnu"))

	_, err := b.Build(dimensionDef(t, models.ChannelDimension), sources)
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
}

func TestBuildDimensionMissingSource(t *testing.T) {
	b := NewDimensionBuilder(utils.NewNopLogger())
	sources := fixtures.SampleSources()
	delete(sources, models.SourcePlanPaymentFrequency)

	_, err := b.Build(dimensionDef(t, models.PlanDimension), sources)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingSourceTable)
	assert.Contains(t, err.Error(), models.SourcePlanPaymentFrequency)
}

func TestBuildAll(t *testing.T) {
	b := NewDimensionBuilder(utils.NewNopLogger())

	dims, err := b.BuildAll(context.Background(), DefaultDimensions(), fixtures.SampleSources())
	require.NoError(t, err)
	require.Len(t, dims, 5)
	assert.Equal(t, 2, dims[models.ChannelDimension].Len())
	assert.Equal(t, 2, dims[models.StatusDimension].Len())
	assert.Equal(t, 2, dims[models.PaymentDimension].Len())

	sources := fixtures.SampleSources()
	delete(sources, models.SourceStatusCode)
	_, err = b.BuildAll(context.Background(), DefaultDimensions(), sources)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingSourceTable)
	assert.Contains(t, err.Error(), models.StatusDimension)
}

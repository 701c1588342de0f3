package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/dice_warehouse/ETL/config"
	"github.com/LilVoxy/dice_warehouse/ETL/internal/fixtures"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

func TestTransformBuildsStarSchema(t *testing.T) {
	tr := NewTransformer(config.GetConfig(), utils.NewNopLogger())

	w, facts, err := tr.Transform(context.Background(), fixtures.SampleSources())
	require.NoError(t, err)
	require.NotNil(t, facts)

	assert.Equal(t, models.StarSchemaTables, w.Names())
	counts := w.RowCounts()
	assert.Equal(t, fixtures.Users, counts[models.UserDimension])
	assert.Equal(t, fixtures.Days, counts[models.TimeDimension])
	assert.Equal(t, fixtures.Sessions, counts[models.PlaySessionFacts])
	assert.Equal(t, fixtures.Payments, counts[models.PaymentFacts])

	assert.False(t, w.Metadata.BuiltAt.IsZero())
	assert.Equal(t, 3, w.Metadata.SourceRows[models.SourceUser])
	assert.Equal(t, fixtures.PlaceholderEnd, w.Metadata.PlaceholderEndings)
	assert.Equal(t, 0, w.Metadata.NegativeDurations)
}

func TestTransformAbortsOnBuildError(t *testing.T) {
	tr := NewTransformer(config.GetConfig(), utils.NewNopLogger())
	sources := fixtures.SampleSources()
	delete(sources, models.SourceChannelCode)

	w, _, err := tr.Transform(context.Background(), sources)
	assert.Nil(t, w)
	assert.ErrorIs(t, err, models.ErrMissingSourceTable)
}

func TestTransformHonoursCancellation(t *testing.T) {
	tr := NewTransformer(config.GetConfig(), utils.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := tr.Transform(ctx, fixtures.SampleSources())
	assert.ErrorIs(t, err, context.Canceled)
}

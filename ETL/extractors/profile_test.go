package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/dice_warehouse/ETL/internal/fixtures"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

func TestProfile(t *testing.T) {
	sources := fixtures.SampleSources()
	extra := models.NewTable("extra", models.Column{Name: "a", Type: models.TypeString})
	require.NoError(t, extra.Append("x"))
	require.NoError(t, extra.Append("x"))
	require.NoError(t, extra.Append(nil))
	sources["extra"] = extra

	profiles := Profile(sources)
	require.Len(t, profiles, len(models.SourceTableNames)+1)
	assert.Equal(t, models.SourceUser, profiles[0].Name)
	assert.Equal(t, "extra", profiles[len(profiles)-1].Name)

	byName := make(map[string]TableProfile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}

	details := byName[models.SourceUserPaymentDetail]
	assert.Equal(t, 2, details.Rows)
	assert.Equal(t, 4, details.Columns)
	assert.Equal(t, 1, details.NullCounts["payment_method_expiry"])
	assert.Equal(t, 0, details.NullCounts["payment_method_code"])

	assert.Equal(t, 1, byName["extra"].DuplicateRows)
	assert.Equal(t, 1, byName["extra"].NullCounts["a"])
}

func TestRelationships(t *testing.T) {
	rel := Relationships(fixtures.SampleSources())

	require.NotNil(t, rel.UserRegistration)
	assert.Equal(t, 2, rel.UserRegistration.UsersInRegistration)
	assert.Equal(t, 1, rel.UserRegistration.UsersOnlyInUser)
	assert.Equal(t, 0, rel.UserRegistration.UsersOnlyInRegistration)

	require.NotNil(t, rel.PlaySessions)
	assert.Equal(t, 3, rel.PlaySessions.SessionUsersKnown)
	assert.Equal(t, 0, rel.PlaySessions.SessionUsersUnknown)

	require.NotNil(t, rel.UserPlans)
	assert.Equal(t, 2, rel.UserPlans.ValidPlanReferences)
	assert.Equal(t, 0, rel.UserPlans.InvalidPlanReferences)
}

func TestRelationshipsSkipMissingTables(t *testing.T) {
	sources := fixtures.SampleSources()
	delete(sources, models.SourceUser)
	delete(sources, models.SourcePlan)

	rel := Relationships(sources)
	assert.Nil(t, rel.UserRegistration)
	assert.Nil(t, rel.PlaySessions)
	assert.Nil(t, rel.UserPlans)
}

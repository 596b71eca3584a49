package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/people-directory/models"
)

func TestLocalityUpsertAndDelete(t *testing.T) {
	svc, _ := newTestServices(t)

	_, err := svc.Localities.Upsert(ctx(), &models.LocalityForm{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	loc, err := svc.Localities.Upsert(ctx(), &models.LocalityForm{Name: " Springfield ", Alias: "SPR", PP: " 12.0 ", UC: 3.0})
	require.NoError(t, err)
	assert.Equal(t, "Springfield", loc.Name)
	assert.Equal(t, "12", loc.PP)
	assert.Equal(t, "3", loc.UC)

	loc, err = svc.Localities.Upsert(ctx(), &models.LocalityForm{Name: "Springfield", PP: "13"})
	require.NoError(t, err)
	assert.Equal(t, "13", loc.PP)
	assert.Equal(t, "", loc.Alias)

	found, err := svc.Localities.Search(ctx(), "SPRING")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err := svc.Localities.Delete(ctx(), "Springfield")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	missing, err := svc.Localities.Find(ctx(), "Springfield")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSeedIfEmpty(t *testing.T) {
	svc, _ := newTestServices(t)

	for _, in := range []models.Input{
		{"Name": "a", "LocalityName": "North", "PP": "1", "UC": "2"},
		{"Name": "b", "LocalityName": "NORTH", "PP": "9", "UC": "9"},
		{"Name": "c", "LocalityName": "South", "PP": "3", "UC": "4"},
		{"Name": "d"},
	} {
		_, err := svc.Records.CreateRecord(ctx(), in)
		require.NoError(t, err)
	}

	seeded, err := svc.Localities.SeedIfEmpty(ctx())
	require.NoError(t, err)
	assert.Equal(t, 2, seeded)

	north, err := svc.Localities.Find(ctx(), "North")
	require.NoError(t, err)
	require.NotNil(t, north)
	assert.Equal(t, "1", north.PP)

	seeded, err = svc.Localities.SeedIfEmpty(ctx())
	require.NoError(t, err)
	assert.Zero(t, seeded)
}

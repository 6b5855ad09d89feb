package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysch/matchd/internal/model"
)

func TestLoadSeedFile(t *testing.T) {
	schools, err := loadSeedFile(filepath.Join("testdata", "seed.yaml"))
	require.NoError(t, err)
	require.Len(t, schools, 2)

	bayside := schools[0]
	assert.Equal(t, "bayside-flyers", bayside.ID)
	assert.Equal(t, model.TierVerified, bayside.TrustTier)
	require.NotNil(t, bayside.Location)
	assert.InDelta(t, 37.8044, bayside.Location.Lat, 1e-9)
	require.Len(t, bayside.Programs, 2)
	assert.Equal(t, model.ProgramPPL, bayside.Programs[0].Type)
	assert.InDelta(t, 9000.0, bayside.Programs[0].MinCost, 1e-9)
	require.NotNil(t, bayside.Programs[0].MinHours)
	assert.InDelta(t, 40.0, bayside.Programs[0].MinHours.Part61, 1e-9)
	assert.True(t, bayside.Fleet.HasG1000())
	assert.True(t, bayside.Fleet.HasSimulators())
	require.NotNil(t, bayside.FSPSignals)
	assert.InDelta(t, 4.1, bayside.FSPSignals.StudentSatisfaction, 1e-9)

	academy := schools[1]
	assert.False(t, academy.Fleet.HasSimulators())
	assert.Equal(t, 10, academy.Fleet.TotalAircraft)
}

func TestLoadSeedFileMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: No ID Aviation\n"), 0o644))

	_, err := loadSeedFile(path)
	assert.ErrorContains(t, err, "has no id")
}

func TestLoadSeedFileNotYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{nope"), 0o644))

	_, err := loadSeedFile(path)
	assert.Error(t, err)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
)

func TestParseOrgUnits(t *testing.T) {
	table, err := ParseOrgUnits([]byte(`
streams:
  BCA:
    min_period: 1
    max_period: 6
    languages: [Kannada, hindi]
  MCOM:
    code: mcom
    min_period: 5
    max_period: 6
`))
	require.NoError(t, err)

	unit, err := table.Unit("bca")
	require.NoError(t, err)
	assert.True(t, unit.PeriodInRange(6))
	assert.False(t, unit.PeriodInRange(7))
	assert.True(t, unit.OffersLanguage("kannada"), "language tags are normalized")

	id, err := table.ResolveID(partition.StudentsKey("MCOM", 5))
	require.NoError(t, err)
	assert.Equal(t, partition.ID("sa_mcom_s5_students"), id)
}

func TestParseOrgUnitsRejectsBadInput(t *testing.T) {
	_, err := ParseOrgUnits([]byte(`streams: {}`))
	assert.Error(t, err)

	_, err = ParseOrgUnits([]byte("streams: [not, a, map]"))
	assert.Error(t, err)

	// Inverted period range fails table construction.
	_, err = ParseOrgUnits([]byte(`
streams:
  BCA:
    min_period: 6
    max_period: 1
`))
	assert.Error(t, err)
}

func TestDefaultOrgUnits(t *testing.T) {
	table, err := DefaultOrgUnits()
	require.NoError(t, err)
	assert.Len(t, table.Streams(), 6)

	_, err = table.Unit("BCA")
	assert.NoError(t, err)
}

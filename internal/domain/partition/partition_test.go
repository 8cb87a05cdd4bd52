package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(map[shared.Stream]OrgUnit{
		"BCA": {
			Code:      "bca",
			MinPeriod: 1,
			MaxPeriod: 6,
			Languages: []shared.LanguageTag{"kannada", "hindi"},
		},
		"MCOM": {
			MinPeriod: 5,
			MaxPeriod: 6,
		},
	})
	require.NoError(t, err)
	return table
}

func TestResolveID_Deterministic(t *testing.T) {
	table := newTestTable(t)

	key := AttendanceKey("BCA", 3, "Kannada")
	id1, err := table.ResolveID(key)
	require.NoError(t, err)
	id2, err := table.ResolveID(key)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, ID("sa_bca_s3_attendance_kannada"), id1)
}

func TestResolveID_NormalizesStreamCase(t *testing.T) {
	table := newTestTable(t)

	id1, err := table.ResolveID(StudentsKey("bca", 2))
	require.NoError(t, err)
	id2, err := table.ResolveID(StudentsKey("BCA", 2))
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, ID("sa_bca_s2_students"), id1)
}

func TestResolveID_UnknownStream(t *testing.T) {
	table := newTestTable(t)

	_, err := table.ResolveID(StudentsKey("BSC", 1))
	assert.ErrorIs(t, err, shared.ErrUnknownOrganizationUnit)
	assert.True(t, shared.IsConfiguration(err))
}

func TestResolveID_PeriodOutsideRange(t *testing.T) {
	table := newTestTable(t)

	_, err := table.ResolveID(StudentsKey("BCA", 7))
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)

	// MCOM is restricted to periods 5..6.
	_, err = table.ResolveID(StudentsKey("MCOM", 4))
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)

	_, err = table.ResolveID(StudentsKey("MCOM", 5))
	assert.NoError(t, err)
}

func TestResolveID_SubjectRequiredForAttendance(t *testing.T) {
	table := newTestTable(t)

	_, err := table.ResolveID(Key{Stream: "BCA", Period: 1, Kind: KindAttendance})
	assert.Error(t, err)

	_, err = table.ResolveID(Key{Stream: "BCA", Period: 1, Kind: KindStudents, Subject: "Math"})
	assert.Error(t, err)
}

func TestDefaultCodeFromStreamName(t *testing.T) {
	table := newTestTable(t)

	id, err := table.ResolveID(SubjectsKey("MCOM", 6))
	require.NoError(t, err)
	assert.Equal(t, ID("sa_mcom_s6_subjects"), id)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "kannada", Slug("Kannada"))
	assert.Equal(t, "data_structures", Slug("Data Structures"))
	assert.Equal(t, "c_programming", Slug("C++ Programming!"))
	assert.Equal(t, "", Slug("  --  "))
}

func TestOrgUnit_OffersLanguage(t *testing.T) {
	table := newTestTable(t)
	unit, err := table.Unit("BCA")
	require.NoError(t, err)

	assert.True(t, unit.OffersLanguage("Kannada"))
	assert.True(t, unit.OffersLanguage("HINDI"))
	assert.False(t, unit.OffersLanguage("tamil"))
}

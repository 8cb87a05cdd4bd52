package query

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// Minimal in-memory fakes for the read path. Only the methods the handler
// touches do real work.

type queryHandle struct {
	id  partition.ID
	key partition.Key
}

func (h queryHandle) PartitionID() partition.ID { return h.id }
func (h queryHandle) Key() partition.Key        { return h.key }

type tableRouter struct {
	table *partition.Table
}

func (r *tableRouter) Resolve(_ context.Context, key partition.Key) (partition.Handle, error) {
	id, err := r.table.ResolveID(key)
	if err != nil {
		return nil, err
	}
	return queryHandle{id: id, key: key}, nil
}

type rosterStore struct {
	byPart map[partition.ID][]*student.Student
}

func (s *rosterStore) Insert(context.Context, partition.Handle, *student.Student) error {
	return nil
}
func (s *rosterStore) GetByExternalID(context.Context, partition.Handle, student.ExternalID) (*student.Student, error) {
	return nil, shared.ErrStudentNotFound
}
func (s *rosterStore) ListActive(_ context.Context, h partition.Handle) ([]*student.Student, error) {
	out := append([]*student.Student(nil), s.byPart[h.PartitionID()]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}
func (s *rosterStore) Update(context.Context, partition.Handle, *student.Student) error { return nil }
func (s *rosterStore) Count(_ context.Context, h partition.Handle) (int, error) {
	return len(s.byPart[h.PartitionID()]), nil
}

type catalogStore struct {
	byPart map[partition.ID][]*subject.Subject
}

func (s *catalogStore) Create(context.Context, partition.Handle, *subject.Subject) error { return nil }
func (s *catalogStore) GetByName(context.Context, partition.Handle, string) (*subject.Subject, error) {
	return nil, shared.ErrSubjectNotFound
}
func (s *catalogStore) ListActive(_ context.Context, h partition.Handle) ([]*subject.Subject, error) {
	return append([]*subject.Subject(nil), s.byPart[h.PartitionID()]...), nil
}
func (s *catalogStore) Update(context.Context, partition.Handle, *subject.Subject) error { return nil }

type recordStore struct {
	mu     sync.Mutex
	byPart map[partition.ID]map[shared.Day]*attendance.Record
	gets   int
}

func (s *recordStore) Put(context.Context, partition.Handle, *attendance.Record, bool) (bool, error) {
	return false, nil
}
func (s *recordStore) Get(_ context.Context, h partition.Handle, day shared.Day) (*attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	r, ok := s.byPart[h.PartitionID()][day]
	if !ok {
		return nil, shared.ErrAttendanceNotFound
	}
	copy := *r
	return &copy, nil
}
func (s *recordStore) ListDays(context.Context, partition.Handle, int) ([]shared.Day, error) {
	return nil, nil
}

// memSummaryCache is a map-backed SummaryCache.
type memSummaryCache struct {
	mu      sync.Mutex
	entries map[string][]attendance.AbsenceSummary
	hits    int
	sets    int
}

func newMemSummaryCache() *memSummaryCache {
	return &memSummaryCache{entries: make(map[string][]attendance.AbsenceSummary)}
}

func cacheKey(stream shared.Stream, period shared.Period, day shared.Day) string {
	return stream.String() + "/" + period.String() + "/" + day.String()
}

func (c *memSummaryCache) Get(_ context.Context, stream shared.Stream, period shared.Period, day shared.Day) ([]attendance.AbsenceSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[cacheKey(stream, period, day)]
	if ok {
		c.hits++
	}
	return cached, ok
}

func (c *memSummaryCache) Set(_ context.Context, stream shared.Stream, period shared.Period, day shared.Day, summaries []attendance.AbsenceSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[cacheKey(stream, period, day)] = summaries
	return nil
}

// consolidationFixture seeds BCA sem3 with three students (two kannada, one
// hindi) and three subjects, then records the worked scenario:
//
//	Mathematics (core):   R001, R002 present; R003 absent
//	Kannada (language):   R002 present; R001 absent
//	Hindi (language):     no record taken this day
type consolidationFixture struct {
	handler *ConsolidateAbsencesHandler
	cache   *memSummaryCache
	records *recordStore
	table   *partition.Table
}

func newConsolidationFixture(t *testing.T, withCache bool) *consolidationFixture {
	t.Helper()

	table, err := partition.NewTable(map[shared.Stream]partition.OrgUnit{
		"BCA": {MinPeriod: 1, MaxPeriod: 6, Languages: []shared.LanguageTag{"kannada", "hindi"}},
	})
	require.NoError(t, err)

	mkStudent := func(id, name string, lang shared.LanguageTag, guardian string) *student.Student {
		s, err := student.New(student.ExternalID(id), name, "BCA", 3, lang, student.GuardianContact(guardian))
		require.NoError(t, err)
		return s
	}
	mkSubject := func(name string, typ subject.Type, lang shared.LanguageTag) *subject.Subject {
		s, err := subject.New(name, "BCA", 3, typ, lang)
		require.NoError(t, err)
		return s
	}
	mkRecord := func(name string, lang shared.LanguageTag, eligible int, present ...student.ExternalID) *attendance.Record {
		r, err := attendance.NewRecord("2026-03-10", name, "BCA", 3, present, eligible, lang, time.Now())
		require.NoError(t, err)
		return r
	}
	id := func(key partition.Key) partition.ID {
		pid, err := table.ResolveID(key)
		require.NoError(t, err)
		return pid
	}

	students := &rosterStore{byPart: map[partition.ID][]*student.Student{
		id(partition.StudentsKey("BCA", 3)): {
			mkStudent("R001", "Asha", "kannada", "+911111111111"),
			mkStudent("R002", "Bharat", "kannada", "+912222222222"),
			mkStudent("R003", "Chitra", "hindi", "+913333333333"),
		},
	}}
	subjects := &catalogStore{byPart: map[partition.ID][]*subject.Subject{
		id(partition.SubjectsKey("BCA", 3)): {
			mkSubject("Mathematics", subject.TypeCore, ""),
			mkSubject("Kannada", subject.TypeLanguage, "kannada"),
			mkSubject("Hindi", subject.TypeLanguage, "hindi"),
		},
	}}
	records := &recordStore{byPart: map[partition.ID]map[shared.Day]*attendance.Record{
		id(partition.AttendanceKey("BCA", 3, "Mathematics")): {
			"2026-03-10": mkRecord("Mathematics", "", 3, "R001", "R002"),
		},
		id(partition.AttendanceKey("BCA", 3, "Kannada")): {
			"2026-03-10": mkRecord("Kannada", "kannada", 2, "R002"),
		},
	}}

	f := &consolidationFixture{records: records, table: table}
	if withCache {
		f.cache = newMemSummaryCache()
	}
	var cache SummaryCache
	if f.cache != nil {
		cache = f.cache
	}
	f.handler = NewConsolidateAbsencesHandler(&tableRouter{table: table}, students, subjects, records, cache, nil)
	return f
}

func TestConsolidateAbsencesClassifiesDay(t *testing.T) {
	f := newConsolidationFixture(t, false)

	summaries, err := f.handler.Handle(context.Background(), ConsolidateAbsencesQuery{
		Stream: "BCA", Period: 3, Day: "2026-03-10",
	})
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Sorted by student ID.
	r1, r2, r3 := summaries[0], summaries[1], summaries[2]

	// R001: present in Mathematics, absent from Kannada -> partial day.
	assert.Equal(t, student.ExternalID("R001"), r1.StudentID)
	assert.Equal(t, attendance.ClassPartialDay, r1.Classification)
	assert.Equal(t, []string{"Kannada"}, r1.AbsentSubjects)
	assert.Equal(t, 2, r1.EligibleTaken)

	// R002: present everywhere.
	assert.Equal(t, attendance.ClassPresent, r2.Classification)
	assert.False(t, r2.IsAbsent())

	// R003: hindi student, only eligible for Mathematics that day (Hindi took
	// no attendance, Kannada never counts against them) -> full day.
	assert.Equal(t, attendance.ClassFullDay, r3.Classification)
	assert.Equal(t, []string{"Mathematics"}, r3.AbsentSubjects)
	assert.Equal(t, 1, r3.EligibleTaken)
}

func TestConsolidateAbsencesZeroRecordsMeansAllPresent(t *testing.T) {
	f := newConsolidationFixture(t, false)

	// A day with no attendance taken anywhere.
	summaries, err := f.handler.Handle(context.Background(), ConsolidateAbsencesQuery{
		Stream: "BCA", Period: 3, Day: "2026-03-11",
	})
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for _, s := range summaries {
		assert.Equal(t, attendance.ClassPresent, s.Classification)
		assert.Equal(t, 0, s.EligibleTaken)
	}
}

func TestConsolidateAbsencesCacheRoundTrip(t *testing.T) {
	f := newConsolidationFixture(t, true)
	q := ConsolidateAbsencesQuery{Stream: "BCA", Period: 3, Day: "2026-03-10"}

	first, err := f.handler.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)
	fetchesAfterFirst := f.records.gets

	second, err := f.handler.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)
	assert.Equal(t, fetchesAfterFirst, f.records.gets, "cache hit must not touch storage")
	assert.Equal(t, first, second)
}

func TestConsolidateAbsencesSkipCache(t *testing.T) {
	f := newConsolidationFixture(t, true)
	q := ConsolidateAbsencesQuery{Stream: "BCA", Period: 3, Day: "2026-03-10"}

	_, err := f.handler.Handle(context.Background(), q)
	require.NoError(t, err)

	q.SkipCache = true
	_, err = f.handler.Handle(context.Background(), q)
	require.NoError(t, err)

	// The forced run bypassed the read but refreshed the entry.
	assert.Equal(t, 0, f.cache.hits)
	assert.Equal(t, 2, f.cache.sets)
}

func TestConsolidateAbsencesUnknownStream(t *testing.T) {
	f := newConsolidationFixture(t, false)

	_, err := f.handler.Handle(context.Background(), ConsolidateAbsencesQuery{
		Stream: "BSC", Period: 3, Day: "2026-03-10",
	})
	assert.ErrorIs(t, err, shared.ErrUnknownOrganizationUnit)
}

func TestConsolidateAbsencesInvalidDay(t *testing.T) {
	f := newConsolidationFixture(t, false)

	_, err := f.handler.Handle(context.Background(), ConsolidateAbsencesQuery{
		Stream: "BCA", Period: 3, Day: "March 10",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

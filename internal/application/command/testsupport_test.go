package command

import (
	"context"
	"sort"
	"sync"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// In-memory fakes backing the command handler tests. They mirror the
// storage contracts exactly, including the transactional all-or-nothing
// behavior the promotion engine relies on.

func testTable() *partition.Table {
	table, err := partition.NewTable(map[shared.Stream]partition.OrgUnit{
		"BCA": {MinPeriod: 1, MaxPeriod: 6, Languages: []shared.LanguageTag{"kannada", "hindi"}},
		"MCOM": {
			Code:      "mcom",
			MinPeriod: 5,
			MaxPeriod: 6,
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}

type fakeHandle struct {
	id  partition.ID
	key partition.Key
}

func (h fakeHandle) PartitionID() partition.ID { return h.id }
func (h fakeHandle) Key() partition.Key        { return h.key }

// fakeRouter resolves keys through the org table without any storage.
type fakeRouter struct {
	table *partition.Table
}

func (r *fakeRouter) Resolve(_ context.Context, key partition.Key) (partition.Handle, error) {
	id, err := r.table.ResolveID(key)
	if err != nil {
		return nil, err
	}
	return fakeHandle{id: id, key: key}, nil
}

// memStudentStore holds students per partition ID.
type memStudentStore struct {
	mu       sync.Mutex
	byPart   map[partition.ID]map[student.ExternalID]*student.Student
	events   []student.MigrationEvent
	failInto partition.ID // BulkInsert into this partition fails
	failGrad bool         // AppendMigrationEvents fails for graduation events
}

func newMemStudentStore() *memStudentStore {
	return &memStudentStore{byPart: make(map[partition.ID]map[student.ExternalID]*student.Student)}
}

func (m *memStudentStore) part(id partition.ID) map[student.ExternalID]*student.Student {
	p, ok := m.byPart[id]
	if !ok {
		p = make(map[student.ExternalID]*student.Student)
		m.byPart[id] = p
	}
	return p
}

func (m *memStudentStore) seed(id partition.ID, students ...*student.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range students {
		copy := *s
		m.part(id)[s.ExternalID] = &copy
	}
}

func (m *memStudentStore) listActive(id partition.ID) []*student.Student {
	var out []*student.Student
	for _, s := range m.byPart[id] {
		if s.Active {
			copy := *s
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// Repository implementation (non-transactional paths).

func (m *memStudentStore) Insert(_ context.Context, h partition.Handle, s *student.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.part(h.PartitionID())
	if _, exists := p[s.ExternalID]; exists {
		return shared.ErrStudentAlreadyExists
	}
	copy := *s
	p[s.ExternalID] = &copy
	return nil
}

func (m *memStudentStore) GetByExternalID(_ context.Context, h partition.Handle, id student.ExternalID) (*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.part(h.PartitionID())[id.Normalized()]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	copy := *s
	return &copy, nil
}

func (m *memStudentStore) ListActive(_ context.Context, h partition.Handle) ([]*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listActive(h.PartitionID()), nil
}

func (m *memStudentStore) Update(_ context.Context, h partition.Handle, s *student.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.part(h.PartitionID())
	if _, ok := p[s.ExternalID]; !ok {
		return shared.ErrStudentNotFound
	}
	copy := *s
	p[s.ExternalID] = &copy
	return nil
}

func (m *memStudentStore) Count(_ context.Context, h partition.Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.part(h.PartitionID())), nil
}

// TxRunner implementation: stages all mutations and commits only when fn
// succeeds, like the real serializable transaction.

type memTx struct {
	store  *memStudentStore
	staged map[partition.ID]map[student.ExternalID]*student.Student
	events []student.MigrationEvent
}

func (m *memStudentStore) WithinTx(_ context.Context, fn func(tx student.TxStore) error) error {
	m.mu.Lock()
	staged := make(map[partition.ID]map[student.ExternalID]*student.Student, len(m.byPart))
	for id, p := range m.byPart {
		cp := make(map[student.ExternalID]*student.Student, len(p))
		for k, s := range p {
			c := *s
			cp[k] = &c
		}
		staged[id] = cp
	}
	m.mu.Unlock()

	tx := &memTx{store: m, staged: staged}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.byPart = tx.staged
	m.events = append(m.events, tx.events...)
	m.mu.Unlock()
	return nil
}

func (t *memTx) part(id partition.ID) map[student.ExternalID]*student.Student {
	p, ok := t.staged[id]
	if !ok {
		p = make(map[student.ExternalID]*student.Student)
		t.staged[id] = p
	}
	return p
}

func (t *memTx) ListActive(_ context.Context, h partition.Handle) ([]*student.Student, error) {
	var out []*student.Student
	for _, s := range t.part(h.PartitionID()) {
		if s.Active {
			copy := *s
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (t *memTx) BulkInsert(_ context.Context, h partition.Handle, students []*student.Student) error {
	if t.store.failInto != "" && h.PartitionID() == t.store.failInto {
		return shared.ErrConcurrentModification
	}
	p := t.part(h.PartitionID())
	for _, s := range students {
		if _, exists := p[s.ExternalID]; exists {
			return shared.ErrStudentAlreadyExists
		}
		copy := *s
		p[s.ExternalID] = &copy
	}
	return nil
}

func (t *memTx) DeleteByExternalIDs(_ context.Context, h partition.Handle, ids []student.ExternalID) error {
	p := t.part(h.PartitionID())
	for _, id := range ids {
		if _, ok := p[id]; !ok {
			return shared.ErrConcurrentModification
		}
		delete(p, id)
	}
	return nil
}

func (t *memTx) AppendMigrationEvents(_ context.Context, events []student.MigrationEvent) error {
	if t.store.failGrad {
		for _, e := range events {
			if e.Kind == student.MigrationGraduation {
				return shared.ErrTransactionAborted
			}
		}
	}
	t.events = append(t.events, events...)
	return nil
}

// memSubjectStore holds subjects per partition ID.
type memSubjectStore struct {
	mu     sync.Mutex
	byPart map[partition.ID]map[string]*subject.Subject
}

func newMemSubjectStore() *memSubjectStore {
	return &memSubjectStore{byPart: make(map[partition.ID]map[string]*subject.Subject)}
}

func (m *memSubjectStore) part(id partition.ID) map[string]*subject.Subject {
	p, ok := m.byPart[id]
	if !ok {
		p = make(map[string]*subject.Subject)
		m.byPart[id] = p
	}
	return p
}

func (m *memSubjectStore) Create(_ context.Context, h partition.Handle, s *subject.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.part(h.PartitionID())
	if _, exists := p[s.Name]; exists {
		return shared.ErrSubjectAlreadyExists
	}
	copy := *s
	p[s.Name] = &copy
	return nil
}

func (m *memSubjectStore) GetByName(_ context.Context, h partition.Handle, name string) (*subject.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.part(h.PartitionID())[name]
	if !ok || !s.Active {
		return nil, shared.ErrSubjectNotFound
	}
	copy := *s
	return &copy, nil
}

func (m *memSubjectStore) ListActive(_ context.Context, h partition.Handle) ([]*subject.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*subject.Subject
	for _, s := range m.part(h.PartitionID()) {
		if s.Active {
			copy := *s
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memSubjectStore) Update(_ context.Context, h partition.Handle, s *subject.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.part(h.PartitionID())
	if _, ok := p[s.Name]; !ok {
		return shared.ErrSubjectNotFound
	}
	copy := *s
	p[s.Name] = &copy
	return nil
}

// memAttendanceStore holds one record per (partition, day).
type memAttendanceStore struct {
	mu     sync.Mutex
	byPart map[partition.ID]map[shared.Day]*attendance.Record
}

func newMemAttendanceStore() *memAttendanceStore {
	return &memAttendanceStore{byPart: make(map[partition.ID]map[shared.Day]*attendance.Record)}
}

func (m *memAttendanceStore) part(id partition.ID) map[shared.Day]*attendance.Record {
	p, ok := m.byPart[id]
	if !ok {
		p = make(map[shared.Day]*attendance.Record)
		m.byPart[id] = p
	}
	return p
}

func (m *memAttendanceStore) Put(_ context.Context, h partition.Handle, r *attendance.Record, overwrite bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.part(h.PartitionID())
	_, exists := p[r.Day]
	if exists && !overwrite {
		return false, shared.ErrDuplicateRecord
	}
	copy := *r
	copy.Overwritten = exists
	p[r.Day] = &copy
	return exists, nil
}

func (m *memAttendanceStore) Get(_ context.Context, h partition.Handle, day shared.Day) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.part(h.PartitionID())[day]
	if !ok {
		return nil, shared.ErrAttendanceNotFound
	}
	copy := *r
	return &copy, nil
}

func (m *memAttendanceStore) ListDays(_ context.Context, h partition.Handle, limit int) ([]shared.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var days []shared.Day
	for d := range m.part(h.PartitionID()) {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

// collectingBus records published events synchronously.
type collectingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *collectingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *collectingBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

func mustStudent(id, name string, stream shared.Stream, period shared.Period, language shared.LanguageTag, guardian string) *student.Student {
	s, err := student.New(student.ExternalID(id), name, stream, period, language, student.GuardianContact(guardian))
	if err != nil {
		panic(err)
	}
	return s
}

func mustSubject(name string, stream shared.Stream, period shared.Period, typ subject.Type, language shared.LanguageTag) *subject.Subject {
	s, err := subject.New(name, stream, period, typ, language)
	if err != nil {
		panic(err)
	}
	return s
}

func partID(t *partition.Table, key partition.Key) partition.ID {
	id, err := t.ResolveID(key)
	if err != nil {
		panic(err)
	}
	return id
}

// Package partition defines the logical partitioning scheme for attendance
// data. A partition key (stream, period, kind, optional subject) maps to a
// deterministic partition ID; the physical provisioning of partitions lives
// in infrastructure/persistence.
//
// Partitioning by stream x period x subject isolates academic periods
// physically, so cohort promotion is a data-movement operation between
// partitions rather than a conditional field update.
package partition

import (
	"context"
	"fmt"
	"strings"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD KINDS
// ══════════════════════════════════════════════════════════════════════════════

// Kind identifies the record family stored in a partition.
type Kind string

const (
	// KindStudents holds StudentRecords for one (stream, period).
	KindStudents Kind = "students"

	// KindSubjects holds SubjectRecords for one (stream, period).
	KindSubjects Kind = "subjects"

	// KindAttendance holds AttendanceRecords for one (stream, period, subject).
	KindAttendance Kind = "attendance"
)

// IsValid reports whether the kind is one of the known record families.
func (k Kind) IsValid() bool {
	switch k {
	case KindStudents, KindSubjects, KindAttendance:
		return true
	}
	return false
}

// RequiresSubject reports whether keys of this kind must carry a subject name.
func (k Kind) RequiresSubject() bool {
	return k == KindAttendance
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTITION KEY / ID
// ══════════════════════════════════════════════════════════════════════════════

// Key is the logical address of a partition.
type Key struct {
	Stream  shared.Stream
	Period  shared.Period
	Kind    Kind
	Subject string // required iff Kind.RequiresSubject()
}

// StudentsKey builds a key for the student partition of (stream, period).
func StudentsKey(stream shared.Stream, period shared.Period) Key {
	return Key{Stream: stream.Normalized(), Period: period, Kind: KindStudents}
}

// SubjectsKey builds a key for the subject partition of (stream, period).
func SubjectsKey(stream shared.Stream, period shared.Period) Key {
	return Key{Stream: stream.Normalized(), Period: period, Kind: KindSubjects}
}

// AttendanceKey builds a key for the attendance partition of one subject.
func AttendanceKey(stream shared.Stream, period shared.Period, subject string) Key {
	return Key{Stream: stream.Normalized(), Period: period, Kind: KindAttendance, Subject: subject}
}

// Validate checks the key shape. Stream membership and period range are
// validated against the organization-unit table, not here.
func (k Key) Validate() error {
	if !k.Stream.IsValid() {
		return shared.WrapError("partition", "Validate", shared.ErrInvalidInput, "invalid stream name", nil)
	}
	if !k.Period.IsValid() {
		return shared.ErrInvalidPeriod
	}
	if !k.Kind.IsValid() {
		return shared.ErrInvalidPartitionKind
	}
	if k.Kind.RequiresSubject() && Slug(k.Subject) == "" {
		return shared.WrapError("partition", "Validate", shared.ErrEmptyValue, "attendance key requires a subject", nil)
	}
	if !k.Kind.RequiresSubject() && k.Subject != "" {
		return shared.WrapError("partition", "Validate", shared.ErrInvalidInput, "subject is only valid for attendance partitions", nil)
	}
	return nil
}

// String returns a human-readable key form for logs.
func (k Key) String() string {
	if k.Subject != "" {
		return fmt.Sprintf("%s/%s/%s/%s", k.Stream, k.Period, k.Kind, k.Subject)
	}
	return fmt.Sprintf("%s/%s/%s", k.Stream, k.Period, k.Kind)
}

// ID is the deterministic identifier of a partition. It doubles as the
// physical table name, so it is restricted to lower-case identifier
// characters. Identical keys always yield identical IDs.
type ID string

// String returns the ID as a string.
func (id ID) String() string {
	return string(id)
}

// Slug normalizes a free-form name into an identifier fragment: lower-case,
// runs of non-alphanumeric characters collapse to a single underscore.
func Slug(s string) string {
	var b strings.Builder
	lastUnderscore := true // suppress leading underscore
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTITION HANDLE
// ══════════════════════════════════════════════════════════════════════════════

// Handle is the resolved physical location of one partition, produced by the
// router. Record stores trust the handle and never re-derive partition IDs
// themselves. The router caches at most one handle per distinct ID for the
// process lifetime.
type Handle interface {
	// PartitionID returns the deterministic partition identifier.
	PartitionID() ID

	// Key returns the logical key the handle was resolved from.
	Key() Key
}

// Router resolves logical partition keys to physical handles, provisioning
// partitions lazily on first resolution. Resolution is idempotent and safe
// for concurrent use.
type Router interface {
	Resolve(ctx context.Context, key Key) (Handle, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ORGANIZATION-UNIT TABLE
// ══════════════════════════════════════════════════════════════════════════════

// OrgUnit is the static configuration for one stream: its physical partition
// code and valid period range. Supplied at startup and treated as read-only.
type OrgUnit struct {
	// Code is the short physical partition code, e.g. "bca".
	Code string

	// MinPeriod and MaxPeriod bound the valid academic periods (inclusive).
	// Streams scoped to a subset of the sequence use a restricted contiguous
	// range, e.g. 5..6.
	MinPeriod shared.Period
	MaxPeriod shared.Period

	// Languages is the set of language tags offered by the stream. Used to
	// validate language-restricted subjects at creation time.
	Languages []shared.LanguageTag
}

// PeriodInRange reports whether p falls inside the unit's period range.
func (u OrgUnit) PeriodInRange(p shared.Period) bool {
	return p >= u.MinPeriod && p <= u.MaxPeriod
}

// OffersLanguage reports whether the stream offers the given language.
func (u OrgUnit) OffersLanguage(tag shared.LanguageTag) bool {
	for _, l := range u.Languages {
		if l.Matches(tag) {
			return true
		}
	}
	return false
}

// Table is the read-only mapping from stream name to organization unit.
type Table struct {
	units map[shared.Stream]OrgUnit
}

// NewTable builds a Table from a stream -> unit mapping. Stream names are
// normalized; an empty partition code defaults to the slug of the stream name.
func NewTable(units map[shared.Stream]OrgUnit) (*Table, error) {
	normalized := make(map[shared.Stream]OrgUnit, len(units))
	for stream, unit := range units {
		key := stream.Normalized()
		if !key.IsValid() {
			return nil, shared.WrapError("partition", "NewTable", shared.ErrConfiguration,
				fmt.Sprintf("invalid stream name %q", stream), nil)
		}
		if unit.Code == "" {
			unit.Code = Slug(string(key))
		}
		if Slug(unit.Code) != unit.Code || unit.Code == "" {
			return nil, shared.WrapError("partition", "NewTable", shared.ErrConfiguration,
				fmt.Sprintf("stream %q has a non-canonical partition code %q", key, unit.Code), nil)
		}
		if !unit.MinPeriod.IsValid() || unit.MaxPeriod < unit.MinPeriod {
			return nil, shared.WrapError("partition", "NewTable", shared.ErrConfiguration,
				fmt.Sprintf("stream %q has an invalid period range %d..%d", key, unit.MinPeriod, unit.MaxPeriod), nil)
		}
		normalized[key] = unit
	}
	return &Table{units: normalized}, nil
}

// Unit returns the organization unit for a stream.
// Returns ErrUnknownOrganizationUnit for streams missing from the mapping:
// an unknown stream is a configuration error, never a runtime guess.
func (t *Table) Unit(stream shared.Stream) (OrgUnit, error) {
	unit, ok := t.units[stream.Normalized()]
	if !ok {
		return OrgUnit{}, shared.WrapError("partition", "Unit", shared.ErrUnknownOrganizationUnit,
			fmt.Sprintf("stream %q", stream), nil)
	}
	return unit, nil
}

// Streams returns the configured stream names.
func (t *Table) Streams() []shared.Stream {
	out := make([]shared.Stream, 0, len(t.units))
	for s := range t.units {
		out = append(out, s)
	}
	return out
}

// ResolveID validates the key against the table and derives its partition ID.
// Fails with ErrUnknownOrganizationUnit for unconfigured streams and
// ErrInvalidPeriod for periods outside the stream's range.
func (t *Table) ResolveID(key Key) (ID, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	unit, err := t.Unit(key.Stream)
	if err != nil {
		return "", err
	}
	if !unit.PeriodInRange(key.Period) {
		return "", shared.WrapError("partition", "ResolveID", shared.ErrInvalidPeriod,
			fmt.Sprintf("period %d outside %d..%d for stream %q", key.Period, unit.MinPeriod, unit.MaxPeriod, key.Stream), nil)
	}

	id := fmt.Sprintf("sa_%s_s%d_%s", unit.Code, int(key.Period), key.Kind)
	if key.Kind.RequiresSubject() {
		id += "_" + Slug(key.Subject)
	}
	return ID(id), nil
}

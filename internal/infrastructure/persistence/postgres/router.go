package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARTITION HANDLE
// ══════════════════════════════════════════════════════════════════════════════

// Handle is the resolved physical location of one partition. The partition
// ID doubles as the table name.
type Handle struct {
	id  partition.ID
	key partition.Key
}

// PartitionID implements partition.Handle.
func (h *Handle) PartitionID() partition.ID {
	return h.id
}

// Key implements partition.Handle.
func (h *Handle) Key() partition.Key {
	return h.key
}

// TableName returns the physical table backing the partition.
func (h *Handle) TableName() string {
	return string(h.id)
}

// tableName extracts the physical table from any partition.Handle produced
// by this router. Stores call this instead of re-deriving names.
func tableName(h partition.Handle) string {
	return string(h.PartitionID())
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig holds router options.
type RouterConfig struct {
	// AllowReprovision enables the destructive Reprovision operation.
	// Off by default; operational tooling must opt in explicitly.
	AllowReprovision bool
}

// Router maps logical partition keys to physical tables, creating tables
// lazily on first resolution. Resolution is idempotent and cached: at most
// one handle exists per distinct partition ID for the process lifetime. The
// handle cache is append-only and safe for concurrent resolution.
type Router struct {
	conn  *Connection
	table *partition.Table
	cfg   RouterConfig

	mu      sync.RWMutex
	handles map[partition.ID]*Handle
}

// NewRouter creates a Router over the given connection and organization-unit
// table.
func NewRouter(conn *Connection, table *partition.Table, cfg RouterConfig) *Router {
	return &Router{
		conn:    conn,
		table:   table,
		cfg:     cfg,
		handles: make(map[partition.ID]*Handle),
	}
}

// Resolve validates the key, provisions the physical table if it does not
// exist yet, and returns the cached handle. Concurrent first resolutions of
// the same key are safe: creation runs under an advisory lock and duplicate
// creations converge on the same table.
func (r *Router) Resolve(ctx context.Context, key partition.Key) (partition.Handle, error) {
	id, err := r.table.ResolveID(key)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	h, ok := r.handles[id]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	if err := r.provision(ctx, id, key.Kind); err != nil {
		return nil, shared.WrapError("partition", "Resolve", shared.ErrExternalService,
			fmt.Sprintf("provisioning %s", id), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have won the race; reuse its handle so the
	// "one handle per ID" invariant holds.
	if h, ok := r.handles[id]; ok {
		return h, nil
	}
	h = &Handle{id: id, key: key}
	r.handles[id] = h
	return h, nil
}

// Reprovision drops and recreates one partition's physical table. This is
// the only destructive partition operation; it fails unless the router was
// constructed with AllowReprovision.
func (r *Router) Reprovision(ctx context.Context, key partition.Key) error {
	if !r.cfg.AllowReprovision {
		return shared.ErrReprovisionNotAllowed
	}

	id, err := r.table.ResolveID(key)
	if err != nil {
		return err
	}

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := acquireDDLLock(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, id)); err != nil {
			return fmt.Errorf("drop %s: %w", id, err)
		}
		if _, err := tx.Exec(ctx, partitionDDL(id, key.Kind)); err != nil {
			return fmt.Errorf("recreate %s: %w", id, err)
		}
		return nil
	})
}

// provision creates the partition table if absent. CREATE TABLE IF NOT
// EXISTS is already idempotent; the advisory lock serializes concurrent
// creations of the same partition so they cannot race inside the catalog.
func (r *Router) provision(ctx context.Context, id partition.ID, kind partition.Kind) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := acquireDDLLock(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, partitionDDL(id, kind)); err != nil {
			return fmt.Errorf("create %s: %w", id, err)
		}
		return nil
	})
}

// acquireDDLLock takes a transaction-scoped advisory lock keyed by the
// partition ID.
func acquireDDLLock(ctx context.Context, tx pgx.Tx, id partition.ID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(id)); err != nil {
		return fmt.Errorf("advisory lock for %s: %w", id, err)
	}
	return nil
}

// partitionDDL returns the CREATE TABLE statement for one record kind. The
// table name comes from partition.ID, which is restricted to identifier
// characters, so interpolation is safe.
func partitionDDL(id partition.ID, kind partition.Kind) string {
	switch kind {
	case partition.KindStudents:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			external_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			stream TEXT NOT NULL,
			current_period INTEGER NOT NULL,
			original_period INTEGER NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			guardian TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			migration_generation INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, id)
	case partition.KindSubjects:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			stream TEXT NOT NULL,
			period INTEGER NOT NULL,
			type TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, id)
	case partition.KindAttendance:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			day DATE PRIMARY KEY,
			subject TEXT NOT NULL,
			stream TEXT NOT NULL,
			period INTEGER NOT NULL,
			present_ids TEXT[] NOT NULL DEFAULT '{}',
			eligible_count INTEGER NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			overwritten BOOLEAN NOT NULL DEFAULT FALSE,
			recorded_at TIMESTAMPTZ NOT NULL
		)`, id)
	default:
		// Key validation upstream makes this unreachable.
		return ""
	}
}

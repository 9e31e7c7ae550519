// Package sqlstore backs store.Store with a real SQL table instead of a
// bare Go map, the way core.IndexManager in the grounding pack lets
// CloudFS's metadata index run against SQLite. spec.md keeps on-disk
// page layout out of scope, so this package only ever persists row
// values and each index's accessor root position — never the AVL
// pointer graph itself, which is rebuilt in memory by replaying
// Tree.Insert after Load.
//
// Driver-specific constructors live in sqlstore/mysql, sqlstore/postgres,
// sqlstore/mssql, and sqlstore/sqlite; this package holds the shared
// logic parameterized by Dialect.
package sqlstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/relindex/relindex/store"
)

func init() {
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
}

// Dialect captures the handful of SQL differences between the four
// backing drivers this package supports.
type Dialect struct {
	Name        string
	BlobType    string
	Placeholder func(n int) string
	Upsert      func(table string, ph func(int) string) string
}

func (d Dialect) ph(n int) string { return d.Placeholder(n) }

// VisibilityFunc decides whether row is visible to session under the
// given action mode. A nil VisibilityFunc makes every live row visible,
// since MVCC policy belongs to the transaction manager, a named external
// collaborator per spec.md section 1.
type VisibilityFunc func(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool

// Store implements store.Store against a real SQL database. Row values
// and accessor root positions are durably mirrored on every mutation;
// the Node pointer graph stays in-memory only, exactly as in memstore.
type Store struct {
	id string

	db      *sql.DB
	dialect Dialect
	rowsTbl string
	accTbl  string

	mu           sync.RWMutex
	rows         map[int64]*store.Row
	accessors    map[int]*store.Node
	nextPosition int64
	indexCount   int
	visibility   VisibilityFunc
}

// Option configures a Store at construction.
type Option func(*Store)

// WithVisibility installs a custom MVCC visibility predicate.
func WithVisibility(fn VisibilityFunc) Option {
	return func(s *Store) { s.visibility = fn }
}

// WithTablePrefix overrides the default "rows"/"accessors" table names,
// for sharing one database across multiple tables under test.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) {
		s.rowsTbl = prefix + "_rows"
		s.accTbl = prefix + "_accessors"
	}
}

// Open creates (or reopens) a SQL-backed store against an
// already-connected db, ensuring its backing tables exist. Callers
// import the relevant driver subpackage (sqlstore/mysql and friends)
// rather than this function directly.
func Open(ctx context.Context, db *sql.DB, dialect Dialect, indexCount int, opts ...Option) (*Store, error) {
	s := &Store{
		id:         uuid.New().String(),
		db:         db,
		dialect:    dialect,
		rowsTbl:    "rows",
		accTbl:     "accessors",
		rows:       make(map[int64]*store.Row),
		accessors:  make(map[int]*store.Node),
		indexCount: indexCount,
	}
	for _, opt := range opts {
		opt(s)
	}

	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (position BIGINT PRIMARY KEY, data %s NOT NULL, deleted INTEGER NOT NULL DEFAULT 0)`, s.rowsTbl, dialect.BlobType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (index_id INTEGER PRIMARY KEY, root_position BIGINT)`, s.accTbl),
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("relindex/sqlstore: create schema: %w", err)
		}
	}

	// Seed one accessors row per index up front, NULL root_position,
	// so dialects without a real upsert (mssql) can maintain the row
	// with a plain UPDATE in SetAccessor.
	seed := fmt.Sprintf("INSERT INTO %s (index_id, root_position) VALUES (%s, NULL)", s.accTbl, dialect.ph(1))
	for i := 0; i < indexCount; i++ {
		_, _ = db.ExecContext(ctx, seed, i)
	}
	return s, nil
}

// ID returns the store's generated identifier.
func (s *Store) ID() string { return s.id }

func encodeValues(values []any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte) ([]any, error) {
	var values []any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// NewRow allocates a row, persists it, and inserts it into the
// in-memory arena. Callers then run it through each index's
// Tree.Insert.
func (s *Store) NewRow(ctx context.Context, values []any) (*store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.nextPosition
	s.nextPosition++
	row := store.NewRow(pos, values, s.indexCount)

	data, err := encodeValues(values)
	if err != nil {
		return nil, fmt.Errorf("relindex/sqlstore: encode row %d: %w", pos, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (position, data, deleted) VALUES (%s, %s, 0)", s.rowsTbl, s.dialect.ph(1), s.dialect.ph(2))
	if _, err := s.db.ExecContext(ctx, query, pos, data); err != nil {
		return nil, fmt.Errorf("relindex/sqlstore: persist row %d: %w", pos, err)
	}

	s.rows[pos] = row
	return row, nil
}

func (s *Store) Get(position int64, keep bool) (*store.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[position]
	return row, ok
}

// KeepInMemory is a no-op: the arena cache never evicts live rows on
// its own.
func (s *Store) KeepInMemory(position int64, keep bool) {}

func (s *Store) GetAccessor(indexPosition int) *store.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessors[indexPosition]
}

func (s *Store) SetAccessor(indexPosition int, root *store.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if root == nil {
		delete(s.accessors, indexPosition)
	} else {
		s.accessors[indexPosition] = root
	}
	s.persistAccessorRootLocked(indexPosition, root)
}

func (s *Store) persistAccessorRootLocked(indexPosition int, root *store.Node) {
	query := s.dialect.Upsert(s.accTbl, s.dialect.Placeholder)
	var rootPos any
	if root != nil && root.Row != nil {
		rootPos = root.Row.Position
	}
	// best-effort: accessor persistence is a convenience for recovery
	// tooling, not a correctness requirement of the in-memory Store
	// contract, so failures here are swallowed rather than propagated
	// through SetAccessor's error-free signature.
	_, _ = s.db.Exec(query, indexPosition, rootPos)
}

func (s *Store) Delete(session *store.Session, row *store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.Deleted = true
	query := fmt.Sprintf("UPDATE %s SET deleted = 1 WHERE position = %s", s.rowsTbl, s.dialect.ph(1))
	if _, err := s.db.Exec(query, row.Position); err != nil {
		return fmt.Errorf("relindex/sqlstore: mark row %d deleted: %w", row.Position, err)
	}
	return nil
}

func (s *Store) Remove(row *store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, row.Position)
	query := fmt.Sprintf("DELETE FROM %s WHERE position = %s", s.rowsTbl, s.dialect.ph(1))
	_, _ = s.db.Exec(query, row.Position)
}

func (s *Store) CanRead(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool {
	if row == nil || row.Deleted {
		return false
	}
	if s.visibility == nil {
		return true
	}
	return s.visibility(session, row, action, colMap)
}

func (s *Store) ReadLock()    { s.mu.RLock() }
func (s *Store) ReadUnlock()  { s.mu.RUnlock() }
func (s *Store) WriteLock()   { s.mu.Lock() }
func (s *Store) WriteUnlock() { s.mu.Unlock() }

func (s *Store) ElementCount(indexPosition int) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, row := range s.rows {
		if !row.Deleted {
			n++
		}
	}
	return n
}

// ElementCountUnique approximates with ElementCount, same rationale as
// memstore: distinct-key counting needs a comparator, which belongs to
// the owning index, not the row store.
func (s *Store) ElementCountUnique(indexPosition int) int64 {
	return s.ElementCount(indexPosition)
}

// Load replays every durably stored, non-deleted row back into the
// in-memory arena, preserving original positions, and clears every
// in-memory accessor root. It does not reconstruct index structure —
// the caller must re-run each returned row through Tree.Insert for
// every index afterward.
func (s *Store) Load(ctx context.Context) ([]*store.Row, error) {
	query := fmt.Sprintf("SELECT position, data FROM %s WHERE deleted = 0 ORDER BY position", s.rowsTbl)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("relindex/sqlstore: load: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessors = make(map[int]*store.Node)

	var out []*store.Row
	for rows.Next() {
		var position int64
		var data []byte
		if err := rows.Scan(&position, &data); err != nil {
			return nil, fmt.Errorf("relindex/sqlstore: scan row: %w", err)
		}
		values, err := decodeValues(data)
		if err != nil {
			return nil, fmt.Errorf("relindex/sqlstore: decode row %d: %w", position, err)
		}
		row := store.NewRow(position, values, s.indexCount)
		s.rows[position] = row
		if position >= s.nextPosition {
			s.nextPosition = position + 1
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/blogem/people-directory/database"
)

var (
	// ErrNoOpWrite is returned when an update carries no fields to write
	ErrNoOpWrite = errors.New("no fields to write")
	// ErrSchemaMutationFailed wraps storage faults while adding a column
	ErrSchemaMutationFailed = errors.New("schema mutation failed")
	// ErrNotFound is returned by lookups that have no soft-miss shape
	ErrNotFound = errors.New("not found")
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Records    RecordRepository
	Schema     SchemaEvolver
	Audit      AuditRepository
	Localities LocalityRepository
	Users      UserRepository

	db      *sql.DB
	tx      *sql.Tx
	writeMu *sync.Mutex
}

// NewRepositories creates and initializes all repositories
func NewRepositories(db *sql.DB) *Repositories {
	return build(db, db, nil, &sync.Mutex{})
}

func build(q database.Querier, db *sql.DB, tx *sql.Tx, mu *sync.Mutex) *Repositories {
	schema := NewSchemaEvolver(q)
	return &Repositories{
		Records:    NewRecordRepository(q, schema),
		Schema:     schema,
		Audit:      NewAuditRepository(q),
		Localities: NewLocalityRepository(q),
		Users:      NewUserRepository(q),
		db:         db,
		tx:         tx,
		writeMu:    mu,
	}
}

// WithinTx runs fn against repositories bound to a single transaction.
// Write transactions are serialized process-wide, so schema changes and the
// before/after capture of a write never interleave with another writer.
// Calls on an already transactional set run fn directly.
func (r *Repositories) WithinTx(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.tx != nil {
		return fn(r)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(build(tx, r.db, tx, r.writeMu)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DB returns the underlying connection pool
func (r *Repositories) DB() *sql.DB {
	return r.db
}

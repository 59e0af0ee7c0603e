// Package pg persists users, assets, documents and release requests in
// PostgreSQL. Collections are related by reference identifiers only; there
// is no foreign-key enforcement.
package pg

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store implements auth.Store and custody.Service over a shared *sql.DB.
type Store struct {
	db           *sql.DB
	pendingGuard bool
}

// Option configures the store.
type Option func(*Store)

// WithPendingGuard rejects transitions of already-processed requests.
func WithPendingGuard(enabled bool) Option {
	return func(s *Store) { s.pendingGuard = enabled }
}

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewWithDB(db, opts...), nil
}

// NewWithDB wraps an existing connection pool (used by tests with sqlmock).
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

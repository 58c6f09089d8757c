package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNoUpload means the venue has no menu upload yet.
	ErrNoUpload = errors.New("no menu upload for venue")

	// ErrNotFound is the generic missing-row error.
	ErrNotFound = errors.New("not found")

	// ErrStationLimit means the venue's tier does not allow another station.
	ErrStationLimit = errors.New("KDS station limit reached for tier")
)

// Store wraps the connection pool. Every query goes through an explicit
// Store handle so tests can substitute a fake behind the interfaces the
// api and importer packages define.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over an established pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

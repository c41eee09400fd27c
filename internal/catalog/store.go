// Package catalog implements the typed catalog operations on top of the
// backend abstraction and the concurrency controller's commit loop.
// Every mutating method runs inside mutate, which owns the
// open-mutate-bump-commit-retry cycle; callers never see a
// backend.Connection, and Mutate/View hand them only the *sql.Tx or
// *sql.DB of the current attempt.
package catalog

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/logutil"
	"github.com/catalogd/catalogd/internal/retry"
)

// Store is the catalog's single write/read gateway. One Store wraps one
// backend.Backend instance, i.e. one catalog artifact. mu serializes
// mutations made through this Store: only one of its logical mutations
// is active at a time. Mutations through other Stores (in this process
// or another) are mediated purely by the backend's compare-and-swap
// commit.
type Store struct {
	backend backend.Backend
	policy  retry.Policy
	logger  *zap.Logger
	mu      sync.Mutex
}

// New wires a Store over an already-resolved backend.
func New(b backend.Backend, policy retry.Policy, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: b, policy: policy, logger: logger}
}

// View runs fn against a read-only snapshot of the catalog. It never
// invokes the commit loop: reads proceed against whatever snapshot Open
// happens to return.
func (s *Store) View(ctx context.Context, fn func(db *sql.DB) (any, error)) (any, error) {
	conn, err := s.backend.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.backend.Close(conn)
	return fn(conn.DB)
}

// Mutate runs fn inside one all-or-nothing transaction and publishes the
// result through the commit loop, for callers (the emitter) that need to
// compose several catalog operations into a single atomic unit.
func (s *Store) Mutate(ctx context.Context, fn func(tx *sql.Tx) error) error {
	_, err := s.mutate(ctx, func(tx *sql.Tx) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// mutate runs fn inside one all-or-nothing transaction, bumps
// catalog_meta.version, and publishes the result through the backend's
// compare-and-swap commit, retrying on conflict up to the policy bound.
func (s *Store) mutate(ctx context.Context, fn func(tx *sql.Tx) (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loop := retry.New(s.policy)
	for {
		result, err := s.attempt(ctx, fn)
		if err == nil {
			s.logger.Debug("mutation committed",
				logutil.Values(zap.Int("retries", loop.Attempts())))
			return result, nil
		}
		if catalogerr.KindOf(err) != catalogerr.Conflict {
			return nil, err
		}
		if loop.Exhausted() {
			return nil, catalogerr.NewConflict(loop.Attempts() + 1)
		}
		s.logger.Debug("commit conflict, retrying", zap.Int("attempt", loop.Attempts()+1))
		if err := loop.Next(ctx); err != nil {
			return nil, err
		}
	}
}

// conflictSentinel is returned internally by attempt to signal a retryable
// backend conflict, distinct from a caller-visible error.
var conflictSentinel = catalogerr.NewConflict(0)

func (s *Store) attempt(ctx context.Context, fn func(tx *sql.Tx) (any, error)) (any, error) {
	conn, err := s.backend.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.backend.Close(conn)

	tx, err := conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, catalogerr.NewStorageUnavailable(err)
	}
	result, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := tx.Exec(
		`UPDATE catalog_meta SET version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		conn.ExpectedVersion+1,
	); err != nil {
		tx.Rollback()
		return nil, catalogerr.NewInternal(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, catalogerr.NewStorageUnavailable(err)
	}

	commitResult, err := s.backend.Commit(ctx, conn)
	if err != nil {
		return nil, err
	}
	if commitResult == backend.CommitConflict {
		return nil, conflictSentinel
	}
	return result, nil
}

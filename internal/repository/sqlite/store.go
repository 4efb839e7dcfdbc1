package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"release-tracker/internal/repository"
)

// Store scopes repository work to sqlite transactions.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ repository.Transactor = (*Store)(nil)

// WithReadTx runs fn with read-only repository views bound to one transaction.
// The connection is switched to query_only for the duration, so any write
// attempted through the transaction fails.
func (s *Store) WithReadTx(ctx context.Context, fn func(tx repository.ReadTx) error) error {
	return s.run(ctx, true, func(tx *sql.Tx) error {
		return fn(readTx{tx: tx})
	})
}

// WithTx runs fn with read/write repositories bound to one transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.run(ctx, false, func(tx *sql.Tx) error {
		return fn(writeTx{tx: tx})
	})
}

func (s *Store) run(ctx context.Context, readOnly bool, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// query_only is a connection setting and must be cleared before the
	// connection goes back to the pool. After a commit Exec fails with
	// sql.ErrTxDone, by which point it was already cleared.
	queryOnly := func(on bool) error {
		_, err := tx.ExecContext(context.WithoutCancel(ctx), fmt.Sprintf("PRAGMA query_only = %t", on))
		return err
	}
	defer func() {
		if readOnly {
			_ = queryOnly(false)
		}
		_ = tx.Rollback()
	}()

	if readOnly {
		if err := queryOnly(true); err != nil {
			return fmt.Errorf("begin read tx: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if readOnly {
		if err := queryOnly(false); err != nil {
			return fmt.Errorf("end read tx: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type readTx struct {
	tx *sql.Tx
}

func (t readTx) Users() repository.UserReader       { return NewUserRepository(t.tx) }
func (t readTx) Releases() repository.ReleaseReader { return NewReleaseRepository(t.tx) }

type writeTx struct {
	tx *sql.Tx
}

func (t writeTx) Users() repository.UserRepository       { return NewUserRepository(t.tx) }
func (t writeTx) Releases() repository.ReleaseRepository { return NewReleaseRepository(t.tx) }

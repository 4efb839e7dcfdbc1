package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("repository: not found")
	ErrAlreadyExists = errors.New("repository: already exists")
)

// ReadTx exposes the read side of every repository inside one transaction.
type ReadTx interface {
	Users() UserReader
	Releases() ReleaseReader
}

// Tx exposes every repository inside one read/write transaction.
type Tx interface {
	Users() UserRepository
	Releases() ReleaseRepository
}

// Transactor scopes work to a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics.
type Transactor interface {
	WithReadTx(ctx context.Context, fn func(tx ReadTx) error) error
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

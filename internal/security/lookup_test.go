package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"release-tracker/internal/domain"
	"release-tracker/internal/repository"
	"release-tracker/internal/repository/sqlite"
)

func newUserStore(t *testing.T, users ...domain.User) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(ctx))
	for i := range users {
		_, err := repo.Create(ctx, &users[i])
		require.NoError(t, err)
	}
	return sqlite.NewStore(db)
}

// countingTransactor records how many read transactions were opened.
type countingTransactor struct {
	repository.Transactor
	reads int
}

func (c *countingTransactor) WithReadTx(ctx context.Context, fn func(tx repository.ReadTx) error) error {
	c.reads++
	return c.Transactor.WithReadTx(ctx, fn)
}

func TestLoadUserByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("case insensitive match", func(t *testing.T) {
		store := newUserStore(t, domain.User{Username: "alice", PasswordHash: "h", Enabled: true})
		lookup := NewUserLookup(store)

		lower, err := lookup.LoadUserByUsername(ctx, "alice")
		require.NoError(t, err)
		upper, err := lookup.LoadUserByUsername(ctx, "Alice")
		require.NoError(t, err)

		require.Equal(t, lower.UserID(), upper.UserID())
		require.Equal(t, "alice", upper.Username())
		require.Equal(t, "h", upper.PasswordHash())
	})

	t.Run("flags mirror the record", func(t *testing.T) {
		store := newUserStore(t, domain.User{
			Username:           "bob",
			PasswordHash:       "h",
			Enabled:            false,
			Locked:             true,
			Expired:            true,
			CredentialsExpired: true,
		})

		identity, err := NewUserLookup(store).LoadUserByUsername(ctx, "BOB")
		require.NoError(t, err)
		require.False(t, identity.Enabled())
		require.False(t, identity.AccountNonLocked())
		require.False(t, identity.AccountNonExpired())
		require.False(t, identity.CredentialsNonExpired())
		require.NotZero(t, identity.UserID())
	})

	t.Run("unknown user", func(t *testing.T) {
		store := newUserStore(t)

		identity, err := NewUserLookup(store).LoadUserByUsername(ctx, "ghost")
		require.Nil(t, identity)
		require.ErrorIs(t, err, ErrUserNotFound)

		var notFound *UserNotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "ghost", notFound.Username)
	})

	t.Run("runs inside a read transaction", func(t *testing.T) {
		tx := &countingTransactor{Transactor: newUserStore(t, domain.User{Username: "carol", PasswordHash: "h"})}

		_, err := NewUserLookup(tx).LoadUserByUsername(ctx, "carol")
		require.NoError(t, err)
		_, err = NewUserLookup(tx).LoadUserByUsername(ctx, "nobody")
		require.Error(t, err)
		require.Equal(t, 2, tx.reads)
	})

	t.Run("storage errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		lookup := NewUserLookup(failingTransactor{err: boom})

		_, err := lookup.LoadUserByUsername(ctx, "alice")
		require.ErrorIs(t, err, boom)
		require.False(t, errors.Is(err, ErrUserNotFound))
	})
}

type failingTransactor struct {
	err error
}

func (f failingTransactor) WithReadTx(context.Context, func(tx repository.ReadTx) error) error {
	return f.err
}

func (f failingTransactor) WithTx(context.Context, func(tx repository.Tx) error) error {
	return f.err
}

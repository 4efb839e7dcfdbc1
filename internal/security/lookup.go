package security

import (
	"context"
	"errors"
	"fmt"

	"release-tracker/internal/repository"
)

// ErrUserNotFound matches every *UserNotFoundError.
var ErrUserNotFound = errors.New("user not found")

// UserNotFoundError carries the username that was looked up.
type UserNotFoundError struct {
	Username string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %q not found", e.Username)
}

func (e *UserNotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}

// UserDetailsService is the identity source of the authentication pipeline.
type UserDetailsService interface {
	LoadUserByUsername(ctx context.Context, username string) (Identity, error)
}

type userLookup struct {
	tx repository.Transactor
}

// NewUserLookup returns a UserDetailsService that reads users inside read
// transactions opened by tx.
func NewUserLookup(tx repository.Transactor) UserDetailsService {
	return &userLookup{tx: tx}
}

func (l *userLookup) LoadUserByUsername(ctx context.Context, username string) (Identity, error) {
	var identity Identity
	err := l.tx.WithReadTx(ctx, func(tx repository.ReadTx) error {
		user, err := tx.Users().FindByUsernameIgnoreCase(ctx, username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &UserNotFoundError{Username: username}
			}
			return fmt.Errorf("find user: %w", err)
		}
		identity = NewIdentity(*user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

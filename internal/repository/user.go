package repository

import (
	"context"

	"release-tracker/internal/domain"
)

// UserReader is the read side of user persistence.
type UserReader interface {
	// FindByUsernameIgnoreCase returns ErrNotFound when no username matches
	// case-insensitively.
	FindByUsernameIgnoreCase(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	UserReader
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error
}

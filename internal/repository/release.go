package repository

import (
	"context"

	"release-tracker/internal/domain"
)

// ReleaseReader is the read side of release persistence.
type ReleaseReader interface {
	GetByVersion(ctx context.Context, version domain.Version) (*domain.Release, error)
	// List returns releases newest version first. A nil since returns all of them,
	// otherwise only versions greater than or equal to since.
	List(ctx context.Context, since *domain.Version) ([]domain.Release, error)
	// MaxNumber returns the highest release number recorded for year and month,
	// or 0 when there is none.
	MaxNumber(ctx context.Context, year, month int) (int, error)
}

// ReleaseRepository exposes persistence operations for Release records.
type ReleaseRepository interface {
	ReleaseReader
	Init(ctx context.Context) error
	Create(ctx context.Context, release *domain.Release) (int64, error)
	Delete(ctx context.Context, id int64) error
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"release-tracker/internal/domain"
	"release-tracker/internal/repository"
)

const createReleasesTable = `
CREATE TABLE IF NOT EXISTS releases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	version_year INTEGER NOT NULL,
	version_month INTEGER NOT NULL,
	version_number INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	artifact_key TEXT NOT NULL DEFAULT '',
	artifact_size INTEGER NOT NULL DEFAULT 0,
	created_by INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(version_year, version_month, version_number),
	FOREIGN KEY(created_by) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_releases_created_by ON releases(created_by);
`

const selectRelease = `
SELECT id, version_year, version_month, version_number, name, notes, artifact_key, artifact_size, created_by, created_at, updated_at
FROM releases`

const orderByVersionDesc = `
ORDER BY version_year DESC, version_month DESC, version_number DESC`

type ReleaseRepository struct {
	db dbtx
}

func NewReleaseRepository(db dbtx) repository.ReleaseRepository {
	return &ReleaseRepository{db: db}
}

func (r *ReleaseRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createReleasesTable); err != nil {
		return fmt.Errorf("create releases table: %w", err)
	}
	return nil
}

func (r *ReleaseRepository) Create(ctx context.Context, release *domain.Release) (int64, error) {
	now := time.Now().UTC()
	release.CreatedAt = now
	release.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO releases (version_year, version_month, version_number, name, notes, artifact_key, artifact_size, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		release.Version.Year,
		release.Version.Month,
		release.Version.Number,
		release.Name,
		release.Notes,
		release.ArtifactKey,
		release.ArtifactSize,
		release.CreatedBy,
		release.CreatedAt,
		release.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert release %s: %w", release.Version, repository.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("insert release: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("release last insert id: %w", err)
	}
	release.ID = id
	return id, nil
}

func (r *ReleaseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM releases WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete release: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ReleaseRepository) GetByVersion(ctx context.Context, version domain.Version) (*domain.Release, error) {
	row := r.db.QueryRowContext(ctx, selectRelease+`
WHERE version_year=? AND version_month=? AND version_number=?`,
		version.Year,
		version.Month,
		version.Number,
	)
	release, err := scanRelease(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return release, nil
}

func (r *ReleaseRepository) List(ctx context.Context, since *domain.Version) ([]domain.Release, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if since == nil {
		rows, err = r.db.QueryContext(ctx, selectRelease+orderByVersionDesc)
	} else {
		rows, err = r.db.QueryContext(ctx, selectRelease+`
WHERE (version_year, version_month, version_number) >= (?, ?, ?)`+orderByVersionDesc,
			since.Year,
			since.Month,
			since.Number,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	var releases []domain.Release
	for rows.Next() {
		release, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, *release)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return releases, nil
}

func (r *ReleaseRepository) MaxNumber(ctx context.Context, year, month int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(version_number), 0)
FROM releases
WHERE version_year=? AND version_month=?`,
		year,
		month,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max release number: %w", err)
	}
	return n, nil
}

func scanRelease(row interface {
	Scan(dest ...any) error
}) (*domain.Release, error) {
	var release domain.Release
	if err := row.Scan(
		&release.ID,
		&release.Version.Year,
		&release.Version.Month,
		&release.Version.Number,
		&release.Name,
		&release.Notes,
		&release.ArtifactKey,
		&release.ArtifactSize,
		&release.CreatedBy,
		&release.CreatedAt,
		&release.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan release: %w", err)
	}
	return &release, nil
}

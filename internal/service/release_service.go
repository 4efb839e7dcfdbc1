package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"release-tracker/internal/domain"
	"release-tracker/internal/repository"
	"release-tracker/internal/storage"
)

var (
	ErrVersionRequired = errors.New("version is required")
	ErrReleaseExists   = errors.New("release already exists")
	ErrReleaseNotFound = errors.New("release not found")
	ErrNoArtifact      = errors.New("release has no artifact")
)

// ArtifactUpload is a file attached to a new release.
type ArtifactUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateReleaseInput carries everything needed to record a release.
type CreateReleaseInput struct {
	Version   *domain.Version
	Name      string
	Notes     string
	CreatedBy int64
	Artifact  *ArtifactUpload
}

// ReleaseService coordinates release records and their artifacts.
type ReleaseService interface {
	Create(ctx context.Context, input CreateReleaseInput) (*domain.Release, error)
	Get(ctx context.Context, version domain.Version) (*domain.Release, error)
	List(ctx context.Context, since *domain.Version) ([]domain.Release, error)
	Delete(ctx context.Context, version domain.Version) error
	NextVersion(ctx context.Context, now time.Time) (domain.Version, error)
	ArtifactURL(ctx context.Context, version domain.Version, expires time.Duration) (string, error)
}

type ReleaseConfig struct {
	Bucket    string
	KeyPrefix string
	Logger    *logrus.Logger
}

type releaseService struct {
	cfg     ReleaseConfig
	tx      repository.Transactor
	storage storage.Service
}

// NewReleaseService builds a ReleaseService. store may be nil, in which case
// artifact operations fail with storage.ErrNotConfigured.
func NewReleaseService(cfg ReleaseConfig, tx repository.Transactor, store storage.Service) ReleaseService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &releaseService{
		cfg:     cfg,
		tx:      tx,
		storage: store,
	}
}

func (s *releaseService) Create(ctx context.Context, input CreateReleaseInput) (*domain.Release, error) {
	if input.Version == nil {
		return nil, ErrVersionRequired
	}
	version := *input.Version

	if _, err := s.Get(ctx, version); err == nil {
		return nil, ErrReleaseExists
	} else if !errors.Is(err, ErrReleaseNotFound) {
		return nil, err
	}

	release := &domain.Release{
		Version:   version,
		Name:      strings.TrimSpace(input.Name),
		Notes:     strings.TrimSpace(input.Notes),
		CreatedBy: input.CreatedBy,
	}
	if release.Name == "" {
		release.Name = version.String()
	}

	if input.Artifact != nil {
		key, err := s.uploadArtifact(ctx, version, input.Artifact)
		if err != nil {
			return nil, err
		}
		release.ArtifactKey = key
		release.ArtifactSize = input.Artifact.Size
	}

	err := s.tx.WithTx(ctx, func(tx repository.Tx) error {
		_, err := tx.Releases().Create(ctx, release)
		return err
	})
	if err != nil {
		s.removeArtifact(ctx, release)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrReleaseExists
		}
		return nil, err
	}

	s.cfg.Logger.WithFields(logrus.Fields{
		"version":  version.String(),
		"artifact": release.ArtifactKey,
	}).Info("release created")
	return release, nil
}

func (s *releaseService) uploadArtifact(ctx context.Context, version domain.Version, artifact *ArtifactUpload) (string, error) {
	if s.storage == nil || s.cfg.Bucket == "" {
		return "", storage.ErrNotConfigured
	}
	logger := s.cfg.Logger.WithField("version", version.String())
	key, err := s.storage.Upload(ctx, artifact.Filename, artifact.Body, artifact.Size, storage.UploadOptions{
		Bucket:      s.cfg.Bucket,
		KeyPrefix:   storage.JoinKey(s.cfg.KeyPrefix, version.String(), uuid.NewString()),
		ContentType: artifact.ContentType,
		ProgressCallback: func(done, total int64) {
			logger.Debugf("artifact upload %d/%d bytes", done, total)
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	return key, nil
}

// removeArtifact deletes the folder the artifact was uploaded into. Failures
// are logged, the release record is the source of truth.
func (s *releaseService) removeArtifact(ctx context.Context, release *domain.Release) {
	if !release.HasArtifact() || s.storage == nil {
		return
	}
	prefix := path.Dir(release.ArtifactKey) + "/"
	if err := s.storage.DeletePrefix(ctx, s.cfg.Bucket, prefix); err != nil {
		s.cfg.Logger.WithError(err).WithField("prefix", prefix).Warn("delete release artifact")
	}
}

func (s *releaseService) Get(ctx context.Context, version domain.Version) (*domain.Release, error) {
	var release *domain.Release
	err := s.tx.WithReadTx(ctx, func(tx repository.ReadTx) error {
		var err error
		release, err = tx.Releases().GetByVersion(ctx, version)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReleaseNotFound
		}
		return nil, err
	}
	return release, nil
}

func (s *releaseService) List(ctx context.Context, since *domain.Version) ([]domain.Release, error) {
	var releases []domain.Release
	err := s.tx.WithReadTx(ctx, func(tx repository.ReadTx) error {
		var err error
		releases, err = tx.Releases().List(ctx, since)
		return err
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}

func (s *releaseService) Delete(ctx context.Context, version domain.Version) error {
	var release *domain.Release
	err := s.tx.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		release, err = tx.Releases().GetByVersion(ctx, version)
		if err != nil {
			return err
		}
		return tx.Releases().Delete(ctx, release.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReleaseNotFound
		}
		return err
	}

	s.removeArtifact(ctx, release)
	s.cfg.Logger.WithField("version", version.String()).Info("release deleted")
	return nil
}

// NextVersion proposes the next number for the month of now.
func (s *releaseService) NextVersion(ctx context.Context, now time.Time) (domain.Version, error) {
	year, month := now.Year(), int(now.Month())
	var latest int
	err := s.tx.WithReadTx(ctx, func(tx repository.ReadTx) error {
		var err error
		latest, err = tx.Releases().MaxNumber(ctx, year, month)
		return err
	})
	if err != nil {
		return domain.Version{}, err
	}
	return domain.Version{Year: year, Month: month, Number: latest + 1}, nil
}

func (s *releaseService) ArtifactURL(ctx context.Context, version domain.Version, expires time.Duration) (string, error) {
	if s.storage == nil || s.cfg.Bucket == "" {
		return "", storage.ErrNotConfigured
	}
	release, err := s.Get(ctx, version)
	if err != nil {
		return "", err
	}
	if !release.HasArtifact() {
		return "", ErrNoArtifact
	}
	return s.storage.GetObjectURL(ctx, s.cfg.Bucket, release.ArtifactKey, expires)
}

package domain

import "time"

// Release is a recorded release of the tracked product.
type Release struct {
	ID           int64
	Version      Version
	Name         string
	Notes        string
	ArtifactKey  string
	ArtifactSize int64
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasArtifact reports whether an artifact was uploaded for the release.
func (r Release) HasArtifact() bool {
	return r.ArtifactKey != ""
}

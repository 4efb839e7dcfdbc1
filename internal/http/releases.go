package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"release-tracker/internal/domain"
	"release-tracker/internal/service"
)

type createReleaseForm struct {
	Version string `form:"version" binding:"omitempty,calver"`
	Name    string `form:"name" binding:"max=200"`
	Notes   string `form:"notes" binding:"max=10000"`
}

type listReleasesQuery struct {
	Since string `form:"since" binding:"omitempty,calver"`
}

type ReleaseResponse struct {
	ID           int64  `json:"id"`
	Version      string `json:"version"`
	Name         string `json:"name"`
	Notes        string `json:"notes"`
	HasArtifact  bool   `json:"has_artifact"`
	ArtifactSize int64  `json:"artifact_size"`
	CreatedBy    int64  `json:"created_by"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (h *Handler) createRelease(c *gin.Context) {
	var form createReleaseForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	version, err := h.parseVersion(c, form.Version)
	if err != nil {
		h.writeError(c, err)
		return
	}

	input := service.CreateReleaseInput{
		Version:   version,
		Name:      form.Name,
		Notes:     form.Notes,
		CreatedBy: c.GetInt64(userIDKey),
	}

	fileHeader, err := c.FormFile("artifact")
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read artifact: " + err.Error()})
			return
		}
		defer file.Close()
		input.Artifact = &service.ArtifactUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	release, err := h.releases.Create(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.releaseToResponse(c, *release))
}

func (h *Handler) listReleases(c *gin.Context) {
	var query listReleasesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	since, err := h.parseVersion(c, query.Since)
	if err != nil {
		h.writeError(c, err)
		return
	}

	releases, err := h.releases.List(c.Request.Context(), since)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ReleaseResponse, len(releases))
	for i := range releases {
		resp[i] = h.releaseToResponse(c, releases[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getRelease(c *gin.Context) {
	version, ok := h.pathVersion(c)
	if !ok {
		return
	}

	release, err := h.releases.Get(c.Request.Context(), version)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.releaseToResponse(c, *release))
}

func (h *Handler) releaseArtifact(c *gin.Context) {
	version, ok := h.pathVersion(c)
	if !ok {
		return
	}

	url, err := h.releases.ArtifactURL(c.Request.Context(), version, h.urlTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *Handler) deleteRelease(c *gin.Context) {
	version, ok := h.pathVersion(c)
	if !ok {
		return
	}

	if err := h.releases.Delete(c.Request.Context(), version); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": h.printVersion(c, version)})
}

func (h *Handler) nextVersion(c *gin.Context) {
	next, err := h.releases.NextVersion(c.Request.Context(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": h.printVersion(c, next)})
}

// pathVersion parses the :version parameter and writes the error response
// itself when it is missing or malformed.
func (h *Handler) pathVersion(c *gin.Context) (domain.Version, bool) {
	version, err := h.parseVersion(c, c.Param("version"))
	if err != nil {
		h.writeError(c, err)
		return domain.Version{}, false
	}
	if version == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version is required"})
		return domain.Version{}, false
	}
	return *version, true
}

func (h *Handler) releaseToResponse(c *gin.Context, release domain.Release) ReleaseResponse {
	return ReleaseResponse{
		ID:           release.ID,
		Version:      h.printVersion(c, release.Version),
		Name:         release.Name,
		Notes:        release.Notes,
		HasArtifact:  release.HasArtifact(),
		ArtifactSize: release.ArtifactSize,
		CreatedBy:    release.CreatedBy,
		CreatedAt:    release.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    release.UpdatedAt.Format(time.RFC3339),
	}
}

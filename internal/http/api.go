package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"release-tracker/internal/domain"
	"release-tracker/internal/format"
	"release-tracker/internal/security"
	"release-tracker/internal/service"
	"release-tracker/internal/storage"
)

// Config carries the collaborators the HTTP handlers depend on.
type Config struct {
	Users          service.UserService
	Releases       service.ReleaseService
	Authenticator  *security.Authenticator
	Tokens         *security.TokenIssuer
	Versions       format.Formatter[domain.Version]
	ArtifactURLTTL time.Duration
	Logger         *logrus.Logger
	Now            func() time.Time
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	releases service.ReleaseService
	auth     *security.Authenticator
	tokens   *security.TokenIssuer
	versions format.Formatter[domain.Version]
	urlTTL   time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewHandler(cfg Config) *Handler {
	if cfg.Versions == nil {
		cfg.Versions = format.NewVersionFormatter()
	}
	if cfg.ArtifactURLTTL <= 0 {
		cfg.ArtifactURLTTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	registerValidators()
	return &Handler{
		users:    cfg.Users,
		releases: cfg.Releases,
		auth:     cfg.Authenticator,
		tokens:   cfg.Tokens,
		versions: cfg.Versions,
		urlTTL:   cfg.ArtifactURLTTL,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), requestLogger(h.logger), corsMiddleware(), localeMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
	}

	authed := api.Group("", h.requireAuth())
	{
		authed.GET("/me", h.me)
		authed.PUT("/users/:username/status", h.setUserStatus)
		authed.GET("/next-version", h.nextVersion)
		authed.GET("/releases", h.listReleases)
		authed.POST("/releases", h.createRelease)
		authed.GET("/releases/:version", h.getRelease)
		authed.GET("/releases/:version/artifact", h.releaseArtifact)
		authed.DELETE("/releases/:version", h.deleteRelease)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Accept-Language, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// writeError maps service errors onto status codes. Unknown errors are logged
// and reported as 500 without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var (
		numErr   *strconv.NumError
		validErr *service.ValidationError
	)
	switch {
	case errors.Is(err, format.ErrMalformedVersion), errors.As(err, &numErr):
		status, msg = http.StatusBadRequest, "invalid version"
	case errors.Is(err, service.ErrVersionRequired), errors.As(err, &validErr):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrReleaseExists), errors.Is(err, service.ErrUserAlreadyExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrReleaseNotFound), errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrNoArtifact):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidRegistrationPassword):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, storage.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, err.Error()
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"request_id": c.GetString(requestIDKey),
		}).Error("request failed")
	}

	c.JSON(status, gin.H{"error": msg})
}

package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"release-tracker/internal/domain"
	"release-tracker/internal/security"
)

type registerRequest struct {
	Username             string `json:"username" binding:"required,max=64"`
	Password             string `json:"password" binding:"required"`
	RegistrationPassword string `json:"registration_password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type statusRequest struct {
	Enabled            bool `json:"enabled"`
	Locked             bool `json:"locked"`
	Expired            bool `json:"expired"`
	CredentialsExpired bool `json:"credentials_expired"`
}

type UserResponse struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	Enabled            bool   `json:"enabled"`
	Locked             bool   `json:"locked"`
	Expired            bool   `json:"expired"`
	CredentialsExpired bool   `json:"credentials_expired"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.RegistrationPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrBadCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, security.ErrAccountDisabled),
			errors.Is(err, security.ErrAccountLocked),
			errors.Is(err, security.ErrAccountExpired),
			errors.Is(err, security.ErrCredentialsExpired):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			h.writeError(c, err)
		}
		return
	}

	token, exp, err := h.tokens.Issue(identity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetInt64(userIDKey))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) setUserStatus(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if strings.EqualFold(username, c.GetString(usernameKey)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot change own account status"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.SetStatus(c.Request.Context(), username, domain.UserStatus{
		Enabled:            req.Enabled,
		Locked:             req.Locked,
		Expired:            req.Expired,
		CredentialsExpired: req.CredentialsExpired,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.WithField("username", user.Username).WithField("by", c.GetString(usernameKey)).Info("user status changed")
	c.JSON(http.StatusOK, userToResponse(*user))
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:                 user.ID,
		Username:           user.Username,
		Enabled:            user.Enabled,
		Locked:             user.Locked,
		Expired:            user.Expired,
		CredentialsExpired: user.CredentialsExpired,
		CreatedAt:          user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          user.UpdatedAt.Format(time.RFC3339),
	}
}

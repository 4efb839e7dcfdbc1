package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"release-tracker/internal/domain"
	"release-tracker/internal/repository"
)

var (
	// ErrInvalidRegistrationPassword indicates the registration secret is incorrect.
	ErrInvalidRegistrationPassword = errors.New("invalid registration password")
	// ErrUserAlreadyExists is returned when the username is taken in any letter case.
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// ValidationError reports input rejected before reaching storage.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UserService describes user lifecycle operations. Sign-in lives in the
// security package.
type UserService interface {
	Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	SetStatus(ctx context.Context, username string, status domain.UserStatus) (*domain.User, error)
}

type userService struct {
	tx             repository.Transactor
	registerSecret string
	hashCost       int
}

func NewUserService(tx repository.Transactor, registerSecret string) UserService {
	return &userService{
		tx:             tx,
		registerSecret: strings.TrimSpace(registerSecret),
		hashCost:       bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	providedSecret = strings.TrimSpace(providedSecret)
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, &ValidationError{Message: "username is required"}
	}
	if password == "" {
		return nil, &ValidationError{Message: "password is required"}
	}
	if len(password) < 8 {
		return nil, &ValidationError{Message: "password must be at least 8 characters"}
	}
	if s.registerSecret == "" {
		return nil, fmt.Errorf("registration secret is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(providedSecret), []byte(s.registerSecret)) != 1 {
		return nil, ErrInvalidRegistrationPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Enabled:      true,
	}

	err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Users().FindByUsernameIgnoreCase(ctx, username); err == nil {
			return ErrUserAlreadyExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		_, err := tx.Users().Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := s.tx.WithReadTx(ctx, func(tx repository.ReadTx) error {
		var err error
		user, err = tx.Users().GetByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) SetStatus(ctx context.Context, username string, status domain.UserStatus) (*domain.User, error) {
	var user *domain.User
	err := s.tx.WithTx(ctx, func(tx repository.Tx) error {
		found, err := tx.Users().FindByUsernameIgnoreCase(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}
		if err := tx.Users().UpdateStatus(ctx, found.ID, status); err != nil {
			return err
		}
		user, err = tx.Users().GetByID(ctx, found.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}

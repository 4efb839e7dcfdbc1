package security

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrBadCredentials covers unknown usernames and wrong passwords alike.
	ErrBadCredentials     = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountExpired     = errors.New("account expired")
	ErrCredentialsExpired = errors.New("credentials expired")
)

// Authenticator checks a username and password against the identity loaded by
// a UserDetailsService.
type Authenticator struct {
	users UserDetailsService
}

func NewAuthenticator(users UserDetailsService) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate never reveals whether the username exists: a missing user and
// a wrong password both yield ErrBadCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	identity, err := a.users.LoadUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if err := preAuthenticationChecks(identity); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash()), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	if !identity.CredentialsNonExpired() {
		return nil, ErrCredentialsExpired
	}

	return identity, nil
}

// Verify reloads the account behind an already issued token and rejects it
// when the account has since been locked, disabled or expired.
func (a *Authenticator) Verify(ctx context.Context, username string) (Identity, error) {
	identity, err := a.users.LoadUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if err := preAuthenticationChecks(identity); err != nil {
		return nil, err
	}
	if !identity.CredentialsNonExpired() {
		return nil, ErrCredentialsExpired
	}
	return identity, nil
}

func preAuthenticationChecks(identity Identity) error {
	switch {
	case !identity.AccountNonLocked():
		return ErrAccountLocked
	case !identity.Enabled():
		return ErrAccountDisabled
	case !identity.AccountNonExpired():
		return ErrAccountExpired
	}
	return nil
}

// Package security adapts stored users into authentication identities and
// checks credentials against them.
package security

import "release-tracker/internal/domain"

// Identity is the view of an account the authentication pipeline works with.
type Identity interface {
	UserID() int64
	Username() string
	PasswordHash() string
	Enabled() bool
	AccountNonLocked() bool
	AccountNonExpired() bool
	CredentialsNonExpired() bool
}

// userIdentity mirrors a domain.User one-to-one.
type userIdentity struct {
	user domain.User
}

// NewIdentity wraps a stored user record.
func NewIdentity(user domain.User) Identity {
	return userIdentity{user: user}
}

func (i userIdentity) UserID() int64               { return i.user.ID }
func (i userIdentity) Username() string            { return i.user.Username }
func (i userIdentity) PasswordHash() string        { return i.user.PasswordHash }
func (i userIdentity) Enabled() bool               { return i.user.Enabled }
func (i userIdentity) AccountNonLocked() bool      { return !i.user.Locked }
func (i userIdentity) AccountNonExpired() bool     { return !i.user.Expired }
func (i userIdentity) CredentialsNonExpired() bool { return !i.user.CredentialsExpired }

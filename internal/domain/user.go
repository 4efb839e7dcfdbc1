package domain

import "time"

// User represents an account that can sign in to the tracker.
type User struct {
	ID                 int64
	Username           string
	PasswordHash       string
	Enabled            bool
	Locked             bool
	Expired            bool
	CredentialsExpired bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserStatus carries the account flags that can be changed after registration.
type UserStatus struct {
	Enabled            bool
	Locked             bool
	Expired            bool
	CredentialsExpired bool
}

package models

import (
	"time"
)

// User is the authenticated identity as reported by the auth backend.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}

// Session is an authenticated session issued by the auth backend.
type Session struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token"`
	TokenType    string    `json:"token_type" yaml:"token_type"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	User         User      `json:"user" yaml:"user"`
}

// IsExpired returns true if the access token has expired, allowing a small
// margin so a token is never used right at its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().Add(10 * time.Second).After(s.ExpiresAt)
}

// AuthEvent names a session change notification.
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

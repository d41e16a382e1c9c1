// Package auth implements the identity collaborator: account creation,
// password sign-in, bearer sessions and auth state notifications.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Repository sentinel errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmailTaken is returned by UserRepository.Create when storage
	// already holds an account with the same email.
	ErrEmailTaken = errors.New("email already registered")
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is a bearer session. Only the HMAC of the token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Principal is the authenticated caller of a request.
type Principal struct {
	SessionID string
	User      User
}

// SignedIn is returned by SignUp and SignIn. Token is shown to the client
// once and never stored in clear.
type SignedIn struct {
	Token string
	Principal
}

// StateChange is delivered to OnAuthStateChanged listeners. User is nil when
// the session signed out.
type StateChange struct {
	SessionID string
	User      *User
}

// UserRepository stores accounts.
type UserRepository interface {
	// Create stores u and assigns u.ID.
	Create(ctx context.Context, u *User) error
	// FindByEmail returns ErrUserNotFound when no account uses email.
	FindByEmail(ctx context.Context, email string) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
}

// SessionRepository stores bearer sessions.
type SessionRepository interface {
	// Create stores s and assigns s.ID.
	Create(ctx context.Context, s *Session) error
	// FindByTokenHash returns ErrSessionNotFound for unknown hashes.
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

package documents

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/greenbasket/internal/domain/auth"
	"github.com/xenking/greenbasket/pkg/docstore"
)

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
)

// UserRepository implements auth.UserRepository over the "users"
// collection.
type UserRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	id, err := r.store.Create(ctx, CollectionUsers, docstore.Fields{
		"email":        u.Email,
		"passwordHash": u.PasswordHash,
		"createdAt":    formatTime(u.CreatedAt),
	})
	if err != nil {
		if errors.Is(err, docstore.ErrConflict) {
			return auth.ErrEmailTaken
		}
		return errors.Wrap(err, "create user")
	}
	u.ID = id
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	docs, err := r.store.List(ctx, CollectionUsers, docstore.Filter{Field: "email", Value: email})
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	if len(docs) == 0 {
		return nil, auth.ErrUserNotFound
	}
	u := decodeUser(docs[0])
	return &u, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*auth.User, error) {
	d, err := r.store.GetByID(ctx, CollectionUsers, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrapf(err, "get user %q", id)
	}
	u := decodeUser(*d)
	return &u, nil
}

func decodeUser(d docstore.Document) auth.User {
	return auth.User{
		ID:           d.ID,
		Email:        d.Fields.String("email"),
		PasswordHash: d.Fields.String("passwordHash"),
		CreatedAt:    d.Fields.Time("createdAt"),
	}
}

// SessionRepository implements auth.SessionRepository over the "sessions"
// collection.
type SessionRepository struct {
	store docstore.Store
}

func NewSessionRepository(store docstore.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	id, err := r.store.Create(ctx, CollectionSessions, docstore.Fields{
		"userId":    s.UserID,
		"tokenHash": s.TokenHash,
		"createdAt": formatTime(s.CreatedAt),
		"revokedAt": nil,
	})
	if err != nil {
		return errors.Wrap(err, "create session")
	}
	s.ID = id
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	docs, err := r.store.List(ctx, CollectionSessions, docstore.Filter{Field: "tokenHash", Value: hash})
	if err != nil {
		return nil, errors.Wrap(err, "find session")
	}
	if len(docs) == 0 {
		return nil, auth.ErrSessionNotFound
	}
	d := docs[0]
	s := &auth.Session{
		ID:        d.ID,
		UserID:    d.Fields.String("userId"),
		TokenHash: d.Fields.String("tokenHash"),
		CreatedAt: d.Fields.Time("createdAt"),
	}
	if d.Fields.Has("revokedAt") {
		at := d.Fields.Time("revokedAt")
		s.RevokedAt = &at
	}
	return s, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	err := r.store.Update(ctx, CollectionSessions, id, docstore.Fields{"revokedAt": formatTime(at)})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return auth.ErrSessionNotFound
		}
		return errors.Wrapf(err, "revoke session %q", id)
	}
	return nil
}

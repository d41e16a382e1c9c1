package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32

	// DefaultMinPasswordLength is the shortest password SignUp accepts.
	DefaultMinPasswordLength = 6
)

// Config holds identity settings.
type Config struct {
	// TokenPepper keys the HMAC used to store session tokens.
	TokenPepper []byte
	// MinPasswordLength defaults to DefaultMinPasswordLength.
	MinPasswordLength int
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Blocklist rejects common passwords at sign-up. Nil disables the check.
	Blocklist *Blocklist
	Now       func() time.Time
}

// Service authenticates users and manages bearer sessions.
type Service struct {
	cfg      Config
	users    UserRepository
	sessions SessionRepository
	validate *validator.Validate

	// signup serializes the email uniqueness check with account creation
	// within this process. Across replicas the storage layer reports
	// ErrEmailTaken.
	signup sync.Mutex

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(StateChange)
}

// NewService creates an identity Service.
func NewService(cfg Config, users UserRepository, sessions SessionRepository) *Service {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		listeners: make(map[int]func(StateChange)),
	}
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// checkCredentials runs the local checks shared by sign-up and sign-in.
func (s *Service) checkCredentials(email, password string) error {
	err := s.validate.Struct(credentials{Email: email, Password: password})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "validate credentials")
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Email" && fe.Tag() == "required":
		return &ValidationError{Field: FieldEmail, Message: "Email is required."}
	case fe.Field() == "Email":
		return invalid(KindInvalidEmail)
	default:
		return &ValidationError{Field: FieldPassword, Message: "Password is required."}
	}
}

func (s *Service) checkStrength(password string) error {
	if len([]rune(password)) < s.cfg.MinPasswordLength || s.cfg.Blocklist.Contains(password) {
		return invalid(KindWeakPassword)
	}
	return nil
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	if err := s.checkCredentials(email, password); err != nil {
		return nil, err
	}
	if err := s.checkStrength(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u, err := s.createUser(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}
	zctx.From(ctx).Info("User signed up", zap.String("user_id", u.ID))

	return s.startSession(ctx, u)
}

func (s *Service) createUser(ctx context.Context, email, hash string) (*User, error) {
	s.signup.Lock()
	defer s.signup.Unlock()

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, &Error{Kind: KindEmailAlreadyInUse}
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, errors.Wrap(err, "find user")
	}

	u := &User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.cfg.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, &Error{Kind: KindEmailAlreadyInUse}
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// SignIn verifies the password and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	if err := s.checkCredentials(email, password); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, &Error{Kind: KindUserNotFound}
		}
		return nil, errors.Wrap(err, "find user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, &Error{Kind: KindWrongPassword}
		}
		return nil, errors.Wrap(err, "compare password")
	}

	return s.startSession(ctx, u)
}

func (s *Service) startSession(ctx context.Context, u *User) (*SignedIn, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(err, "generate token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	sess := &Session{
		UserID:    u.ID,
		TokenHash: hex.EncodeToString(s.hashToken(token)),
		CreatedAt: s.cfg.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "create session")
	}

	user := *u
	s.notify(StateChange{SessionID: sess.ID, User: &user})

	return &SignedIn{
		Token:     token,
		Principal: Principal{SessionID: sess.ID, User: user},
	}, nil
}

// Authenticate resolves a bearer token to its principal. Unknown, revoked or
// tampered tokens fail with KindInvalidCredential.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, &Error{Kind: KindInvalidCredential}
	}
	hash := s.hashToken(token)

	sess, err := s.sessions.FindByTokenHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, &Error{Kind: KindInvalidCredential}
		}
		return nil, errors.Wrap(err, "find session")
	}
	stored, err := hex.DecodeString(sess.TokenHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, &Error{Kind: KindInvalidCredential}
	}
	if sess.RevokedAt != nil {
		return nil, &Error{Kind: KindInvalidCredential}
	}

	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, &Error{Kind: KindInvalidCredential}
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &Principal{SessionID: sess.ID, User: *u}, nil
}

// SignOut revokes the session owning token. Signing out an already revoked
// session succeeds.
func (s *Service) SignOut(ctx context.Context, token string) error {
	p, err := s.Authenticate(ctx, token)
	if err != nil {
		if IsKind(err, KindInvalidCredential) {
			return nil
		}
		return err
	}
	if err := s.sessions.Revoke(ctx, p.SessionID, s.cfg.Now().UTC()); err != nil {
		return errors.Wrap(err, "revoke session")
	}
	zctx.From(ctx).Info("User signed out", zap.String("user_id", p.User.ID))

	s.notify(StateChange{SessionID: p.SessionID})
	return nil
}

// OnAuthStateChanged registers fn for sign-in and sign-out notifications and
// returns a function that unregisters it. fn runs synchronously on the
// goroutine that changed the state.
func (s *Service) OnAuthStateChanged(fn func(StateChange)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) notify(c StateChange) {
	s.mu.Lock()
	fns := make([]func(StateChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Service) hashToken(token string) []byte {
	mac := hmac.New(sha256.New, s.cfg.TokenPepper)
	mac.Write([]byte(token))
	return mac.Sum(nil)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package auth

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu   sync.Mutex
	seq  int
	byID map[string]User

	createErr error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]User{}} }

func (m *memUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	u.ID = fmt.Sprintf("u%d", m.seq)
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) Get(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

type memSessions struct {
	mu   sync.Mutex
	seq  int
	byID map[string]Session
}

func newMemSessions() *memSessions { return &memSessions{byID: map[string]Session{}} }

func (m *memSessions) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = fmt.Sprintf("s%d", m.seq)
	m.byID[s.ID] = *s
	return nil
}

func (m *memSessions) FindByTokenHash(_ context.Context, hash string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.TokenHash == hash {
			return &s, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (m *memSessions) Revoke(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.RevokedAt = &at
	m.byID[id] = s
	return nil
}

func newTestService(t *testing.T, blocklist *Blocklist) (*Service, *memUsers, *memSessions) {
	t.Helper()
	users, sessions := newMemUsers(), newMemSessions()
	svc := NewService(Config{
		TokenPepper: []byte("test-pepper"),
		BcryptCost:  bcrypt.MinCost,
		Blocklist:   blocklist,
	}, users, sessions)
	return svc, users, sessions
}

func TestSignUp_CreatesUserAndSession(t *testing.T) {
	svc, users, _ := newTestService(t, nil)
	ctx := context.Background()

	got, err := svc.SignUp(ctx, "  Ana@Example.com ", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, got.Token)
	assert.Equal(t, "ana@example.com", got.User.Email)
	assert.NotEmpty(t, got.SessionID)

	stored, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", stored.PasswordHash)

	p, err := svc.Authenticate(ctx, got.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, p.User.ID)
}

func TestSignUp_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{"missing email", "", "s3cret!", FieldEmail},
		{"missing password", "ana@example.com", "", FieldPassword},
		{"malformed email", "ana-at-example", "s3cret!", FieldEmail},
		{"short password", "ana@example.com", "12345", FieldPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.email, tt.password)
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ana@example.com", "s3cret!")
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "ANA@example.com", "other-pass")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEmailAlreadyInUse))

	field, msg := Describe(err)
	assert.Equal(t, FieldEmail, field)
	assert.Equal(t, "This email is already registered.", msg)
}

func TestSignUp_EmailTakenByConcurrentWriter(t *testing.T) {
	svc, users, sessions := newTestService(t, nil)
	ctx := context.Background()

	// Another instance registered the email between lookup and insert.
	users.createErr = errors.Wrap(ErrEmailTaken, "unique index")

	_, err := svc.SignUp(ctx, "ana@example.com", "s3cret!")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEmailAlreadyInUse))
	assert.Empty(t, sessions.byID)

	users.createErr = errors.New("db down")
	_, err = svc.SignUp(ctx, "ana@example.com", "s3cret!")
	require.Error(t, err)
	assert.False(t, IsKind(err, KindEmailAlreadyInUse))
	assert.Contains(t, err.Error(), "create user")
}

func TestSignUp_BlocklistedPassword(t *testing.T) {
	bl := NewBlocklist(10, 0.001)
	bl.Add("password")
	svc, _, _ := newTestService(t, bl)

	_, err := svc.SignUp(context.Background(), "ana@example.com", "PASSWORD")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldPassword, ve.Field)
}

func TestSignIn(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ana@example.com", "s3cret!")
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		got, err := svc.SignIn(ctx, "ana@example.com", "s3cret!")
		require.NoError(t, err)
		assert.NotEmpty(t, got.Token)
	})
	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "ana@example.com", "nope-nope")
		assert.True(t, IsKind(err, KindWrongPassword))
	})
	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "bob@example.com", "s3cret!")
		assert.True(t, IsKind(err, KindUserNotFound))
	})
	t.Run("missing password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "ana@example.com", "")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, FieldPassword, ve.Field)
	})
}

func TestAuthenticate_InvalidTokens(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, token := range []string{"", "garbage"} {
		_, err := svc.Authenticate(ctx, token)
		assert.True(t, IsKind(err, KindInvalidCredential), "token %q", token)
	}
}

func TestSignOut_RevokesAndNotifies(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	var changes []StateChange
	unsubscribe := svc.OnAuthStateChanged(func(c StateChange) {
		changes = append(changes, c)
	})

	in, err := svc.SignUp(ctx, "ana@example.com", "s3cret!")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, in.Token))

	_, err = svc.Authenticate(ctx, in.Token)
	assert.True(t, IsKind(err, KindInvalidCredential))

	// Second sign-out is a no-op.
	require.NoError(t, svc.SignOut(ctx, in.Token))

	require.Len(t, changes, 2)
	require.NotNil(t, changes[0].User)
	assert.Equal(t, in.User.ID, changes[0].User.ID)
	assert.Equal(t, in.SessionID, changes[1].SessionID)
	assert.Nil(t, changes[1].User)

	unsubscribe()
	unsubscribe()
	_, err = svc.SignIn(ctx, "ana@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestDescribe_Unknown(t *testing.T) {
	field, msg := Describe(fmt.Errorf("boom"))
	assert.Empty(t, field)
	assert.Equal(t, GenericMessage, msg)

	field, msg = Describe(&Error{Kind: "quota-exceeded"})
	assert.Empty(t, field)
	assert.Equal(t, GenericMessage, msg)
}

func TestBlocklist_RoundTrip(t *testing.T) {
	bl := NewBlocklist(100, 0.001)
	for _, w := range []string{"123456", "qwerty", "Password"} {
		bl.Add(w)
	}

	var buf bytes.Buffer
	_, err := bl.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadBlocklist(&buf)
	require.NoError(t, err)
	assert.True(t, got.Contains("qwerty"))
	assert.True(t, got.Contains(" password "))
	assert.False(t, got.Contains("correct horse battery staple"))

	var nilList *Blocklist
	assert.False(t, nilList.Contains("qwerty"))
}

func TestBlocklist_Merge(t *testing.T) {
	a, b := NewBlocklist(100, 0.001), NewBlocklist(100, 0.001)
	a.Add("qwerty")
	b.Add("letmein")
	require.NoError(t, a.Merge(b))
	assert.True(t, a.Contains("qwerty"))
	assert.True(t, a.Contains("letmein"))

	require.Error(t, a.Merge(NewBlocklist(10_000, 0.001)))
}

package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret-which-is-long-enough", time.Hour)

	token, err := manager.GenerateToken("user-42")
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret-which-is-long-enough", -time.Minute)

	token, err := manager.GenerateToken("user-42")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret-which-is-long-enough", time.Hour)
	other := NewJWTManager("a-completely-different-secret!!!", time.Hour)

	token, err := manager.GenerateToken("user-42")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2!", 4)
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2!"))
	assert.False(t, CheckPassword(hash, "hunter3!"))
}

type memoryOTPStore struct {
	codes map[string]string
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{codes: make(map[string]string)}
}

func (s *memoryOTPStore) SetCode(_ context.Context, email, code string) error {
	s.codes[email] = code
	return nil
}

func (s *memoryOTPStore) GetCode(_ context.Context, email string) (string, error) {
	code, ok := s.codes[email]
	if !ok {
		return "", ErrInvalidOTP
	}
	return code, nil
}

func (s *memoryOTPStore) DeleteCode(_ context.Context, email string) error {
	delete(s.codes, email)
	return nil
}

type captureMailer struct {
	to   string
	code string
}

func (m *captureMailer) SendOTP(_ context.Context, to, code string) error {
	m.to = to
	m.code = code
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTPSendAndValidate(t *testing.T) {
	store := newMemoryOTPStore()
	mailer := &captureMailer{}
	svc := NewOTPService(store, mailer, testLogger())

	require.NoError(t, svc.Send(context.Background(), "a@b.c"))
	assert.Equal(t, "a@b.c", mailer.to)
	assert.Len(t, mailer.code, 6)

	require.NoError(t, svc.Validate(context.Background(), "a@b.c", mailer.code))
}

func TestOTPIsSingleUse(t *testing.T) {
	store := newMemoryOTPStore()
	mailer := &captureMailer{}
	svc := NewOTPService(store, mailer, testLogger())

	require.NoError(t, svc.Send(context.Background(), "a@b.c"))
	require.NoError(t, svc.Validate(context.Background(), "a@b.c", mailer.code))

	err := svc.Validate(context.Background(), "a@b.c", mailer.code)
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestOTPRejectsWrongCode(t *testing.T) {
	store := newMemoryOTPStore()
	mailer := &captureMailer{}
	svc := NewOTPService(store, mailer, testLogger())

	require.NoError(t, svc.Send(context.Background(), "a@b.c"))

	err := svc.Validate(context.Background(), "a@b.c", "000000")
	if mailer.code == "000000" {
		t.Skip("generated the guessed code")
	}
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

type staticUserStore struct {
	user *User
}

func (s *staticUserStore) CreateUser(context.Context, *User) error { return nil }
func (s *staticUserStore) UserByID(_ context.Context, id string) (*User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, ErrUserNotFound
}
func (s *staticUserStore) UserByIdentifier(context.Context, string) (*User, error) {
	return nil, ErrUserNotFound
}
func (s *staticUserStore) UserByEmail(context.Context, string) (*User, error) {
	return nil, ErrUserNotFound
}
func (s *staticUserStore) UpdateUserProfile(context.Context, *User) error  { return nil }
func (s *staticUserStore) MarkEmailVerified(context.Context, string) error { return nil }

func TestGateResolvesValidToken(t *testing.T) {
	manager := NewJWTManager("test-secret-which-is-long-enough", time.Hour)
	gate := NewGate(manager, &staticUserStore{user: &User{ID: "user-1", Username: "ada"}})

	token, err := manager.GenerateToken("user-1")
	require.NoError(t, err)

	user, err := gate.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
}

func TestGateRejectsMissingToken(t *testing.T) {
	manager := NewJWTManager("test-secret-which-is-long-enough", time.Hour)
	gate := NewGate(manager, &staticUserStore{})

	_, err := gate.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGateRejectsUnknownUser(t *testing.T) {
	manager := NewJWTManager("test-secret-which-is-long-enough", time.Hour)
	gate := NewGate(manager, &staticUserStore{})

	token, err := manager.GenerateToken("ghost")
	require.NoError(t, err)

	_, err = gate.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

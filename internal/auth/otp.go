package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore keeps pending verification codes keyed by email. Codes are
// single-use and expire on their own.
type OTPStore interface {
	SetCode(ctx context.Context, email, code string) error
	GetCode(ctx context.Context, email string) (string, error)
	DeleteCode(ctx context.Context, email string) error
}

type RedisOTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOTPStore(client *redis.Client, ttl time.Duration) *RedisOTPStore {
	return &RedisOTPStore{client: client, ttl: ttl}
}

func (r *RedisOTPStore) SetCode(ctx context.Context, email, code string) error {
	return r.client.Set(ctx, formatOTPKey(email), code, r.ttl).Err()
}

func (r *RedisOTPStore) GetCode(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, formatOTPKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidOTP
	}
	if err != nil {
		return "", fmt.Errorf("getting otp code: %w", err)
	}
	return code, nil
}

func (r *RedisOTPStore) DeleteCode(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, formatOTPKey(email)).Err(); err != nil {
		return fmt.Errorf("deleting otp code: %w", err)
	}
	return nil
}

func formatOTPKey(email string) string {
	return fmt.Sprintf("auth:otp:%s", email)
}

type OTPService struct {
	store  OTPStore
	mailer Mailer
	logger *slog.Logger
}

func NewOTPService(store OTPStore, mailer Mailer, logger *slog.Logger) *OTPService {
	return &OTPService{store: store, mailer: mailer, logger: logger}
}

// Send generates a six-digit code, stores it and emails it. A mail
// failure is logged but does not lose the code: the store already has
// it, and dev environments read it from the log.
func (s *OTPService) Send(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generating otp: %w", err)
	}

	if err := s.store.SetCode(ctx, email, code); err != nil {
		return fmt.Errorf("storing otp: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		s.logger.Warn("failed to send otp email, code stays valid", "email", email, "error", err)
	}
	return nil
}

// Validate checks the code for email and consumes it on success.
func (s *OTPService) Validate(ctx context.Context, email, code string) error {
	stored, err := s.store.GetCode(ctx, email)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidOTP
	}

	if err := s.store.DeleteCode(ctx, email); err != nil {
		s.logger.Warn("failed to delete consumed otp", "email", email, "error", err)
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

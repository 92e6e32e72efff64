// Package auth issues and validates credentials: password logins, JWT
// bearer tokens and emailed one-time codes. Both the HTTP middleware
// and websocket admission resolve identities through the Gate.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
)

type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	FullName        string    `json:"full_name,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	Age             *int      `json:"age,omitempty"`
	FavouriteAnimal string    `json:"favourite_animal,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Reputation      int       `json:"reputation"`
	EmailVerified   bool      `json:"email_verified"`
	CreatedAt       time.Time `json:"created_at"`
	PasswordHash    string    `json:"-"`
}

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	// UserByIdentifier matches username, email or phone.
	UserByIdentifier(ctx context.Context, identifier string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserProfile(ctx context.Context, u *User) error
	MarkEmailVerified(ctx context.Context, id string) error
}

// Gate resolves a bearer token to a live user. Admission to any
// authenticated surface (HTTP or websocket) goes through here.
type Gate struct {
	jwt   *JWTManager
	users UserStore
}

func NewGate(jwt *JWTManager, users UserStore) *Gate {
	return &Gate{jwt: jwt, users: users}
}

func (g *Gate) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := g.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

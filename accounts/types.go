/*
Package accounts manages the (at most two) people who use the tracker.

PURPOSE:
  Sign-up, login sessions, password-reset requests and the per-user target
  amount. The approval rules elsewhere only need a stable user id; this
  package is where those ids come from.

LIMITS:
  MaxUsers accounts may exist. The AppConfig singleton records whether any
  account exists and how many, so a client can decide between showing the
  sign-up and the login form without listing users.

ERRORS:
  Every failure a person can cause carries an auth Code. MessageFor turns
  any error into the sentence a form should show.

SEE ALSO:
  - password.go: Password rules and checklist
  - errors.go: Codes and messages
  - store/sqlite: Persistent Store
*/
package accounts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MaxUsers is the number of accounts the tracker supports.
const MaxUsers = 2

type User struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	PasswordHash []byte           `json:"-"`
	TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AppConfig is the singleton that gates sign-up.
type AppConfig struct {
	HasUsers  bool `json:"hasUsers"`
	UserCount int  `json:"userCount"`
	MaxUsers  int  `json:"maxUsers"`
}

// SignupOpen reports whether another account may be created.
func (c AppConfig) SignupOpen() bool {
	return c.UserCount < MaxUsers
}

// Store persists users, sessions and the AppConfig singleton.
// UserByEmail and UserByID return ErrUserNotFound for unknown users;
// CreateUser returns ErrEmailInUse for a duplicate email.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, u User) error
	CountUsers(ctx context.Context) (int, error)

	AppConfig(ctx context.Context) (AppConfig, error)
	SaveAppConfig(ctx context.Context, c AppConfig) error

	CreateSession(ctx context.Context, s Session) error
	SessionByToken(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

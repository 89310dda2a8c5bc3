package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/finhub/accounts"
)

var _ accounts.Store = (*Store)(nil)

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u accounts.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, target_amount, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, nullDecimal(u.TargetAmount), formatTime(u.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return accounts.ErrEmailInUse
	}
	return err
}

const userColumns = "id, email, password_hash, target_amount, created_at"

func scanUser(row scanner) (accounts.User, error) {
	var u accounts.User
	var target sql.NullString
	var createdAt string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &target, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.User{}, accounts.ErrUserNotFound
		}
		return accounts.User{}, err
	}
	u.TargetAmount = parseNullDecimal(target)
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (accounts.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

func (s *Store) UserByID(ctx context.Context, id string) (accounts.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (s *Store) UpdateUser(ctx context.Context, u accounts.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET email = ?, password_hash = ?, target_amount = ? WHERE id = ?",
		u.Email, u.PasswordHash, nullDecimal(u.TargetAmount), u.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// =============================================================================
// APP CONFIG
// =============================================================================

func (s *Store) AppConfig(ctx context.Context) (accounts.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := accounts.AppConfig{MaxUsers: accounts.MaxUsers}
	err := s.db.QueryRowContext(ctx, "SELECT has_users, user_count FROM app_config WHERE id = 1").
		Scan(&c.HasUsers, &c.UserCount)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	return c, err
}

func (s *Store) SaveAppConfig(ctx context.Context, c accounts.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_config (id, has_users, user_count) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			has_users = excluded.has_users,
			user_count = excluded.user_count
	`, c.HasUsers, c.UserCount)
	return err
}

// =============================================================================
// SESSIONS
// =============================================================================

func (s *Store) CreateSession(ctx context.Context, session accounts.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserID, formatTime(session.CreatedAt), formatTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) SessionByToken(ctx context.Context, token string) (accounts.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var session accounts.Session
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&session.Token, &session.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.Session{}, accounts.ErrUnauthenticated
	}
	if err != nil {
		return accounts.Session{}, err
	}
	session.CreatedAt = parseTime(createdAt)
	session.ExpiresAt = parseTime(expiresAt)
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions compares fixed-width UTC timestamps as strings.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

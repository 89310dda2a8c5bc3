package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/logging"
)

const (
	// DefaultSessionTTL applies when Config.SessionTTL is zero.
	DefaultSessionTTL = 7 * 24 * time.Hour

	maxFailedLogins = 5
	failureWindow   = 15 * time.Minute
)

type Config struct {
	SessionTTL time.Duration
	BcryptCost int
}

// Service implements sign-up, login and the per-user settings.
type Service struct {
	store     Store
	publisher events.Publisher
	logger    *logging.Logger
	validate  *validator.Validate
	cfg       Config
	now       func() time.Time

	signupMu sync.Mutex

	failMu   sync.Mutex
	failures map[string][]time.Time
}

func NewService(store Store, publisher events.Publisher, logger *logging.Logger, cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:     store,
		publisher: events.OrNop(publisher),
		logger:    logging.OrNop(logger).WithComponent(logging.ComponentAccounts),
		validate:  validator.New(),
		cfg:       cfg,
		now:       time.Now,
		failures:  make(map[string][]time.Time),
	}
}

// SetClock replaces time.Now, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return generic.Invalid("email", "Enter a valid email address.")
	}
	return nil
}

// =============================================================================
// SIGN-UP
// =============================================================================

// Config returns the sign-up gate.
func (s *Service) Config(ctx context.Context) (AppConfig, error) {
	c, err := s.store.AppConfig(ctx)
	if err != nil {
		return AppConfig{}, err
	}
	c.MaxUsers = MaxUsers
	return c, nil
}

// Signup creates an account and signs it in.
func (s *Service) Signup(ctx context.Context, email, password, confirm string) (User, Session, error) {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return User{}, Session{}, err
	}
	if err := ValidateNewPassword(password, confirm); err != nil {
		return User{}, Session{}, err
	}

	s.signupMu.Lock()
	defer s.signupMu.Unlock()

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("count users: %w", err)
	}
	if count >= MaxUsers {
		return User{}, Session{}, ErrMaxUsers
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           generic.NewID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return User{}, Session{}, err
	}
	if err := s.store.SaveAppConfig(ctx, AppConfig{HasUsers: true, UserCount: count + 1, MaxUsers: MaxUsers}); err != nil {
		return User{}, Session{}, fmt.Errorf("save app config: %w", err)
	}

	s.logger.Info("account created", zap.String(logging.FieldRecordID, u.ID))
	s.publish(ctx, events.New(events.AccountCreated, events.KindAccount, u.ID, u.ID, u.Email))

	session, err := s.startSession(ctx, u.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, session, nil
}

// =============================================================================
// LOGIN / SESSIONS
// =============================================================================

func (s *Service) Login(ctx context.Context, email, password string) (User, Session, error) {
	email = normalizeEmail(email)
	if s.tooManyFailures(email) {
		return User{}, Session{}, ErrTooManyRequests
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordFailure(email)
			return User{}, Session{}, ErrInvalidCredential
		}
		return User{}, Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		s.recordFailure(email)
		s.logger.Warn("login failed", zap.String(logging.FieldActor, u.ID))
		return User{}, Session{}, ErrInvalidCredential
	}

	s.clearFailures(email)
	session, err := s.startSession(ctx, u.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, session, nil
}

func (s *Service) startSession(ctx context.Context, userID string) (Session, error) {
	now := s.now().UTC()
	session := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	session, err := s.store.SessionByToken(ctx, token)
	if err != nil {
		return User{}, ErrUnauthenticated
	}
	if session.Expired(s.now()) {
		_ = s.store.DeleteSession(ctx, token)
		return User{}, ErrUnauthenticated
	}
	u, err := s.store.UserByID(ctx, session.UserID)
	if err != nil {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}

// PurgeSessions deletes expired sessions and stale login failures.
func (s *Service) PurgeSessions(ctx context.Context) (int, error) {
	if n := s.PruneLoginFailures(); n > 0 {
		s.logger.Debug("login failures pruned", zap.Int("emails", n))
	}
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

func (s *Service) tooManyFailures(email string) bool {
	s.failMu.Lock()
	defer s.failMu.Unlock()

	cutoff := s.now().Add(-failureWindow)
	recent := s.failures[email][:0]
	for _, at := range s.failures[email] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) == 0 {
		delete(s.failures, email)
		return false
	}
	s.failures[email] = recent
	return len(recent) >= maxFailedLogins
}

// PruneLoginFailures forgets failed logins older than the throttle window
// and returns how many emails were dropped.
func (s *Service) PruneLoginFailures() int {
	s.failMu.Lock()
	defer s.failMu.Unlock()

	cutoff := s.now().Add(-failureWindow)
	dropped := 0
	for email, times := range s.failures {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(s.failures, email)
			dropped++
		}
	}
	return dropped
}

func (s *Service) recordFailure(email string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[email] = append(s.failures[email], s.now())
}

func (s *Service) clearFailures(email string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	delete(s.failures, email)
}

// =============================================================================
// PASSWORD RESET
// =============================================================================

// RequestPasswordReset publishes a reset request for a known email. The
// mail itself is sent by whoever consumes the event.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	s.publish(ctx, events.New(events.PasswordResetRequested, events.KindAccount, u.ID, u.ID, u.Email))
	return nil
}

// =============================================================================
// TARGET AMOUNT
// =============================================================================

func (s *Service) TargetAmount(ctx context.Context, userID string) (*decimal.Decimal, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.TargetAmount, nil
}

// SetTargetAmount stores max(0, raw). An empty raw value clears it.
func (s *Service) SetTargetAmount(ctx context.Context, userID, raw string) (*decimal.Decimal, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		u.TargetAmount = nil
	} else {
		target := decimal.Max(decimal.Zero, generic.ToDecimal(raw))
		u.TargetAmount = &target
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save target amount: %w", err)
	}
	return u.TargetAmount, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish failed", zap.Error(err), zap.String(logging.FieldEvent, string(e.Type)))
	}
}

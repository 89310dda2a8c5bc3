package accounts_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/finhub/accounts"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/events/mocks"
)

const goodPassword = "Secret123"

func newTestService(t *testing.T, pub events.Publisher) *accounts.Service {
	t.Helper()
	return accounts.NewService(accounts.NewMemoryStore(), pub, nil, accounts.Config{
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

// =============================================================================
// PASSWORD RULES
// =============================================================================

func TestValidatePassword_FirstBrokenRule(t *testing.T) {
	cases := []struct {
		password string
		want     string
	}{
		{"Ab1", "Password must be at least 8 characters."},
		{"abcdefg1", "Password must include at least one uppercase letter."},
		{"ABCDEFG1", "Password must include at least one lowercase letter."},
		{"Abcdefgh", "Password must include at least one number."},
		{"Aa1" + strings.Repeat("x", 80), "Password must be at most 72 bytes."},
		{"Aa1" + strings.Repeat("é", 35), "Password must be at most 72 bytes."},
	}
	for _, tc := range cases {
		t.Run(tc.password, func(t *testing.T) {
			err := accounts.ValidatePassword(tc.password)
			require.Error(t, err)
			assert.Equal(t, tc.want, accounts.MessageFor(accounts.OpSignup, err))
		})
	}
	assert.NoError(t, accounts.ValidatePassword(goodPassword))
}

func TestValidateNewPassword_Mismatch(t *testing.T) {
	err := accounts.ValidateNewPassword(goodPassword, "Secret124")
	assert.Equal(t, "Passwords do not match.", accounts.MessageFor(accounts.OpSignup, err))
}

func TestPasswordChecklist(t *testing.T) {
	list := accounts.PasswordChecklist("abc1")

	require.Len(t, list, 5)
	assert.False(t, list[0].Met)
	assert.False(t, list[1].Met)
	assert.True(t, list[2].Met)
	assert.True(t, list[3].Met)
	assert.True(t, list[4].Met)
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

func TestMessageFor(t *testing.T) {
	cases := []struct {
		op   accounts.Operation
		err  error
		want string
	}{
		{accounts.OpSignup, accounts.ErrEmailInUse, "This email is already registered."},
		{accounts.OpSignup, accounts.ErrMaxUsers, "Maximum number of accounts reached."},
		{accounts.OpLogin, accounts.ErrTooManyRequests, "Too many attempts. Please try again later."},
		{accounts.OpReset, context.DeadlineExceeded, "Network error. Check your connection."},
		{accounts.OpLogin, accounts.ErrInvalidCredential, "Invalid email or password."},
		{accounts.OpLogin, fmt.Errorf("lookup: %w", accounts.ErrUserNotFound), "Invalid email or password."},
		{accounts.OpReset, accounts.ErrUserNotFound, "No account found for this email."},
		{accounts.OpSignup, errors.New("disk full"), "Sign up failed."},
		{accounts.OpLogin, errors.New("disk full"), "Login failed."},
		{accounts.OpReset, errors.New("disk full"), "Failed to send reset email."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, accounts.MessageFor(tc.op, tc.err), "%s %v", tc.op, tc.err)
	}
	assert.Empty(t, accounts.MessageFor(accounts.OpLogin, nil))
}

// =============================================================================
// SIGN-UP / LOGIN
// =============================================================================

func TestSignup_CapsAccountsAndTracksConfig(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	cfg, err := svc.Config(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.HasUsers)
	assert.True(t, cfg.SignupOpen())

	alice, session, err := svc.Signup(ctx, " Alice@Example.com ", goodPassword, goodPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.Equal(t, alice.ID, session.UserID)

	_, _, err = svc.Signup(ctx, "alice@example.com", goodPassword, goodPassword)
	assert.ErrorIs(t, err, accounts.ErrEmailInUse)

	_, _, err = svc.Signup(ctx, "bob@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "carol@example.com", goodPassword, goodPassword)
	assert.ErrorIs(t, err, accounts.ErrMaxUsers)

	cfg, err = svc.Config(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.HasUsers)
	assert.Equal(t, 2, cfg.UserCount)
	assert.False(t, cfg.SignupOpen())
}

func TestSignup_RejectsBadEmail(t *testing.T) {
	svc := newTestService(t, nil)

	_, _, err := svc.Signup(context.Background(), "not-an-email", goodPassword, goodPassword)

	assert.Equal(t, "Enter a valid email address.", accounts.MessageFor(accounts.OpSignup, err))
}

func TestLogin_SessionLifecycle(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	_, _, err := svc.Signup(ctx, "alice@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "Wrong1234")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredential)
	_, _, err = svc.Login(ctx, "nobody@example.com", goodPassword)
	assert.ErrorIs(t, err, accounts.ErrInvalidCredential)

	u, session, err := svc.Login(ctx, "ALICE@example.com", goodPassword)
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Expired after the TTL
	now = now.Add(2 * time.Hour)
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, accounts.ErrUnauthenticated)
}

func TestLogin_ThrottlesRepeatedFailures(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	_, _, err := svc.Signup(ctx, "alice@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err = svc.Login(ctx, "alice@example.com", "Wrong1234")
		require.ErrorIs(t, err, accounts.ErrInvalidCredential)
	}

	_, _, err = svc.Login(ctx, "alice@example.com", goodPassword)
	assert.ErrorIs(t, err, accounts.ErrTooManyRequests)
}

func TestPurgeSessions_ForgetsStaleLoginFailures(t *testing.T) {
	// GIVEN: failed logins for three unknown emails
	svc := newTestService(t, nil)
	ctx := context.Background()
	now := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	for _, email := range []string{"x@example.com", "y@example.com", "z@example.com"} {
		_, _, err := svc.Login(ctx, email, goodPassword)
		require.ErrorIs(t, err, accounts.ErrInvalidCredential)
	}

	// WHEN: still inside the throttle window
	now = now.Add(time.Minute)

	// THEN: nothing is dropped
	assert.Equal(t, 0, svc.PruneLoginFailures())

	// WHEN: the window has passed and sessions are purged
	now = now.Add(20 * time.Minute)
	_, err := svc.PurgeSessions(ctx)
	require.NoError(t, err)

	// THEN: the entries are already gone
	assert.Equal(t, 0, svc.PruneLoginFailures())
}

func TestPruneLoginFailures_DropsExpiredEmails(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	now := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	for _, email := range []string{"x@example.com", "y@example.com"} {
		_, _, _ = svc.Login(ctx, email, goodPassword)
	}

	now = now.Add(16 * time.Minute)

	assert.Equal(t, 2, svc.PruneLoginFailures())
	assert.Equal(t, 0, svc.PruneLoginFailures())
}

func TestLogout(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	_, session, err := svc.Signup(ctx, "alice@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))

	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, accounts.ErrUnauthenticated)
}

// =============================================================================
// RESET / TARGET
// =============================================================================

func TestRequestPasswordReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	svc := newTestService(t, pub)
	ctx := context.Background()

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil) // account.created
	_, _, err := svc.Signup(ctx, "alice@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		assert.Equal(t, events.PasswordResetRequested, e.Type)
		assert.Equal(t, "alice@example.com", e.Summary)
		return nil
	})
	require.NoError(t, svc.RequestPasswordReset(ctx, "Alice@example.com"))

	err = svc.RequestPasswordReset(ctx, "bob@example.com")
	assert.Equal(t, "No account found for this email.", accounts.MessageFor(accounts.OpReset, err))
}

func TestSetTargetAmount(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	u, _, err := svc.Signup(ctx, "alice@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	target, err := svc.SetTargetAmount(ctx, u.ID, "15000.50")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "15000.5", target.String())

	target, err = svc.SetTargetAmount(ctx, u.ID, "-20")
	require.NoError(t, err)
	assert.True(t, target.IsZero())

	target, err = svc.SetTargetAmount(ctx, u.ID, " ")
	require.NoError(t, err)
	assert.Nil(t, target)

	got, err := svc.TargetAmount(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intime-labs/intime/internal/config"
	"github.com/intime-labs/intime/internal/identity"
)

func newTestService(t *testing.T) (*Service, identity.User) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo)
	user, err := ids.Register(context.Background(), identity.Credentials{Account: "holder1", PIN: "1234", DeviceID: "d"})
	require.NoError(t, err)

	cfg := config.Config{
		JWTSecret:       "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	return NewService(cfg, repo), user
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(user)
	require.NoError(t, err)
	require.Equal(t, int64(60), pair.ExpiresIn)

	claims, err := svc.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "holder1", claims.Account)

	// refresh tokens are signed with a different secret
	_, err = svc.VerifyAccess(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	access, _, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.VerifyAccess(ctx, access)
	require.NoError(t, err)
}

func TestExpiredTokensAreRejected(t *testing.T) {
	svc, user := newTestService(t)
	pair, err := svc.Login(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.VerifyAccess(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestLogoutInvalidatesOutstandingTokens(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()
	pair, err := svc.Login(user)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, err = svc.VerifyAccess(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalidated)
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenInvalidated)
}

func TestTamperedTokenFailsVerification(t *testing.T) {
	svc, user := newTestService(t)
	pair, err := svc.Login(user)
	require.NoError(t, err)

	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
	_, err = svc.VerifyAccess(context.Background(), tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := NewPasswordAuthenticator("editor@revue.test", string(hash))
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	g := NewGuard(authn, NewSessions(rdb, time.Hour), []byte("test-secret"), time.Hour, zap.NewNop())
	return g, mr
}

func TestGuard_LoginAndResume(t *testing.T) {
	g, mr := newTestGuard(t)
	ctx := context.Background()

	token, sess, err := g.Login(ctx, "Editor@Revue.test", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, sess.State)
	assert.True(t, mr.Exists(sessionPrefix+sess.ID), "session must be stored server-side")

	resumed, err := g.Resume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, resumed.State)
	assert.Equal(t, sess.ID, resumed.ID)
}

func TestGuard_WrongPasswordNeverLocksOut(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, sess, err := g.Login(ctx, "editor@revue.test", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, Unauthenticated, sess.State)
	}

	_, sess, err := g.Login(ctx, "editor@revue.test", "s3cret")
	require.NoError(t, err, "no lockout after repeated failures")
	assert.Equal(t, Authenticated, sess.State)
}

func TestGuard_ResumeRequiresServerSession(t *testing.T) {
	g, mr := newTestGuard(t)
	ctx := context.Background()

	token, sess, err := g.Login(ctx, "editor@revue.test", "s3cret")
	require.NoError(t, err)

	// A valid token whose session vanished must not be trusted.
	mr.Del(sessionPrefix + sess.ID)
	resumed, err := g.Resume(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, Unauthenticated, resumed.State)

	_, err = g.Resume(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = g.Resume(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGuard_ResumeRejectsForeignSignature(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	_, sess, err := g.Login(ctx, "editor@revue.test", "s3cret")
	require.NoError(t, err)

	forged, err := signToken([]byte("other-secret"), sess.ID, sess.Email, time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = g.Resume(ctx, forged)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGuard_ResumeRejectsExpiredToken(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	token, _, err := g.Login(ctx, "editor@revue.test", "s3cret")
	require.NoError(t, err)

	g.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = g.Resume(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGuard_Logout(t *testing.T) {
	g, mr := newTestGuard(t)
	ctx := context.Background()

	token, sess, err := g.Login(ctx, "editor@revue.test", "s3cret")
	require.NoError(t, err)

	require.NoError(t, g.Logout(ctx, token))
	assert.False(t, mr.Exists(sessionPrefix+sess.ID))

	_, err = g.Resume(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, g.Logout(ctx, ""), "logging out without a session is a no-op")
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	a, err := NewPasswordAuthenticator("editor@revue.test", hash)
	require.NoError(t, err)
	assert.NoError(t, a.SignIn(context.Background(), "editor@revue.test", "s3cret"))
	assert.ErrorIs(t, a.SignIn(context.Background(), "someone@else.test", "s3cret"), ErrInvalidCredentials)

	_, err = HashPassword("")
	assert.Error(t, err)

	_, err = NewPasswordAuthenticator("editor@revue.test", "plain-text")
	assert.Error(t, err)
}

func TestGuard_LoginSigningFailureDropsSession(t *testing.T) {
	g, mr := newTestGuard(t)
	core, logs := observer.New(zap.InfoLevel)
	g.logger = zap.New(core)
	g.sign = func([]byte, string, string, time.Time, time.Duration) (string, error) {
		return "", errors.New("signer offline")
	}

	token, sess, err := g.Login(context.Background(), "editor@revue.test", "s3cret")
	require.Error(t, err)
	assert.Empty(t, token)
	assert.Equal(t, Unauthenticated, sess.State)
	assert.Empty(t, mr.Keys(), "half-created session must be removed")
	assert.Equal(t, 1, logs.FilterMessage("Failed to sign session token").Len())
	assert.Zero(t, logs.FilterMessage("Failed to delete session").Len())
}

func TestGuard_LoginSigningFailureLogsCleanupError(t *testing.T) {
	g, mr := newTestGuard(t)
	core, logs := observer.New(zap.InfoLevel)
	g.logger = zap.New(core)
	g.sign = func([]byte, string, string, time.Time, time.Duration) (string, error) {
		mr.Close()
		return "", errors.New("signer offline")
	}

	_, _, err := g.Login(context.Background(), "editor@revue.test", "s3cret")
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Failed to delete session").Len())
}

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Session is the guard's view of one admin visitor.
type Session struct {
	State State
	ID    string
	Email string
}

// Guard switches between the login form and the dashboard. Every resume is
// validated against the session store; a token by itself is only a hint.
type Guard struct {
	auth     Authenticator
	sessions *Sessions
	secret   []byte
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
	sign     func(secret []byte, sessionID, email string, now time.Time, ttl time.Duration) (string, error)
}

func NewGuard(auth Authenticator, sessions *Sessions, secret []byte, ttl time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		auth:     auth,
		sessions: sessions,
		secret:   secret,
		ttl:      ttl,
		logger:   logger.With(zap.String("component", "guard")),
		now:      time.Now,
		sign:     signToken,
	}
}

// TTL is the lifetime of issued sessions.
func (g *Guard) TTL() time.Duration { return g.ttl }

// Login checks the credentials and opens a session. The returned token is
// meant for the session cookie. Failed attempts are not counted.
func (g *Guard) Login(ctx context.Context, email, password string) (string, Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := g.auth.SignIn(ctx, email, password); err != nil {
		g.logger.Info("Login rejected", zap.String("email", email))
		return "", Session{State: Unauthenticated}, err
	}

	id, err := g.sessions.Create(ctx, email)
	if err != nil {
		g.logger.Error("Failed to create session", zap.Error(err))
		return "", Session{State: Unauthenticated}, err
	}

	token, err := g.sign(g.secret, id, email, g.now(), g.ttl)
	if err != nil {
		g.logger.Error("Failed to sign session token", zap.Error(err))
		if derr := g.sessions.Delete(ctx, id); derr != nil {
			g.logger.Error("Failed to delete session", zap.String("session", id), zap.Error(derr))
		}
		return "", Session{State: Unauthenticated}, err
	}

	g.logger.Info("Admin logged in", zap.String("email", email))
	return token, Session{State: Authenticated, ID: id, Email: email}, nil
}

// Resume validates a token from a returning visitor. Any failure yields an
// unauthenticated session and ErrNoSession.
func (g *Guard) Resume(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{State: Unauthenticated}, ErrNoSession
	}
	claims, err := parseToken(g.secret, token, g.now(), false)
	if err != nil {
		return Session{State: Unauthenticated}, ErrNoSession
	}
	email, err := g.sessions.Lookup(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			g.logger.Error("Session lookup failed", zap.Error(err))
		}
		return Session{State: Unauthenticated}, ErrNoSession
	}
	if email != claims.Subject {
		return Session{State: Unauthenticated}, ErrNoSession
	}
	return Session{State: Authenticated, ID: claims.SessionID, Email: email}, nil
}

// Logout revokes the session referenced by token, even an expired one.
func (g *Guard) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := parseToken(g.secret, token, g.now(), true)
	if err != nil {
		return nil
	}
	if err := g.sessions.Delete(ctx, claims.SessionID); err != nil {
		g.logger.Error("Failed to delete session", zap.Error(err))
		return err
	}
	if err := g.auth.SignOut(ctx, claims.Subject); err != nil {
		g.logger.Warn("Sign-out failed", zap.Error(err))
	}
	g.logger.Info("Admin logged out", zap.String("email", claims.Subject))
	return nil
}

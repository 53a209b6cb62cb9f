package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:"

// Sessions keeps server-side admin sessions in Redis with a TTL.
type Sessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessions(rdb *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{rdb: rdb, ttl: ttl}
}

func (s *Sessions) Create(ctx context.Context, email string) (string, error) {
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionPrefix+id, email, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// Lookup returns the email bound to the session, or ErrNoSession.
func (s *Sessions) Lookup(ctx context.Context, id string) (string, error) {
	email, err := s.rdb.Get(ctx, sessionPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return email, nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionPrefix+id).Err()
}

// Claims are carried by the session cookie. The cookie alone never grants
// access; the referenced session must still exist in Redis.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

func signToken(secret []byte, sessionID, email string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID: sessionID,
	})
	return token.SignedString(secret)
}

// parseToken verifies the signature. Expiry is checked unless ignoreExpiry
// is set, which logout uses to clean up stale sessions.
func parseToken(secret []byte, tokenString string, now time.Time, ignoreExpiry bool) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

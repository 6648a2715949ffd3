// Package auth issues and validates the JWT pairs used by the API and the
// web pages, and keeps the list of revoked token ids.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"photoalbum/internal/models"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
)

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Type     string `json:"typ"`
	Version  int    `json:"ver"`
	jwt.RegisteredClaims
}

// Remaining is how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    Revoker
	now        func() time.Time
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration, revoked Revoker) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revoked:    revoked,
		now:        time.Now,
	}
}

func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// Issue signs a new access/refresh pair for the user's current token version.
func (m *Manager) Issue(u *models.User) (*Pair, error) {
	const op = "auth.Issue"

	access, err := m.sign(u, TypeAccess, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := m.sign(u, TypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) sign(u *models.User, typ string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Type:     typ,
		Version:  u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates signature, expiry, type and revocation status.
func (m *Manager) Parse(ctx context.Context, token, typ string) (*Claims, error) {
	const op = "auth.Parse"

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, c *Claims) error {
	const op = "auth.Revoke"

	ttl := c.Remaining(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.revoked.Revoke(ctx, c.ID, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"photoalbum/internal/auth"
	"photoalbum/internal/models"
	"photoalbum/internal/storage"
)

const (
	ctxUser   = "user"
	ctxClaims = "claims"
)

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUser).(*models.User)
}

func currentClaims(c *gin.Context) *auth.Claims {
	return c.MustGet(ctxClaims).(*auth.Claims)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate resolves a token to its user. Tokens issued before the
// user's last password change are rejected.
func (s *Server) authenticate(ctx context.Context, token, typ string) (*models.User, *auth.Claims, error) {
	claims, err := s.tokens.Parse(ctx, token, typ)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}
	if user.TokenVersion != claims.Version {
		return nil, nil, auth.ErrRevoked
	}
	return user, claims, nil
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevoked)
}

func (s *Server) requireAuth(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		abort(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	user, claims, err := s.authenticate(c.Request.Context(), token, auth.TypeAccess)
	if err != nil {
		if isAuthError(err) {
			abort(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}
		s.fail(c, "server.requireAuth", err)
		return
	}

	c.Set(ctxUser, user)
	c.Set(ctxClaims, claims)
	c.Next()
}

func (s *Server) requireStaff(c *gin.Context) {
	if !currentUser(c).IsStaff {
		abort(c, http.StatusForbidden, msgForbidden)
		return
	}
	c.Next()
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			abort(c, http.StatusTooManyRequests, "Request was throttled.")
			return
		}
		c.Next()
	}
}

// Cleanup forgets clients that have been idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	n := 0
	for key, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			n++
		}
	}
	return n
}

package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/devshare/devshare/internal/models"
)

const identityKey = "identity"

type identityClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// IdentityMiddleware parses an optional Bearer token and stores the caller's
// identity on the context. An absent header leaves the request anonymous; a
// present but invalid token is rejected.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		author := models.Author{UID: claims.Subject, Name: claims.Name}
		if claims.Picture != "" {
			picture := claims.Picture
			author.PhotoURL = &picture
		}
		c.Set(identityKey, author)
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller, if any
func CurrentIdentity(c *gin.Context) (*models.Author, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	author, ok := v.(models.Author)
	if !ok {
		return nil, false
	}
	return &author, true
}

// RequireIdentity rejects anonymous requests
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client-IP token bucket
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipLimiter
	rate    rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing r events per second with the
// given burst, per client IP. Idle entries are evicted lazily.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*ipLimiter),
		rate:    r,
		burst:   burst,
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.clients[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = entry
	}
	entry.lastSeen = now

	if len(rl.clients) > 1000 {
		for key, e := range rl.clients {
			if now.Sub(e.lastSeen) > 10*time.Minute {
				delete(rl.clients, key)
			}
		}
	}
	return entry.limiter
}

// Middleware rejects requests over the per-IP budget with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net"
	"net/http"
	"sync"

	apperrors "github.com/alchemorsel/discovery/pkg/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultMaxClients = 10000

// RateLimitConfig configures per-client token buckets
type RateLimitConfig struct {
	RequestsPerMin int
	BurstSize      int
	// MaxClients bounds how many client buckets are remembered; the least
	// recently seen client is forgotten first
	MaxClients int
}

// RateLimiter throttles requests per client IP
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewRateLimiter creates a rate limiter
func NewRateLimiter(cfg RateLimitConfig, logger *zap.Logger) (*RateLimiter, error) {
	size := cfg.MaxClients
	if size <= 0 {
		size = defaultMaxClients
	}
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: cache,
		limit:    rate.Limit(cfg.RequestsPerMin) / 60,
		burst:    burst,
		logger:   logger.Named("ratelimit"),
	}, nil
}

// Allow reports whether the client may make another request now
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(client, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Clients returns how many client buckets are held
func (l *RateLimiter) Clients() int {
	return l.limiters.Len()
}

// Middleware rejects over-limit requests with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !l.Allow(client) {
			l.logger.Debug("Rate limit exceeded", zap.String("client", client))
			WriteError(w, r, apperrors.NewTooManyRequestsError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr; chi's RealIP has already
// replaced it with X-Forwarded-For / X-Real-IP when present
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

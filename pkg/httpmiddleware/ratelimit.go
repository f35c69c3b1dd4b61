package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const rateLimitNamespace = "ratelimit"

// Counter is a shared fixed-window counter. The first increment of a key
// starts its window.
type Counter interface {
	IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error)
}

// RateLimitConfig configures the fixed window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the client IP address is used.
	KeyFunc func(*http.Request) string
}

// RateLimit enforces a per-key request limit shared by every replica through
// the counter. Requests pass when the counter fails. Rejected requests get
// 429 with Retry-After.
func RateLimit(counter Counter, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	limit := int64(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			n, err := counter.IncrWithExpire(ctx, rateLimitNamespace, cfg.KeyFunc(r), cfg.Window)
			if err != nil {
				zctx.From(ctx).Warn("Rate limit counter failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := max(limit-n, 0)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

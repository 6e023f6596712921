package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mgardella/storefront-backend/api/responses"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// RateLimitPolicy caps attempts per window, keyed separately by client IP
// and by the email in the request body.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

// RateLimitStore is the counter surface, satisfied by the Redis client.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// AuthRateLimit throttles credential endpoints. The body is buffered so the
// email can be inspected and then restored for the handler. Store failures
// let the request through; throttling is best effort.
func AuthRateLimit(store RateLimitStore, policy RateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if policy.IPLimit > 0 && ip != "" {
				key := store.RateLimitKey(policy.Name, "ip", ip)
				count, err := store.IncrWithTTL(ctx, key, policy.Window)
				if err != nil {
					logg.Warn(ctx, "rate limit store unavailable")
				} else if count > int64(policy.IPLimit) {
					responses.WriteError(ctx, w, logg, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts"))
					return
				}
			}

			if policy.EmailLimit > 0 {
				if email := peekEmail(r); email != "" {
					key := store.RateLimitKey(policy.Name, "email", hashEmail(email))
					count, err := store.IncrWithTTL(ctx, key, policy.Window)
					if err != nil {
						logg.Warn(ctx, "rate limit store unavailable")
					} else if count > int64(policy.EmailLimit) {
						responses.WriteError(ctx, w, logg, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts"))
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// peekEmail reads the email field from a JSON body without consuming it.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(probe.Email))
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

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
	"strconv"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/api/responses"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

type rateCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitKey is one fixed-window counter. Requests for which Value returns "" are not counted.
type RateLimitKey struct {
	Scope     string
	Limit     int
	NeedsBody bool
	Value     func(r *http.Request, body []byte) string
}

// RateLimitPolicy groups the counters guarding one route.
type RateLimitPolicy struct {
	Surface string
	Window  time.Duration
	Keys    []RateLimitKey
}

// ByClientIP counts requests per caller address.
func ByClientIP(limit int) RateLimitKey {
	return RateLimitKey{
		Scope: "ip",
		Limit: limit,
		Value: func(r *http.Request, _ []byte) string { return clientIP(r) },
	}
}

// ByBodyEmail counts requests per hashed "email" field of a JSON body.
func ByBodyEmail(limit int) RateLimitKey {
	return RateLimitKey{
		Scope:     "email",
		Limit:     limit,
		NeedsBody: true,
		Value: func(_ *http.Request, body []byte) string {
			var payload struct {
				Email string `json:"email"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return ""
			}
			email := strings.ToLower(strings.TrimSpace(payload.Email))
			if email == "" {
				return ""
			}
			sum := sha256.Sum256([]byte(email))
			return hex.EncodeToString(sum[:])
		},
	}
}

func (p RateLimitPolicy) active() []RateLimitKey {
	if p.Window <= 0 {
		return nil
	}
	keys := make([]RateLimitKey, 0, len(p.Keys))
	for _, k := range p.Keys {
		if k.Limit > 0 && k.Value != nil {
			keys = append(keys, k)
		}
	}
	return keys
}

func (p RateLimitPolicy) counterScope(scope, value string) string {
	return p.Surface + ":" + scope + ":" + value
}

// RateLimit rejects requests with 429 once any counter of the policy exceeds its limit in the window.
func RateLimit(policy RateLimitPolicy, counter rateCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	keys := policy.active()
	needsBody := false
	for _, k := range keys {
		needsBody = needsBody || k.NeedsBody
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if needsBody && r.Body != nil {
				raw, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				body = raw
				r.Body = io.NopCloser(bytes.NewReader(raw))
			}

			for _, k := range keys {
				value := k.Value(r, body)
				if value == "" {
					continue
				}
				allowed, count, err := counter.FixedWindowAllow(ctx, policy.counterScope(k.Scope, value), int64(k.Limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"surface":  policy.Surface,
							"scope":    k.Scope,
							"attempts": count,
							"limit":    k.Limit,
						}), "rate limit exceeded")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

package redis

import "strings"

// Every key the platform writes lives under this namespace.
const namespace = "bc"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	lockPrefix        = "lock"
)

// key joins the non-empty parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key(idempotencyPrefix, scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key(rateLimitPrefix, scope) }

func (c *Client) LockKey(name string) string { return key(lockPrefix, name) }

func (c *Client) AccessSessionKey(accessID string) string {
	return key(sessionPrefix, "access", accessID)
}

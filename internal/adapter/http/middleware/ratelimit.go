package middleware

import (
	"strconv"
	"time"

	redisStore "krwx-ledger/internal/adapter/storage/redis"
	"krwx-ledger/pkg/apperror"
	"krwx-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups.
const (
	GroupReads     = "reads"
	GroupTransfers = "transfers"
	GroupAdmin     = "admin"
	GroupEvents    = "events"
)

// DefaultRateLimitRules returns the per-group limits used by the router.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupReads:     {Limit: 300, Window: time.Minute},
		GroupTransfers: {Limit: 120, Window: time.Minute},
		GroupAdmin:     {Limit: 30, Window: time.Minute},
		GroupEvents:    {Limit: 60, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Redis failures let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractIdentifier(c) + ":" + group

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated requests by caller, the rest by IP.
func extractIdentifier(c *gin.Context) string {
	if caller, ok := Caller(c); ok {
		return caller.Hex()
	}
	return c.ClientIP()
}

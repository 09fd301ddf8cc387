package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// rateLimitWindow is the fixed-window length for inbound rate limiting.
const rateLimitWindow = time.Minute

// RateLimiter throttles inbound chat requests per client IP using Redis
// fixed windows. A Redis outage fails open.
type RateLimiter struct {
	rdb   *redis.Client
	limit int
}

// NewRateLimiter constructs a RateLimiter. A nil client disables limiting.
func NewRateLimiter(rdb *redis.Client, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: requestsPerMinute}
}

// Middleware returns the gin middleware enforcing the limit.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rdb == nil || l.limit <= 0 {
			c.Next()
			return
		}

		window := time.Now().Unix() / int64(rateLimitWindow.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), window)

		ctx := c.Request.Context()
		count, errIncr := l.rdb.Incr(ctx, key).Result()
		if errIncr != nil {
			log.WithError(errIncr).Warn("ratelimit: redis unavailable, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			l.rdb.Expire(ctx, key, rateLimitWindow)
		}
		if count > int64(l.limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionamm/pkg/config"
	"github.com/wyfcoding/optionamm/pkg/ratelimit"
)

// RateLimit creates a Gin middleware for per-client rate limiting
func RateLimit(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s", c.ClientIP())
		res, err := limiter.Allow(c.Request.Context(), key, ratelimit.Limit{
			Rate:   cfg.Rate,
			Period: time.Duration(cfg.Period) * time.Second,
			Burst:  cfg.Burst,
		})
		if err != nil {
			// 限流器故障时放行，不阻塞业务
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

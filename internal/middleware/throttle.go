package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/service"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/response"
)

// LoginThrottle rejects locked out clients with 429 and feeds the outcome of
// each login back into limiter: 401 counts as a failure, 2xx resets the client.
func LoginThrottle(limiter *service.LoginLimiter, onLocked func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if ok, wait := limiter.Allow(client); !ok {
			retryAfter := int(math.Ceil(wait.Seconds()))
			if onLocked != nil {
				onLocked()
			}
			failures, first := limiter.Attempts(client)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Error(c,
				appErrors.Clone(appErrors.ErrTooManyRequests, "too many failed login attempts, try again later"),
				map[string]interface{}{
					"retry_after":     retryAfter,
					"failed_attempts": failures,
					"first_failure":   first.UTC().Format(time.RFC3339),
				},
			)
			c.Abort()
			return
		}

		c.Next()

		switch status := c.Writer.Status(); {
		case status == http.StatusUnauthorized:
			limiter.Failure(client)
		case status >= 200 && status < 300:
			limiter.Success(client)
		}
	}
}

package bridge

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// KindRateLimited is reported when the bridge sheds a request.
const KindRateLimited sderrors.Kind = "RateLimited"

// requestID tags every request with an ID, reusing a well-formed one sent by the client.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("bridge request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"request", c.GetString(requestIDKey))
	}
}

// rateLimit sheds requests beyond perSec with a 429. A non-positive perSec disables the limit.
func rateLimit(perSec float64, burst int) gin.HandlerFunc {
	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.Failed(KindRateLimited, messages.ErrRateLimited))
			return
		}
		c.Next()
	}
}

// originChecker accepts the configured origins exactly, or any loopback origin when none are
// configured. Requests without an Origin header come from non-browser clients and pass.
func originChecker(allowed []string) func(origin string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[o] = struct{}{}
		}
	}

	return func(origin string) bool {
		if origin == "" {
			return true
		}
		if len(set) > 0 {
			_, ok := set[origin]
			return ok
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		if host == "localhost" {
			return true
		}
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	}
}

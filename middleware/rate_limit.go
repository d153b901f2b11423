package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wanderstay/staypoints/config"
	"github.com/wanderstay/staypoints/utils"
)

const limiterIdleTTL = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per key. rate.Limiter is safe for concurrent use.
type limiterSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	sweptAt  time.Time
}

func newLimiterSet(perMinute int) *limiterSet {
	perMinute = max(perMinute, 1)
	return &limiterSet{
		visitors: map[string]*visitor{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
	}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.sweptAt) > limiterIdleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(s.visitors, k)
			}
		}
		s.sweptAt = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimitMiddleware applies a token bucket per authenticated user, or per client IP
// before authentication.
func RateLimitMiddleware() gin.HandlerFunc {
	set := newLimiterSet(config.Get().RateLimitPerMinute)

	return func(ctx *gin.Context) {
		key := "ip:" + ctx.ClientIP()
		if uid, ok := ctx.Get(ContextUserIDKey); ok {
			if id, ok := uid.(uint); ok {
				key = "user:" + strconv.FormatUint(uint64(id), 10)
			}
		}

		if !set.get(key, time.Now()).Allow() {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}

package utils

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDKey is where the request id middleware leaves the id in the gin context.
const RequestIDKey = "request_id"

// Ginzap writes one access log line per request.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		c.Next()

		end := time.Now()
		if utc {
			end = end.UTC()
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Duration("latency", end.Sub(start)),
			zap.String("time", end.Format(timeFormat)),
		}
		if id := c.GetString(RequestIDKey); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if uid, ok := c.Get("user_id"); ok {
			fields = append(fields, zap.Any("user_id", uid))
		}

		switch {
		case len(c.Errors) > 0:
			for _, e := range c.Errors.Errors() {
				logger.Error(e, fields...)
			}
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn(path, fields...)
		default:
			logger.Info(path, fields...)
		}
	}
}

// RecoveryWithZap turns panics into a 500 envelope and logs them.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if brokenPipe(rec) {
				logger.Error(c.Request.URL.Path, zap.Any("error", rec))
				c.Abort()
				return
			}

			dump, _ := httputil.DumpRequest(c.Request, false)
			fields := []zap.Field{
				zap.Any("error", rec),
				zap.String("request", redactAuthorization(string(dump))),
			}
			if stack {
				fields = append(fields, zap.ByteString("stack", debug.Stack()))
			}
			logger.Error("recovered from panic", fields...)
			Error(c, http.StatusInternalServerError, 50000, "internal server error")
			c.Abort()
		}()
		c.Next()
	}
}

func brokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}

func redactAuthorization(dump string) string {
	lines := strings.Split(dump, "\r\n")
	for i, l := range lines {
		if strings.HasPrefix(strings.ToLower(l), "authorization:") {
			lines[i] = "Authorization: [redacted]"
		}
	}
	return strings.Join(lines, "\r\n")
}

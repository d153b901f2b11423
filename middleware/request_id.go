package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wanderstay/staypoints/utils"
)

const requestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
// Caller ids outside a short token charset are replaced, never echoed.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		ctx.Set(utils.RequestIDKey, id)
		ctx.Header(requestIDHeader, id)
		ctx.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wanderstay/staypoints/config"
	"github.com/wanderstay/staypoints/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// AuthRequired ensures the request carries a valid bearer token issued by the identity provider.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		if utils.IsTokenRevoked(tokenString) {
			utils.Abort(ctx, http.StatusUnauthorized, 40104, "token revoked")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// AdminRequired lets through users listed in ADMIN_USERNAMES. It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(ctx) {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin privileges required")
			return
		}
		ctx.Next()
	}
}

// IsAdmin reports whether the authenticated user is a configured admin.
func IsAdmin(ctx *gin.Context) bool {
	username := ctx.GetString(ContextUsernameKey)
	if username == "" {
		return false
	}
	for _, admin := range config.Get().AdminUsernames {
		if strings.EqualFold(admin, username) {
			return true
		}
	}
	return false
}

package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const revokedKeyPrefix = "jwt:blacklist:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// RevokeToken refuses token until expiresAt. Used by tests and local tooling:
// in production the issuing auth service writes the jwt:blacklist: keys and
// this service only reads them. Redis is used when enabled; otherwise the
// revocation is kept in process memory, which only this process sees.
func RevokeToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := rc.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err()
		if err == nil {
			return
		}
		Logger.Warn("revoke token in redis failed, keeping it in memory", zap.Error(err))
	}
	revokedMu.Lock()
	revoked[token] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked checks if a token was revoked before natural expiration.
// Redis is the source of truth; the memory list only holds RevokeToken fallbacks.
func IsTokenRevoked(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedKeyPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
		if err != nil {
			// fail open on redis errors, the memory list is still checked
			Logger.Warn("revoked token lookup failed", zap.Error(err))
		}
	}

	revokedMu.RLock()
	expiresAt, ok := revoked[token]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedMu.Lock()
		delete(revoked, token)
		revokedMu.Unlock()
		return false
	}
	return true
}

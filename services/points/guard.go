package points

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckInGuard remembers committed check-ins so duplicates can be refused
// without opening a database transaction. The database stays authoritative.
type CheckInGuard interface {
	Seen(ctx context.Context, userID uint, day Day) (bool, error)
	Mark(ctx context.Context, userID uint, day Day) error
}

// RedisGuard stores one short-lived marker per user and calendar day.
type RedisGuard struct {
	rc  redis.Cmdable
	ttl time.Duration
}

// NewRedisGuard returns a guard whose markers outlive any time zone's day boundary.
func NewRedisGuard(rc redis.Cmdable) *RedisGuard {
	return &RedisGuard{rc: rc, ttl: 48 * time.Hour}
}

func guardKey(userID uint, day Day) string {
	return fmt.Sprintf("points:checkin:%d:%s", userID, day)
}

func (g *RedisGuard) Seen(ctx context.Context, userID uint, day Day) (bool, error) {
	n, err := g.rc.Exists(ctx, guardKey(userID, day)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisGuard) Mark(ctx context.Context, userID uint, day Day) error {
	return g.rc.Set(ctx, guardKey(userID, day), "1", g.ttl).Err()
}

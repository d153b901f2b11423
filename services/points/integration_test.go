//go:build integration

package points

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/staypoints/internal/testutil"
	"github.com/wanderstay/staypoints/internal/testutil/containers"
	"github.com/wanderstay/staypoints/models"
)

func TestRedisGuard(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedis(t)
	guard := NewRedisGuard(rc)
	ctx := context.Background()
	d := day(t, "2026-03-01")

	seen, err := guard.Seen(ctx, testUser, d)
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, guard.Mark(ctx, testUser, d))
	seen, err = guard.Seen(ctx, testUser, d)
	require.NoError(t, err)
	require.True(t, seen)

	ttl, err := rc.TTL(ctx, "points:checkin:42:2026-03-01").Result()
	require.NoError(t, err)
	require.InDelta(t, (48 * time.Hour).Seconds(), ttl.Seconds(), 5)

	seen, err = guard.Seen(ctx, testUser, d.AddDays(1))
	require.NoError(t, err)
	require.False(t, seen)
}

func TestCheckInConcurrentPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := containers.NewPostgres(t, &models.PointsAccount{}, &models.CheckInStreak{}, &models.PointsHistoryEntry{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clock := testutil.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc, err := NewService(db, node, Options{BasePoints: 10, Location: time.UTC, Now: clock.Now})
	require.NoError(t, err)

	ctx := context.Background()
	for round := 0; round < 3; round++ {
		const n = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			failures  []error
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CheckIn(ctx, testUser)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case !errors.Is(err, ErrAlreadyCheckedIn):
					failures = append(failures, err)
				}
			}()
		}
		wg.Wait()
		require.Empty(t, failures)
		require.Equal(t, 1, successes, "round %d", round)
		clock.Advance(24 * time.Hour)
	}

	stats, err := svc.GetStats(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 3, stats.CurrentStreak)
	require.Equal(t, int64(30), stats.LifetimeEarned)
	requireConsistent(t, svc, testUser)
}

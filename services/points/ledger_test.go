package points

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wanderstay/staypoints/models"
)

func TestAwardIsIdempotentPerReference(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	res, err := f.svc.Award(ctx, testUser, AwardRequest{Action: ActionBookingCompleted, Amount: 150, ReferenceID: " bk-9 ", Note: "  Lisbon stay "})
	require.NoError(t, err)
	require.Equal(t, int64(150), res.Amount)
	require.Equal(t, int64(150), res.Balance.CurrentPoints)
	require.NotZero(t, res.EntryID)

	_, err = f.svc.Award(ctx, testUser, AwardRequest{Action: ActionBookingCompleted, Amount: 150, ReferenceID: "bk-9"})
	require.ErrorIs(t, err, ErrDuplicateReference)

	// same reference under another action is a different event
	_, err = f.svc.Award(ctx, testUser, AwardRequest{Action: ActionReviewSubmitted, Amount: 25, ReferenceID: "bk-9"})
	require.NoError(t, err)

	// unreferenced awards never collide
	for i := 0; i < 2; i++ {
		_, err = f.svc.Award(ctx, testUser, AwardRequest{Action: ActionAdminAdjustment, Amount: 5})
		require.NoError(t, err)
	}

	bal, err := f.svc.GetBalance(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, int64(185), bal.LifetimeEarned)

	var entry models.PointsHistoryEntry
	require.NoError(t, f.db.Where("id = ?", res.EntryID).Take(&entry).Error)
	require.Equal(t, "Lisbon stay", entry.Note)
	require.NotNil(t, entry.ReferenceID)
	require.Equal(t, "bk-9", *entry.ReferenceID)

	report := requireConsistent(t, f.svc, testUser)
	require.Equal(t, int64(4), report.EntryCount)
}

func TestAwardValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	bad := []AwardRequest{
		{Action: ActionDailyCheckIn, Amount: 10},
		{Action: ActionPointsRedeemed, Amount: 10},
		{Action: "FOUND_ON_FLOOR", Amount: 10},
		{Action: ActionReferralBonus, Amount: 0},
		{Action: ActionReferralBonus, Amount: -4},
		{Action: ActionReferralBonus, Amount: 4, ReferenceID: string(make([]byte, 65))},
		{Action: ActionReferralBonus, Amount: MaxLedgerAmount + 1},
	}
	for _, req := range bad {
		_, err := f.svc.Award(ctx, testUser, req)
		require.True(t, IsValidation(err), "request %+v: %v", req, err)
	}
}

func TestRedeem(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Redeem(ctx, testUser, RedeemRequest{Amount: 1})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// the failed redemption must not leave an account behind
	var n int64
	require.NoError(t, f.db.Model(&models.PointsAccount{}).Count(&n).Error)
	require.Zero(t, n)

	_, err = f.svc.Award(ctx, testUser, AwardRequest{Action: ActionReferralBonus, Amount: 50})
	require.NoError(t, err)

	res, err := f.svc.Redeem(ctx, testUser, RedeemRequest{Amount: 30, ReferenceID: "voucher-1"})
	require.NoError(t, err)
	require.Equal(t, int64(-30), res.Amount)
	require.Equal(t, Balance{TotalPoints: 20, CurrentPoints: 20, LifetimeEarned: 50, LifetimeRedeemed: 30}, res.Balance)

	_, err = f.svc.Redeem(ctx, testUser, RedeemRequest{Amount: 21})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	_, err = f.svc.Redeem(ctx, testUser, RedeemRequest{Amount: 5, ReferenceID: "voucher-1"})
	require.ErrorIs(t, err, ErrDuplicateReference)

	_, err = f.svc.Redeem(ctx, testUser, RedeemRequest{Amount: 0})
	require.True(t, IsValidation(err))

	bal, err := f.svc.GetBalance(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, int64(20), bal.CurrentPoints)
	require.Equal(t, int64(30), bal.LifetimeRedeemed)

	page, err := f.svc.GetHistory(ctx, testUser, HistoryQuery{Action: ActionPointsRedeemed})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Equal(t, int64(-30), page.Entries[0].Amount)

	requireConsistent(t, f.svc, testUser)
}

func TestAuditDetectsDrift(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	report, err := f.svc.Audit(ctx, testUser)
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Zero(t, report.EntryCount)

	_, err = f.svc.CheckIn(ctx, testUser)
	require.NoError(t, err)
	requireConsistent(t, f.svc, testUser)

	require.NoError(t, f.db.Model(&models.PointsAccount{}).
		Where("user_id = ?", testUser).
		Update("current_points", 999).Error)

	report, err = f.svc.Audit(ctx, testUser)
	require.NoError(t, err)
	require.False(t, report.Consistent)
	require.Equal(t, int64(10), report.HistorySum)
	require.Equal(t, int64(999), report.CurrentPoints)
}

func TestRedeemRejectsAmountAboveCap(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Redeem(context.Background(), testUser, RedeemRequest{Amount: MaxLedgerAmount + 1})
	require.True(t, IsValidation(err), "got %v", err)
}

func TestPostingRefusesBalanceOverflow(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	const start = math.MaxInt64 - 5
	require.NoError(t, f.db.Create(&models.PointsAccount{
		UserID:         testUser,
		CurrentPoints:  start,
		LifetimeEarned: start,
	}).Error)

	_, err := f.svc.Award(ctx, testUser, AwardRequest{Action: ActionReferralBonus, Amount: 10})
	require.ErrorIs(t, err, ErrBalanceOverflow)
	require.True(t, IsRejection(err))

	_, err = f.svc.CheckIn(ctx, testUser)
	require.ErrorIs(t, err, ErrBalanceOverflow)

	bal, err := f.svc.GetBalance(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, int64(start), bal.CurrentPoints)
	require.Equal(t, int64(start), bal.LifetimeEarned)

	var entries, streaks int64
	require.NoError(t, f.db.Model(&models.PointsHistoryEntry{}).Count(&entries).Error)
	require.NoError(t, f.db.Model(&models.CheckInStreak{}).Count(&streaks).Error)
	require.Zero(t, entries)
	require.Zero(t, streaks)

	// landing exactly on the maximum is allowed
	res, err := f.svc.Award(ctx, testUser, AwardRequest{Action: ActionReferralBonus, Amount: 5})
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), res.Balance.CurrentPoints)
}

package points

// Action is the reason recorded on a history entry.
type Action string

const (
	ActionDailyCheckIn     Action = "DAILY_CHECK_IN"
	ActionBookingCompleted Action = "BOOKING_COMPLETED"
	ActionReviewSubmitted  Action = "REVIEW_SUBMITTED"
	ActionReferralBonus    Action = "REFERRAL_BONUS"
	ActionProfileCompleted Action = "PROFILE_COMPLETED"
	ActionPointsRedeemed   Action = "POINTS_REDEEMED"
	ActionAdminAdjustment  Action = "ADMIN_ADJUSTMENT"
)

var knownActions = map[Action]bool{
	ActionDailyCheckIn:     true,
	ActionBookingCompleted: true,
	ActionReviewSubmitted:  true,
	ActionReferralBonus:    true,
	ActionProfileCompleted: true,
	ActionPointsRedeemed:   true,
	ActionAdminAdjustment:  true,
}

// Valid reports whether a is a known action kind.
func (a Action) Valid() bool { return knownActions[a] }

// Awardable reports whether a may be credited through Award.
// Check-ins and redemptions have their own operations.
func (a Action) Awardable() bool {
	return a.Valid() && a != ActionDailyCheckIn && a != ActionPointsRedeemed
}

package points

import "time"

// Balance is a snapshot of a user's points account.
// TotalPoints and CurrentPoints report the same stored value.
type Balance struct {
	TotalPoints      int64
	CurrentPoints    int64
	LifetimeEarned   int64
	LifetimeRedeemed int64
}

// CheckInResult describes a successful daily check-in.
type CheckInResult struct {
	Points        int64 // total awarded, base plus bonus
	BasePoints    int64
	BonusPoints   int64
	StreakCount   int
	LongestStreak int
	Transition    Transition
	Date          Day
	Message       string
}

// HistoryQuery selects a page of history entries.
type HistoryQuery struct {
	Limit  int
	Offset int
	Action Action // optional filter
}

// HistoryEntry is the read view of one ledger record.
type HistoryEntry struct {
	ID           int64
	Action       Action
	Amount       int64
	BalanceAfter int64
	ReferenceID  string
	Note         string
	CreatedAt    time.Time
}

// HistoryPage is one page of history, most recent first.
type HistoryPage struct {
	Entries []HistoryEntry
	Total   int64
	Limit   int
	Offset  int
	HasMore bool
}

// Stats combines balance and streak state read together.
type Stats struct {
	Balance
	CurrentStreak   int
	LongestStreak   int
	LastCheckInDate Day
	CheckedInToday  bool
	TotalCheckIns   int64
	NextBonusIn     int
}

// AwardRequest credits points for an earning action such as a completed booking.
type AwardRequest struct {
	Action      Action
	Amount      int64
	ReferenceID string
	Note        string
}

// RedeemRequest debits points from the current balance.
type RedeemRequest struct {
	Amount      int64
	ReferenceID string
	Note        string
}

// LedgerResult is the outcome of an Award or Redeem.
type LedgerResult struct {
	EntryID int64
	Amount  int64
	Balance Balance
}

// AuditReport compares the stored totals against the history ledger.
type AuditReport struct {
	UserID           uint
	CurrentPoints    int64
	LifetimeEarned   int64
	LifetimeRedeemed int64
	HistorySum       int64
	EntryCount       int64
	Consistent       bool
}

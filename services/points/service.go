package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wanderstay/staypoints/models"
)

const defaultHistoryLimit = 20

// Options tunes the ledger. Zero values fall back to defaults.
type Options struct {
	BasePoints      int64
	Bonuses         BonusSchedule
	MaxHistoryLimit int
	Location        *time.Location
	Now             func() time.Time
	Guard           CheckInGuard
	Metrics         Recorder
	Logger          *zap.Logger
}

// Service is the points ledger: balances, daily check-ins, history and stats.
// Every method takes the already authenticated user id explicitly.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	basePoints int64
	bonuses    BonusSchedule
	maxLimit   int
	loc        *time.Location
	now        func() time.Time
	guard      CheckInGuard
	metrics    Recorder
	log        *zap.Logger
}

// NewService creates a ledger over db; node generates history entry ids.
func NewService(db *gorm.DB, node *snowflake.Node, opts Options) (*Service, error) {
	if db == nil || node == nil {
		return nil, errors.New("points: db and snowflake node are required")
	}
	if opts.BasePoints < 0 {
		return nil, fmt.Errorf("points: negative base points %d", opts.BasePoints)
	}
	if err := opts.Bonuses.Validate(); err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}

	s := &Service{
		db:         db,
		node:       node,
		basePoints: opts.BasePoints,
		bonuses:    opts.Bonuses,
		maxLimit:   opts.MaxHistoryLimit,
		loc:        opts.Location,
		now:        opts.Now,
		guard:      opts.Guard,
		metrics:    opts.Metrics,
		log:        opts.Logger,
	}
	if s.maxLimit <= 0 {
		s.maxLimit = 100
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

// Today is the server calendar day in the ledger's time zone.
func (s *Service) Today() Day {
	return DayOf(s.now(), s.loc)
}

// GetBalance returns the user's balance, all zero when the user has no account row.
func (s *Service) GetBalance(ctx context.Context, userID uint) (Balance, error) {
	acct, err := findAccount(s.db.WithContext(ctx), userID)
	if err != nil {
		s.log.Error("load points account failed", zap.Uint("user_id", userID), zap.Error(err))
		return Balance{}, fmt.Errorf("load points account: %w", err)
	}
	return balanceOf(acct), nil
}

// GetStats reads balance and streak in one transaction so both describe the same state.
func (s *Service) GetStats(ctx context.Context, userID uint) (Stats, error) {
	today := s.Today()

	var (
		acct   *models.PointsAccount
		streak *StreakState
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if acct, err = findAccount(tx, userID); err != nil {
			return err
		}
		streak, _, err = findStreak(tx, userID, false)
		return err
	})
	if err != nil {
		s.log.Error("load points stats failed", zap.Uint("user_id", userID), zap.Error(err))
		return Stats{}, fmt.Errorf("load points stats: %w", err)
	}

	stats := Stats{Balance: balanceOf(acct)}
	active := 0
	if streak != nil {
		stats.CurrentStreak = streak.Current
		stats.LongestStreak = streak.Longest
		stats.LastCheckInDate = streak.Last
		stats.TotalCheckIns = streak.Total
		stats.CheckedInToday = streak.Last.Equal(today)
		active = streak.ActiveStreak(today)
	}
	// counted in check-ins, today's included when it is still open
	stats.NextBonusIn = s.bonuses.NextBonusIn(active)
	return stats, nil
}

func balanceOf(acct *models.PointsAccount) Balance {
	if acct == nil {
		return Balance{}
	}
	return Balance{
		TotalPoints:      acct.CurrentPoints,
		CurrentPoints:    acct.CurrentPoints,
		LifetimeEarned:   acct.LifetimeEarned,
		LifetimeRedeemed: acct.LifetimeRedeemed,
	}
}

// findAccount returns nil without error when the user has no account row.
func findAccount(db *gorm.DB, userID uint) (*models.PointsAccount, error) {
	var acct models.PointsAccount
	err := db.Where("user_id = ?", userID).Take(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// lockAccount makes sure the account row exists and locks it for the rest of tx.
// Concurrent writers for the same user serialize on this row, including the very first one.
func lockAccount(tx *gorm.DB, userID uint) (*models.PointsAccount, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PointsAccount{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("ensure points account: %w", err)
	}
	var acct models.PointsAccount
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).Take(&acct).Error; err != nil {
		return nil, fmt.Errorf("lock points account: %w", err)
	}
	return &acct, nil
}

// findStreak loads the streak row; both results are nil when the user never checked in.
func findStreak(tx *gorm.DB, userID uint, forUpdate bool) (*StreakState, *models.CheckInStreak, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row models.CheckInStreak
	err := q.Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	last, err := ParseDay(row.LastCheckInDate)
	if err != nil {
		return nil, nil, fmt.Errorf("check-in streak of user %d: bad date %q: %w", userID, row.LastCheckInDate, err)
	}
	return &StreakState{
		Current: row.CurrentStreak,
		Longest: row.LongestStreak,
		Last:    last,
		Total:   row.TotalCheckIns,
	}, &row, nil
}

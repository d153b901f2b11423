package points

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wanderstay/staypoints/models"
)

// CheckIn performs the daily check-in of userID for the current calendar day.
// A second call on the same day fails with ErrAlreadyCheckedIn and changes nothing.
func (s *Service) CheckIn(ctx context.Context, userID uint) (CheckInResult, error) {
	today := s.Today()
	log := s.log.With(zap.Uint("user_id", userID), zap.String("day", today.String()))

	if s.guard != nil {
		seen, err := s.guard.Seen(ctx, userID, today)
		switch {
		case err != nil:
			log.Warn("check-in guard lookup failed, falling back to database", zap.Error(err))
		case seen:
			s.metrics.RecordCheckIn(OutcomeDuplicate)
			return CheckInResult{}, ErrAlreadyCheckedIn
		}
	}

	var res CheckInResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, userID)
		if err != nil {
			return err
		}
		prev, row, err := findStreak(tx, userID, true)
		if err != nil {
			return err
		}

		next, tr := NextStreak(prev, today)
		if tr == TransitionDuplicate {
			return ErrAlreadyCheckedIn
		}

		bonus := int64(s.bonuses.BonusFor(next.Current))
		total := s.basePoints + bonus
		balance, err := addPoints(acct.CurrentPoints, total)
		if err != nil {
			return err
		}
		earned, err := addPoints(acct.LifetimeEarned, total)
		if err != nil {
			return err
		}

		if err := tx.Model(acct).Updates(map[string]interface{}{
			"current_points":  balance,
			"lifetime_earned": earned,
		}).Error; err != nil {
			return fmt.Errorf("update points account: %w", err)
		}

		if err := saveStreak(tx, userID, row, next); err != nil {
			return err
		}

		entry := models.PointsHistoryEntry{
			ID:           s.node.Generate().Int64(),
			UserID:       userID,
			Action:       string(ActionDailyCheckIn),
			Amount:       total,
			BalanceAfter: balance,
			Note:         fmt.Sprintf("daily check-in, day %d of streak", next.Current),
			CreatedAt:    s.now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append points history: %w", err)
		}

		res = CheckInResult{
			Points:        total,
			BasePoints:    s.basePoints,
			BonusPoints:   bonus,
			StreakCount:   next.Current,
			LongestStreak: next.Longest,
			Transition:    tr,
			Date:          today,
			Message:       checkInMessage(next.Current, bonus),
		}
		return nil
	})

	switch {
	case errors.Is(err, ErrAlreadyCheckedIn):
		s.metrics.RecordCheckIn(OutcomeDuplicate)
		s.mark(ctx, log, userID, today)
		return CheckInResult{}, err
	case errors.Is(err, ErrBalanceOverflow):
		s.metrics.RecordCheckIn(OutcomeError)
		log.Warn("check-in refused, points total at maximum")
		return CheckInResult{}, err
	case err != nil:
		s.metrics.RecordCheckIn(OutcomeError)
		log.Error("check-in failed", zap.Error(err))
		return CheckInResult{}, err
	}

	s.mark(ctx, log, userID, today)
	s.metrics.RecordCheckIn(OutcomeSuccess)
	s.metrics.RecordAward(ActionDailyCheckIn, res.Points)
	log.Info("check-in recorded",
		zap.Int64("points", res.Points),
		zap.Int("streak", res.StreakCount),
		zap.Stringer("transition", res.Transition),
	)
	return res, nil
}

// mark records a committed check-in in the guard. Failures only cost the shortcut.
func (s *Service) mark(ctx context.Context, log *zap.Logger, userID uint, day Day) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Mark(ctx, userID, day); err != nil {
		log.Warn("check-in guard mark failed", zap.Error(err))
	}
}

func saveStreak(tx *gorm.DB, userID uint, row *models.CheckInStreak, next StreakState) error {
	if row == nil {
		err := tx.Create(&models.CheckInStreak{
			UserID:          userID,
			CurrentStreak:   next.Current,
			LongestStreak:   next.Longest,
			LastCheckInDate: next.Last.String(),
			TotalCheckIns:   next.Total,
		}).Error
		if err != nil {
			return fmt.Errorf("create check-in streak: %w", err)
		}
		return nil
	}
	err := tx.Model(row).Updates(map[string]interface{}{
		"current_streak":     next.Current,
		"longest_streak":     next.Longest,
		"last_check_in_date": next.Last.String(),
		"total_check_ins":    next.Total,
	}).Error
	if err != nil {
		return fmt.Errorf("update check-in streak: %w", err)
	}
	return nil
}

func checkInMessage(streak int, bonus int64) string {
	if bonus > 0 {
		return fmt.Sprintf("check-in successful, %d-day streak bonus +%d", streak, bonus)
	}
	return "check-in successful"
}

package points

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wanderstay/staypoints/models"
)

const (
	// MaxLedgerAmount caps a single award or redemption.
	MaxLedgerAmount = 1_000_000_000

	maxReferenceLen = 64
	maxNoteLen      = 255
)

// Award credits amount points for an earning action. With a reference id the
// call is idempotent: a second award for the same action and reference is rejected.
func (s *Service) Award(ctx context.Context, userID uint, req AwardRequest) (LedgerResult, error) {
	if !req.Action.Awardable() {
		return LedgerResult{}, &ValidationError{Field: "action", Reason: fmt.Sprintf("%q cannot be awarded", req.Action)}
	}
	ref, note, err := checkLedgerInput(req.Amount, req.ReferenceID, req.Note)
	if err != nil {
		return LedgerResult{}, err
	}

	res, err := s.post(ctx, userID, req.Action, req.Amount, ref, note)
	if err != nil {
		return LedgerResult{}, err
	}
	s.metrics.RecordAward(req.Action, req.Amount)
	return res, nil
}

// Redeem debits amount points. It fails with ErrInsufficientPoints, leaving the
// account untouched, when the balance is lower than amount.
func (s *Service) Redeem(ctx context.Context, userID uint, req RedeemRequest) (LedgerResult, error) {
	ref, note, err := checkLedgerInput(req.Amount, req.ReferenceID, req.Note)
	if err != nil {
		return LedgerResult{}, err
	}

	res, err := s.post(ctx, userID, ActionPointsRedeemed, -req.Amount, ref, note)
	if err != nil {
		return LedgerResult{}, err
	}
	s.metrics.RecordRedeem(req.Amount)
	return res, nil
}

// post applies a signed delta to the account and appends the matching history entry.
func (s *Service) post(ctx context.Context, userID uint, action Action, delta int64, ref *string, note string) (LedgerResult, error) {
	log := s.log.With(zap.Uint("user_id", userID), zap.String("action", string(action)))

	var res LedgerResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, userID)
		if err != nil {
			return err
		}

		if ref != nil {
			var n int64
			err := tx.Model(&models.PointsHistoryEntry{}).
				Where("user_id = ? AND action = ? AND reference_id = ?", userID, string(action), *ref).
				Count(&n).Error
			if err != nil {
				return fmt.Errorf("check reference: %w", err)
			}
			if n > 0 {
				return ErrDuplicateReference
			}
		}

		earned, redeemed := acct.LifetimeEarned, acct.LifetimeRedeemed
		balance := acct.CurrentPoints
		if delta >= 0 {
			if earned, err = addPoints(earned, delta); err != nil {
				return err
			}
			if balance, err = addPoints(balance, delta); err != nil {
				return err
			}
		} else {
			if balance < -delta {
				return ErrInsufficientPoints
			}
			if redeemed, err = addPoints(redeemed, -delta); err != nil {
				return err
			}
			balance += delta
		}

		if err := tx.Model(acct).Updates(map[string]interface{}{
			"current_points":    balance,
			"lifetime_earned":   earned,
			"lifetime_redeemed": redeemed,
		}).Error; err != nil {
			return fmt.Errorf("update points account: %w", err)
		}

		entry := models.PointsHistoryEntry{
			ID:           s.node.Generate().Int64(),
			UserID:       userID,
			Action:       string(action),
			Amount:       delta,
			BalanceAfter: balance,
			ReferenceID:  ref,
			Note:         note,
			CreatedAt:    s.now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append points history: %w", err)
		}

		res = LedgerResult{
			EntryID: entry.ID,
			Amount:  delta,
			Balance: Balance{
				TotalPoints:      balance,
				CurrentPoints:    balance,
				LifetimeEarned:   earned,
				LifetimeRedeemed: redeemed,
			},
		}
		return nil
	})
	if err != nil {
		if !IsRejection(err) {
			log.Error("ledger posting failed", zap.Error(err))
		}
		return LedgerResult{}, err
	}

	log.Info("ledger entry posted", zap.Int64("amount", delta), zap.Int64("balance", res.Balance.CurrentPoints))
	return res, nil
}

func checkLedgerInput(amount int64, reference, note string) (*string, string, error) {
	if amount <= 0 {
		return nil, "", &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if amount > MaxLedgerAmount {
		return nil, "", &ValidationError{Field: "amount", Reason: fmt.Sprintf("must not exceed %d", MaxLedgerAmount)}
	}
	var ref *string
	if r := strings.TrimSpace(reference); r != "" {
		if utf8.RuneCountInString(r) > maxReferenceLen {
			return nil, "", &ValidationError{Field: "reference_id", Reason: fmt.Sprintf("longer than %d characters", maxReferenceLen)}
		}
		ref = &r
	}
	return ref, truncate(strings.TrimSpace(note), maxNoteLen), nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Audit recomputes the ledger sum and compares it with the stored totals.
func (s *Service) Audit(ctx context.Context, userID uint) (AuditReport, error) {
	report := AuditReport{UserID: userID}

	var agg struct {
		Total int64
		Count int64
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := findAccount(tx, userID)
		if err != nil {
			return err
		}
		if acct != nil {
			report.CurrentPoints = acct.CurrentPoints
			report.LifetimeEarned = acct.LifetimeEarned
			report.LifetimeRedeemed = acct.LifetimeRedeemed
		}
		return tx.Model(&models.PointsHistoryEntry{}).
			Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
			Where("user_id = ?", userID).
			Scan(&agg).Error
	})
	if err != nil {
		s.log.Error("points audit failed", zap.Uint("user_id", userID), zap.Error(err))
		return AuditReport{}, fmt.Errorf("points audit: %w", err)
	}

	report.HistorySum = agg.Total
	report.EntryCount = agg.Count
	report.Consistent = report.CurrentPoints == report.LifetimeEarned-report.LifetimeRedeemed &&
		report.CurrentPoints == report.HistorySum
	if !report.Consistent {
		s.log.Warn("points ledger inconsistent",
			zap.Uint("user_id", userID),
			zap.Int64("current_points", report.CurrentPoints),
			zap.Int64("history_sum", report.HistorySum),
		)
	}
	return report, nil
}

package points

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wanderstay/staypoints/models"
)

// GetHistory returns one page of the user's ledger, most recent first.
// Limit 0 selects the default page size; larger limits are clamped.
func (s *Service) GetHistory(ctx context.Context, userID uint, q HistoryQuery) (HistoryPage, error) {
	if q.Limit < 0 {
		return HistoryPage{}, &ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	if q.Offset < 0 {
		return HistoryPage{}, &ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	if q.Action != "" && !q.Action.Valid() {
		return HistoryPage{}, &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", q.Action)}
	}

	limit := q.Limit
	if limit == 0 {
		limit = min(defaultHistoryLimit, s.maxLimit)
	}
	limit = min(limit, s.maxLimit)

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if q.Action != "" {
			db = db.Where("action = ?", string(q.Action))
		}
		return db
	}

	var (
		total int64
		rows  []models.PointsHistoryEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PointsHistoryEntry{}).Scopes(scope).Count(&total).Error; err != nil {
			return err
		}
		return tx.Scopes(scope).
			Order("created_at DESC").
			Order("id DESC").
			Limit(limit).
			Offset(q.Offset).
			Find(&rows).Error
	})
	if err != nil {
		s.log.Error("load points history failed", zap.Uint("user_id", userID), zap.Error(err))
		return HistoryPage{}, fmt.Errorf("load points history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		e := HistoryEntry{
			ID:           r.ID,
			Action:       Action(r.Action),
			Amount:       r.Amount,
			BalanceAfter: r.BalanceAfter,
			Note:         r.Note,
			CreatedAt:    r.CreatedAt,
		}
		if r.ReferenceID != nil {
			e.ReferenceID = *r.ReferenceID
		}
		entries = append(entries, e)
	}

	return HistoryPage{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  q.Offset,
		HasMore: int64(q.Offset+len(entries)) < total,
	}, nil
}

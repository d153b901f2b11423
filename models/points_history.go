package models

import "time"

// PointsHistoryEntry is an immutable record of one point-affecting action.
// ReferenceID is nullable so the (user, action, reference) unique index only binds referenced entries.
type PointsHistoryEntry struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID       uint      `gorm:"not null;index:idx_history_user_created,priority:1;uniqueIndex:idx_history_reference,priority:1" json:"user_id"`
	Action       string    `gorm:"size:32;not null;index;uniqueIndex:idx_history_reference,priority:2" json:"action"`
	Amount       int64     `gorm:"not null" json:"amount"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	ReferenceID  *string   `gorm:"size:64;uniqueIndex:idx_history_reference,priority:3" json:"reference_id,omitempty"`
	Note         string    `gorm:"size:255" json:"note,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index:idx_history_user_created,priority:2" json:"created_at"`
}

func (PointsHistoryEntry) TableName() string {
	return "points_history"
}

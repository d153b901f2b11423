package models

import "time"

// PointsAccount holds the running point totals of one user.
// CurrentPoints always equals LifetimeEarned - LifetimeRedeemed.
type PointsAccount struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentPoints    int64     `gorm:"not null;default:0" json:"current_points"`
	LifetimeEarned   int64     `gorm:"not null;default:0" json:"lifetime_earned"`
	LifetimeRedeemed int64     `gorm:"not null;default:0" json:"lifetime_redeemed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (PointsAccount) TableName() string {
	return "points_accounts"
}

package models

import "time"

// CheckInStreak tracks consecutive daily check-ins for a user.
// LastCheckInDate is a calendar date formatted as 2006-01-02; string equality avoids
// timezone conversion by the drivers.
type CheckInStreak struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak   int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak   int       `gorm:"not null;default:0" json:"longest_streak"`
	LastCheckInDate string    `gorm:"size:10;not null" json:"last_check_in_date"`
	TotalCheckIns   int64     `gorm:"not null;default:0" json:"total_check_ins"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (CheckInStreak) TableName() string {
	return "check_in_streaks"
}

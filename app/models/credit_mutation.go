package models

import "time"

const (
	CreditDirectionAdd    = "add"
	CreditDirectionRemove = "remove"
)

// CreditMutation records every add/remove call made against the backend
// ledger, successful or not.
type CreditMutation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Direction string    `gorm:"type:varchar(10);not null" json:"direction"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Reference string    `gorm:"type:varchar(191);default:'';index" json:"reference"`
	Succeeded bool      `gorm:"default:false;index" json:"succeeded"`
	Message   string    `gorm:"type:text" json:"message"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

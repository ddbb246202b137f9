package models

import "time"

// ProviderAccount links an identity-provider login to the email used to
// resolve the backend user. Tokens are not kept.
type ProviderAccount struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Provider       string     `gorm:"index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string     `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	Email          string     `gorm:"type:varchar(200);index" json:"email"`
	Name           string     `gorm:"type:varchar(150);default:''" json:"name"`
	LastLoginAt    *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

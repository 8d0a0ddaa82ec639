package domain

import "time"

type LocalCredential struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    string    `gorm:"uniqueIndex;size:36;not null" json:"account_id"`
	PasswordHash string    `gorm:"size:1024;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

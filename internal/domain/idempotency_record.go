package domain

import "time"

// IdempotencyRecord remembers the response to a keyed write so a retried
// request can be answered without repeating it.
type IdempotencyRecord struct {
	ID             uint   `gorm:"primaryKey"`
	Scope          string `gorm:"size:64;not null;uniqueIndex:idx_idempotency_scope_key,priority:1"`
	IdempotencyKey string `gorm:"size:128;not null;uniqueIndex:idx_idempotency_scope_key,priority:2"`
	Fingerprint    string `gorm:"size:64;not null"`
	Status         string `gorm:"size:16;not null"`
	ResponseStatus int    `gorm:"not null;default:0"`
	ResponseBody   []byte
	ContentType    string    `gorm:"size:128;not null;default:''"`
	ExpiresAt      time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

package authentication

import (
	"time"

	"gorm.io/gorm"
)

// RefreshTokenRecord marks a refresh token as still alive. A refresh token is
// only honored while its record exists: consuming the record revokes the
// token regardless of signature validity. Records are never updated in
// place; rotation deletes the old row and inserts a new one.
type RefreshTokenRecord struct {
	gorm.Model
	RotationID string    `gorm:"uniqueIndex;not null"`
	UserID     string    `gorm:"index;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

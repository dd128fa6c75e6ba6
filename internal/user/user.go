package user

import (
	"gorm.io/gorm"
)

// User is a stored account with a bcrypt password hash.
type User struct {
	gorm.Model
	// Username (unique)
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	// Password hash (hidden from JSON)
	Password string `json:"-"`
}

// Identity is the authenticated principal handed to the token layer.
// It is deliberately opaque: the auth core never sees credentials.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func NewUser(username, passwordHash string) *User {
	return &User{
		Username: username,
		Password: passwordHash,
	}
}

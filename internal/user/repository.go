package user

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

var (
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserNotCreated        = errors.New("user not created")
	ErrUnresponsiveDatabase  = errors.New("error occurred during reading from users table")
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	ReadByUsername(ctx context.Context, username string) (*User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
			strings.Contains(pgErr.ConstraintName, "username") {
			return ErrUsernameAlreadyExists
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameAlreadyExists
		}
		return ErrUserNotCreated
	}
	return nil
}

func (r *userRepository) ReadByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Where("deleted_at IS NULL").
		First(&user).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, ErrUnresponsiveDatabase
	}

	return &user, nil
}

package authentication

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

var (
	ErrRecordNotFoundByGivenRotationID = errors.New("record not found by given rotation id")
	ErrRotationIDAlreadyExists         = errors.New("rotation id already exists")
	ErrUnresponsiveDatabase            = errors.New("error occurred during writing to refresh token records table")
)

type RecordRepository interface {
	Create(ctx context.Context, record *RefreshTokenRecord) error
	ReadByRotationID(ctx context.Context, rotationID string) (*RefreshTokenRecord, error)
	// Consume deletes the record for rotationID and reports whether it
	// existed. The delete is a single conditional statement so that two
	// concurrent refreshes over the same rotation id can never both win.
	Consume(ctx context.Context, rotationID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, record *RefreshTokenRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrRotationIDAlreadyExists
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRotationIDAlreadyExists
		}
		return ErrUnresponsiveDatabase
	}
	return nil
}

func (r *recordRepository) ReadByRotationID(ctx context.Context, rotationID string) (*RefreshTokenRecord, error) {
	var record RefreshTokenRecord
	err := r.db.WithContext(ctx).
		Where("rotation_id = ?", rotationID).
		First(&record).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFoundByGivenRotationID
	}
	if err != nil {
		return nil, ErrUnresponsiveDatabase
	}

	return &record, nil
}

func (r *recordRepository) Consume(ctx context.Context, rotationID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("rotation_id = ?", rotationID).
		Unscoped().
		Delete(&RefreshTokenRecord{})
	if res.Error != nil {
		return false, ErrUnresponsiveDatabase
	}
	return res.RowsAffected > 0, nil
}

func (r *recordRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Unscoped().
		Delete(&RefreshTokenRecord{})
	if res.Error != nil {
		return 0, ErrUnresponsiveDatabase
	}
	return res.RowsAffected, nil
}

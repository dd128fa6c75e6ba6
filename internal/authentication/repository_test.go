package authentication

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and stable
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&RefreshTokenRecord{}))
	return db
}

func TestRecordRepositoryCreateAndRead(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t))
	ctx := context.Background()

	rec := &RefreshTokenRecord{
		RotationID: "rot-1",
		UserID:     "user-1",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.ReadByRotationID(ctx, "rot-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)

	_, err = repo.ReadByRotationID(ctx, "rot-unknown")
	require.ErrorIs(t, err, ErrRecordNotFoundByGivenRotationID)
}

func TestRecordRepositoryCreateDuplicateRotationID(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t))
	ctx := context.Background()

	rec := &RefreshTokenRecord{RotationID: "rot-dup", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, rec))

	dup := &RefreshTokenRecord{RotationID: "rot-dup", UserID: "user-2", ExpiresAt: time.Now().Add(time.Hour)}
	require.ErrorIs(t, repo.Create(ctx, dup), ErrRotationIDAlreadyExists)
}

func TestRecordRepositoryConsumeOnce(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t))
	ctx := context.Background()

	rec := &RefreshTokenRecord{RotationID: "rot-2", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, rec))

	consumed, err := repo.Consume(ctx, "rot-2")
	require.NoError(t, err)
	require.True(t, consumed)

	consumed, err = repo.Consume(ctx, "rot-2")
	require.NoError(t, err)
	require.False(t, consumed)

	_, err = repo.ReadByRotationID(ctx, "rot-2")
	require.ErrorIs(t, err, ErrRecordNotFoundByGivenRotationID)
}

func TestRecordRepositoryConsumeSingleWinner(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t))
	ctx := context.Background()

	rec := &RefreshTokenRecord{RotationID: "rot-race", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, rec))

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			consumed, err := repo.Consume(ctx, "rot-race")
			if err != nil {
				results <- false
				return
			}
			results <- consumed
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for consumed := range results {
		if consumed {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one concurrent consume may win")
}

func TestRecordRepositoryDeleteExpired(t *testing.T) {
	repo := NewRecordRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &RefreshTokenRecord{RotationID: "rot-stale", UserID: "u", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &RefreshTokenRecord{RotationID: "rot-live", UserID: "u", ExpiresAt: now.Add(time.Hour)}))

	purged, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	_, err = repo.ReadByRotationID(ctx, "rot-stale")
	require.ErrorIs(t, err, ErrRecordNotFoundByGivenRotationID)

	_, err = repo.ReadByRotationID(ctx, "rot-live")
	require.NoError(t, err)
}

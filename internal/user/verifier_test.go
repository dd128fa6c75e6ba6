package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yuanwb/silent-auth-service/internal/utils"
)

func newTestRepo(t *testing.T) UserRepository {
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
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}))
	return NewUserRepository(db)
}

func newTestVerifier(t *testing.T) (CredentialVerifier, UserRepository) {
	t.Helper()
	repo := newTestRepo(t)
	admin := &utils.AdminConfig{Username: "admin", Password: "sesame-street"}
	return NewCredentialVerifier(repo, admin, zap.NewNop()), repo
}

func TestVerifyAdminFromConfig(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	identity, err := verifier.Verify(context.Background(), "admin", "sesame-street")
	require.NoError(t, err)
	require.Equal(t, AdminIdentityID, identity.ID)
	require.Equal(t, "admin", identity.Username)

	_, err = verifier.Verify(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyStoredUser(t *testing.T) {
	verifier, repo := newTestVerifier(t)
	ctx := context.Background()

	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, NewUser("deckard", hash)))

	identity, err := verifier.Verify(ctx, "deckard", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "deckard", identity.Username)
	require.NotEmpty(t, identity.ID)

	_, err = verifier.Verify(ctx, "deckard", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyUnknownUserIsIndistinguishable(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	_, errUnknown := verifier.Verify(context.Background(), "ghost", "whatever")
	_, errWrongPassword := verifier.Verify(context.Background(), "admin", "wrong")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.Equal(t, errWrongPassword, errUnknown)
}

func TestRepositoryRejectsDuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	hash, err := HashPassword("some password here")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, NewUser("deckard", hash)))
	require.Error(t, repo.Create(ctx, NewUser("deckard", hash)))

	_, err = repo.ReadByUsername(ctx, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

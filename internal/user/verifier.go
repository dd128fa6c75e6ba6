package user

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yuanwb/silent-auth-service/internal/utils"
)

// ErrInvalidCredentials is returned for every failed verification, whether
// the account is unknown or the password is wrong. Callers must not be able
// to tell the two apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AdminIdentityID is the fixed identity id of the configured admin account,
// which lives in configuration rather than the users table.
const AdminIdentityID = "admin"

// CredentialVerifier resolves a username/password pair to an Identity.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*Identity, error)
}

type credentialVerifier struct {
	repo   UserRepository
	admin  *utils.AdminConfig
	logger *zap.Logger
}

// NewCredentialVerifier builds a verifier that checks the configured admin
// account first and falls back to the users table.
func NewCredentialVerifier(repo UserRepository, admin *utils.AdminConfig, logger *zap.Logger) CredentialVerifier {
	return &credentialVerifier{
		repo:   repo,
		admin:  admin,
		logger: logger,
	}
}

func (v *credentialVerifier) Verify(ctx context.Context, username, password string) (*Identity, error) {
	if v.admin != nil && v.admin.Username != "" && username == v.admin.Username {
		if password != v.admin.Password {
			return nil, ErrInvalidCredentials
		}
		return &Identity{ID: AdminIdentityID, Username: username}, nil
	}

	stored, err := v.repo.ReadByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			v.logger.Error("credential lookup failed", zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		ID:       strconv.Itoa(int(stored.ID)),
		Username: stored.Username,
	}, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

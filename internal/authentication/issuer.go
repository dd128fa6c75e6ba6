package authentication

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yuanwb/silent-auth-service/internal/user"
	"github.com/yuanwb/silent-auth-service/internal/utils"
)

// TokenPair is what a successful login or refresh hands back. ExpiresIn is
// the access token lifetime in seconds so the client can schedule its own
// renewal.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// TokenIssuer mints signed access/refresh token pairs and records the
// rotation id of every refresh token it issues.
type TokenIssuer struct {
	recordRepo      RecordRepository
	logger          *zap.Logger
	accessSecret    string
	refreshSecret   string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewTokenIssuer(
	recordRepo RecordRepository,
	logger *zap.Logger,
	accessSecret string,
	accessTTL time.Duration,
	refreshSecret string,
	refreshTTL time.Duration,
) *TokenIssuer {
	return &TokenIssuer{
		recordRepo:      recordRepo,
		logger:          logger,
		accessSecret:    accessSecret,
		refreshSecret:   refreshSecret,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
	}
}

// Issue signs a fresh token pair for identity under a new rotation id and
// inserts the matching record. A failed insert is logged but does not fail
// the issuance: the resulting record-less refresh token simply never
// validates, which fails closed.
func (i *TokenIssuer) Issue(ctx context.Context, identity *user.Identity) (*TokenPair, error) {
	accessJWT, err := utils.IssueAccessToken(
		identity.ID,
		identity.Username,
		i.accessSecret,
		i.accessTokenTTL,
	)
	if err != nil {
		return nil, err
	}

	rotationID := uuid.NewString()
	refreshJWT, err := utils.IssueRefreshToken(
		identity.ID,
		rotationID,
		i.refreshSecret,
		i.refreshTokenTTL,
	)
	if err != nil {
		return nil, err
	}

	rec := &RefreshTokenRecord{
		RotationID: rotationID,
		UserID:     identity.ID,
		ExpiresAt:  time.Now().Add(i.refreshTokenTTL),
	}
	if err := i.recordRepo.Create(ctx, rec); err != nil {
		i.logger.Error("failed to store refresh token record",
			zap.String("user_id", identity.ID),
			zap.Error(err))
	}

	return &TokenPair{
		AccessToken:  accessJWT,
		RefreshToken: refreshJWT,
		ExpiresIn:    int(i.accessTokenTTL / time.Second),
	}, nil
}

// RefreshTTL exposes the configured refresh lifetime for cookie Max-Age.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTokenTTL
}

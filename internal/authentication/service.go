package authentication

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yuanwb/silent-auth-service/internal/user"
	"github.com/yuanwb/silent-auth-service/internal/utils"
)

var (
	ErrLoginFailed         = errors.New("login failed")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

type AuthenticationService interface {
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshJWT string) (*TokenPair, error)
	// Logout revokes the presented refresh token best-effort. It never
	// fails: a broken token or an unreachable store still logs the caller
	// out as far as they can tell.
	Logout(ctx context.Context, refreshJWT string)
}

type authenticationService struct {
	verifier      user.CredentialVerifier
	recordRepo    RecordRepository
	issuer        *TokenIssuer
	logger        *zap.Logger
	refreshSecret string
}

func NewAuthenticationService(
	verifier user.CredentialVerifier,
	recordRepo RecordRepository,
	issuer *TokenIssuer,
	logger *zap.Logger,
	refreshSecret string,
) AuthenticationService {
	return &authenticationService{
		verifier:      verifier,
		recordRepo:    recordRepo,
		issuer:        issuer,
		logger:        logger,
		refreshSecret: refreshSecret,
	}
}

func (a *authenticationService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	identity, err := a.verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return nil, user.ErrInvalidCredentials
		}
		return nil, ErrLoginFailed
	}

	pair, err := a.issuer.Issue(ctx, identity)
	if err != nil {
		a.logger.Error("token issuance failed", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, ErrLoginFailed
	}
	return pair, nil
}

func (a *authenticationService) Refresh(ctx context.Context, refreshJWT string) (*TokenPair, error) {
	// 1) Signature + expiry of the presented token.
	claims, err := utils.ParseRefreshToken(refreshJWT, a.refreshSecret)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if claims.ID == "" || claims.Subject == "" {
		a.logger.Warn("refresh token missing rotation id or subject")
		return nil, ErrInvalidRefreshToken
	}

	// 2) The token is only alive while its record exists and belongs to
	// the token's subject.
	rec, err := a.recordRepo.ReadByRotationID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFoundByGivenRotationID) {
			return nil, ErrRefreshTokenRevoked
		}
		a.logger.Error("refresh record lookup failed", zap.Error(err))
		return nil, ErrLoginFailed
	}
	if rec.UserID != claims.Subject {
		a.logger.Warn("refresh token subject does not own its record",
			zap.String("rotation_id", claims.ID))
		if _, err := a.recordRepo.Consume(ctx, claims.ID); err != nil {
			a.logger.Error("cleanup of mismatched refresh record failed", zap.Error(err))
		}
		return nil, ErrRefreshTokenRevoked
	}
	if time.Now().After(rec.ExpiresAt) {
		if _, err := a.recordRepo.Consume(ctx, claims.ID); err != nil {
			a.logger.Error("cleanup of expired refresh record failed", zap.Error(err))
		}
		return nil, ErrRefreshTokenRevoked
	}

	// 3) Rotation. Consume is a single conditional delete: of two requests
	// racing on the same rotation id, exactly one sees consumed == true.
	consumed, err := a.recordRepo.Consume(ctx, claims.ID)
	if err != nil {
		a.logger.Error("refresh record consume failed", zap.Error(err))
		return nil, ErrLoginFailed
	}
	if !consumed {
		return nil, ErrRefreshTokenRevoked
	}

	// 4) New pair under a new rotation id.
	identity := &user.Identity{ID: claims.Subject, Username: claims.Subject}
	pair, err := a.issuer.Issue(ctx, identity)
	if err != nil {
		a.logger.Error("token issuance failed on refresh", zap.Error(err))
		return nil, ErrLoginFailed
	}
	return pair, nil
}

func (a *authenticationService) Logout(ctx context.Context, refreshJWT string) {
	if refreshJWT == "" {
		return
	}
	claims, err := utils.ParseRefreshToken(refreshJWT, a.refreshSecret)
	if err != nil || claims.ID == "" {
		return
	}
	if _, err := a.recordRepo.Consume(ctx, claims.ID); err != nil {
		a.logger.Error("failed to delete refresh record on logout", zap.Error(err))
	}
}

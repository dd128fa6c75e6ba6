package authentication

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yuanwb/silent-auth-service/internal/user"
)

// RefreshCookieName is the cookie carrying the refresh token. It is HttpOnly
// and scoped to the API root so the browser only sends it to the auth
// endpoints.
const RefreshCookieName = "refresh_token"

// LoginRequest is the payload for logging in.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries the access token; the rotated refresh token travels
// only in the Set-Cookie header. ExpiresIn lets the client schedule renewal.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// AuthHandler handles authentication-related HTTP endpoints.
type AuthHandler struct {
	router     *gin.RouterGroup
	service    AuthenticationService
	logger     *zap.Logger
	cookiePath string
	secure     bool
	refreshTTL time.Duration
}

// NewAuthHandler registers auth endpoints on the given router group. The
// group's base path doubles as the refresh cookie path.
func NewAuthHandler(
	router *gin.RouterGroup,
	service AuthenticationService,
	logger *zap.Logger,
	secure bool,
	refreshTTL time.Duration,
) *AuthHandler {
	h := &AuthHandler{
		router:     router,
		service:    service,
		logger:     logger,
		cookiePath: router.BasePath(),
		secure:     secure,
		refreshTTL: refreshTTL,
	}
	h.router.POST("/login", h.Login)
	h.router.POST("/refresh", h.Refresh)
	h.router.POST("/logout", h.Logout)
	return h
}

// Login godoc
// @Summary      Login
// @Description  Authenticate user, issue an access token and set the refresh cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      LoginRequest  true  "Login credentials"
// @Success      200      {object}  TokenResponse
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}
	pair, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		h.setRefreshCookie(c, pair.RefreshToken)
		c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, ExpiresIn: pair.ExpiresIn})
	case errors.Is(err, user.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		h.logger.Error("Login service failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

// Refresh godoc
// @Summary      Refresh Token
// @Description  Rotate the refresh cookie and issue a new access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  TokenResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshJWT, err := c.Cookie(RefreshCookieName)
	if err != nil || refreshJWT == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token"})
		return
	}
	pair, err := h.service.Refresh(c.Request.Context(), refreshJWT)
	switch {
	case err == nil:
		h.setRefreshCookie(c, pair.RefreshToken)
		c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, ExpiresIn: pair.ExpiresIn})
	case errors.Is(err, ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
	case errors.Is(err, ErrRefreshTokenRevoked):
		h.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token revoked"})
	default:
		h.logger.Error("Refresh service failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

// Logout godoc
// @Summary      Logout
// @Description  Revoke the refresh token (best effort) and clear the cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshJWT, err := c.Cookie(RefreshCookieName)
	if err == nil && refreshJWT != "" {
		h.service.Logout(c.Request.Context(), refreshJWT)
	}
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		RefreshCookieName,
		token,
		int(h.refreshTTL/time.Second),
		h.cookiePath,
		"",
		h.secure,
		true,
	)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, "", -1, h.cookiePath, "", h.secure, true)
}

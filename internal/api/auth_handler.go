package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"openpersona/internal/api/middleware"
	"openpersona/internal/auth"
	"openpersona/internal/config"
	"openpersona/internal/database"
	"openpersona/internal/mail"
)

const resetTokenTTL = time.Hour

// AuthHandler serves registration, login, token refresh and the password
// reset flow.
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	redisClient *redis.Client
	mailer      *mail.Mailer
	cfg         *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient *redis.Client, mailer *mail.Mailer, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		db:          db,
		authService: authService,
		redisClient: redisClient,
		mailer:      mailer,
		cfg:         cfg,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=80"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Handle   string `json:"handle" binding:"required,min=3,max=30,alphanum"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type userResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Handle string `json:"handle"`
	Plan   string `json:"plan"`
}

func toUserResponse(user *database.User) userResponse {
	return userResponse{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Handle: user.Handle,
		Plan:   user.Plan,
	}
}

// Register creates the account plus its empty profile and primary dashboard
// in one transaction, then issues a token pair.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid registration payload")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Handle = strings.ToLower(strings.TrimSpace(req.Handle))

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		middleware.LoggerFromContext(c).Error("hash password failed", "error", err)
		Internal(c, "registration failed")
		return
	}

	user := database.User{
		Name:         req.Name,
		Email:        req.Email,
		Handle:       req.Handle,
		PasswordHash: passwordHash,
		Plan:         "free",
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := database.Profile{UserID: user.ID}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		dashboard := database.Dashboard{
			UserID:     user.ID,
			Title:      req.Name,
			Slug:       req.Handle,
			Visibility: "public",
			Layout:     datatypes.JSON([]byte("{}")),
			IsPrimary:  true,
		}
		return tx.Create(&dashboard).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "email or handle already in use")
			return
		}
		middleware.LoggerFromContext(c).Error("register failed", "error", err)
		Internal(c, "registration failed")
		return
	}

	tokens, err := h.authService.GenerateTokenPair(user.ID, user.Handle)
	if err != nil {
		middleware.LoggerFromContext(c).Error("token generation failed", "error", err)
		Internal(c, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":         toUserResponse(&user),
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// Login authenticates a user. Attempts are rate limited per client IP and a
// run of failures locks the account's email for a cooldown window.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid login payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()

	rateKey := fmt.Sprintf("login_rate:%s", c.ClientIP())
	if count, err := bumpCounter(ctx, h.redisClient, rateKey, time.Hour); err != nil {
		middleware.LoggerFromContext(c).Warn("login rate counter unavailable", "error", err)
	} else if count > int64(h.cfg.Auth.LoginRatePerHr) {
		Error(c, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	lockKey := fmt.Sprintf("login_lock:%s", req.Email)
	if locked, err := h.redisClient.Exists(ctx, lockKey).Result(); err == nil && locked > 0 {
		Error(c, http.StatusTooManyRequests, "account temporarily locked, try again later")
		return
	}

	var user database.User
	err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.recordFailedLogin(c, req.Email)
		Unauthorized(c)
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("login lookup failed", "error", err)
		Internal(c, "login failed")
		return
	}

	if user.IsBlocked {
		Forbidden(c, "account is blocked")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.recordFailedLogin(c, req.Email)
		Unauthorized(c)
		return
	}

	_ = h.redisClient.Del(ctx, fmt.Sprintf("login_fail:%s", req.Email)).Err()

	tokens, err := h.authService.GenerateTokenPair(user.ID, user.Handle)
	if err != nil {
		middleware.LoggerFromContext(c).Error("token generation failed", "error", err)
		Internal(c, "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         toUserResponse(&user),
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// recordFailedLogin bumps the per-email failure counter and installs the
// lock key once the threshold is crossed.
func (h *AuthHandler) recordFailedLogin(c *gin.Context, email string) {
	ctx := c.Request.Context()
	failKey := fmt.Sprintf("login_fail:%s", email)
	count, err := bumpCounter(ctx, h.redisClient, failKey, h.cfg.Auth.LoginLockTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Warn("login failure counter unavailable", "error", err)
		return
	}
	if count >= int64(h.cfg.Auth.LoginLockAfter) {
		lockKey := fmt.Sprintf("login_lock:%s", email)
		_ = h.redisClient.Set(ctx, lockKey, "1", h.cfg.Auth.LoginLockTTL).Err()
	}
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid refresh payload")
		return
	}

	claims, err := h.authService.ValidateToken(req.RefreshToken)
	if err != nil || claims.TokenType != "refresh" {
		Unauthorized(c)
		return
	}

	var user database.User
	err = h.db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Unauthorized(c)
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("refresh lookup failed", "error", err)
		Internal(c, "refresh failed")
		return
	}
	if user.IsBlocked {
		Forbidden(c, "account is blocked")
		return
	}

	tokens, err := h.authService.GenerateTokenPair(user.ID, user.Handle)
	if err != nil {
		middleware.LoggerFromContext(c).Error("token generation failed", "error", err)
		Internal(c, "refresh failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// Logout acknowledges the client discarding its tokens. Tokens are stateless
// so there is nothing to revoke server side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetUint("userID")

	var user database.User
	err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Unauthorized(c)
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("me lookup failed", "error", err)
		Internal(c, "lookup failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(&user)})
}

// ForgotPassword issues a single-use reset token and emails the reset link.
// The response is the same whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	accepted := func() {
		c.JSON(http.StatusAccepted, gin.H{"message": "if the account exists, a reset email is on its way"})
	}

	ctx := c.Request.Context()
	var user database.User
	err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		accepted()
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("forgot password lookup failed", "error", err)
		accepted()
		return
	}

	token, err := newResetToken()
	if err != nil {
		middleware.LoggerFromContext(c).Error("reset token generation failed", "error", err)
		accepted()
		return
	}

	reset := database.PasswordReset{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := h.db.WithContext(ctx).Create(&reset).Error; err != nil {
		middleware.LoggerFromContext(c).Error("reset token persist failed", "error", err)
		accepted()
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(h.cfg.API.PortfolioBase, "/"), token)
	if err := h.mailer.SendPasswordReset(user.Email, user.Name, resetURL); err != nil {
		middleware.LoggerFromContext(c).Error("reset mail failed", "error", err)
	}

	accepted()
}

// ResetPassword consumes a reset token and stores the new password hash.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid payload")
		return
	}

	ctx := c.Request.Context()

	var reset database.PasswordReset
	err := h.db.WithContext(ctx).Where("token = ?", req.Token).First(&reset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		BadRequest(c, "invalid or expired reset token")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("reset lookup failed", "error", err)
		Internal(c, "reset failed")
		return
	}
	if reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		BadRequest(c, "invalid or expired reset token")
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		middleware.LoggerFromContext(c).Error("hash password failed", "error", err)
		Internal(c, "reset failed")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.User{}).
			Where("id = ?", reset.UserID).
			Update("password_hash", passwordHash).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&reset).Update("used_at", &now).Error
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("reset apply failed", "error", err)
		Internal(c, "reset failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

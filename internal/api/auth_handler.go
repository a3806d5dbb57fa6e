package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/api/middleware"
	"github.com/BartekTra/portfolioCreator-sub000/internal/auth"
	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/tasks"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// AuthHandler 处理注册、确认、登录、刷新与退出。
type AuthHandler struct {
	db                    *gorm.DB
	authService           *auth.AuthService
	redis                 redis.UniversalClient
	asynqClient           *asynq.Client
	logger                *slog.Logger
	requireConfirmation   bool
	loginRateLimitPerHour int
	loginLockThreshold    int
	loginLockTTL          time.Duration
	cookieDomain          string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	asynqClient *asynq.Client,
	logger *slog.Logger,
	requireConfirmation bool,
	loginRateLimitPerHour int,
	loginLockThreshold int,
	loginLockTTL time.Duration,
	cookieDomain string,
) *AuthHandler {
	return &AuthHandler{
		db:                    db,
		authService:           authService,
		redis:                 redisClient,
		asynqClient:           asynqClient,
		logger:                logger,
		requireConfirmation:   requireConfirmation,
		loginRateLimitPerHour: loginRateLimitPerHour,
		loginLockThreshold:    loginLockThreshold,
		loginLockTTL:          loginLockTTL,
		cookieDomain:          cookieDomain,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=128"`
}

// Register 创建新账号。开启邮箱确认时账号先处于未确认状态，
// 确认邮件经任务队列异步投递，注册请求不等待 SMTP。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	var existing database.Account
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("register conflict: account already exists")
		Conflict(c, "email already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	account := database.Account{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(req.Name),
		Confirmed:    !h.requireConfirmation,
	}
	if h.requireConfirmation {
		account.ConfirmationToken = uuid.NewString()
	}

	if err := h.db.WithContext(ctx).Create(&account).Error; err != nil {
		logger.Error("create account failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if h.requireConfirmation && h.asynqClient != nil {
		task, err := tasks.NewConfirmationEmailTask(account.ID, middleware.GetCorrelationID(c))
		if err != nil {
			logger.Error("create confirmation task failed", slog.Any("error", err))
		} else if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
			logger.Error("enqueue confirmation task failed", slog.Any("error", err))
		}
	}

	logger.Info("account registered", slog.Uint64("account_id", uint64(account.ID)))
	c.JSON(http.StatusCreated, gin.H{
		"id":                    account.ID,
		"email":                 account.Email,
		"confirmation_required": h.requireConfirmation,
	})
}

// Confirm 消费确认链接，激活账号。令牌一次性有效。
func (h *AuthHandler) Confirm(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		BadRequest(c, "missing confirmation token")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	var account database.Account
	if err := h.db.WithContext(ctx).
		Where("confirmation_token = ? AND confirmed = ?", token, false).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "confirmation token not found")
			return
		}
		logger.Error("confirm lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Model(&account).Updates(map[string]any{
		"confirmed":          true,
		"confirmation_token": "",
	}).Error; err != nil {
		logger.Error("confirm update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("account confirmed", slog.Uint64("account_id", uint64(account.ID)))
	c.JSON(http.StatusOK, gin.H{"confirmed": true})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	// 速率限制：每 IP+邮箱 每小时固定次数。
	if h.redis != nil {
		rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
		count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
		if err != nil {
			count = 0
		}
		if h.loginRateLimitPerHour > 0 && count > int64(h.loginRateLimitPerHour) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		// 锁定检查
		lockKey := "lock:login:" + email
		if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
			return
		}
	}

	var account database.Account
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: account not found")
			_ = h.incrementLoginFail(ctx, email)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, account.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("account_id", uint64(account.ID)))
		_ = h.incrementLoginFail(ctx, email)
		Unauthorized(c)
		return
	}

	if h.requireConfirmation && !account.Confirmed {
		logger.Info("login blocked: email not confirmed", slog.Uint64("account_id", uint64(account.ID)))
		Forbidden(c, "email not confirmed")
		return
	}

	// 登录成功：清理失败计数
	if h.redis != nil {
		_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()
	}

	tokenPair, err := h.authService.GenerateTokenPair(account.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌同时作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		logger.Info("refresh token rejected", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var account database.Account
	if err := h.db.WithContext(ctx).First(&account, claims.AccountID).Error; err != nil {
		logger.Info("refresh account not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(claims.AccountID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 旋转旧刷新令牌，防止重复使用。
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("logout token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		logger.Info("logout token rejected", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 清除 Cookie。
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
	})
	c.Status(http.StatusOK)
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	cookie := &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	}
	http.SetCookie(c.Writer, cookie)
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) getCookieDomain() string { return strings.TrimSpace(h.cookieDomain) }

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) error {
	if h.redis == nil || h.loginLockThreshold <= 0 {
		return nil
	}
	failKey := "lock:login:fail:" + email
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.loginLockTTL).Err()
	}
	if count >= int64(h.loginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+email, "1", h.loginLockTTL).Err()
	}
	return nil
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/timestamp-store/internal/cache"
	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength  = 8
	referralCodeLength = 8
	referralCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ReferralRewardQueue 邀请返现异步入账
type ReferralRewardQueue interface {
	Enabled() bool
	EnqueueReferralReward(referrerID, referredUserID uint) error
}

// PendingRegistration 待验证的注册会话
type PendingRegistration struct {
	UserID     uint      `json:"user_id"`
	Email      string    `json:"email"`
	OTPHash    string    `json:"otp_hash"`
	ReferrerID uint      `json:"referrer_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RegisterInput 注册参数
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	ReferralCode string
}

// RegistrationStarted 注册第一步的结果，OTP 交由调用方投递
type RegistrationStarted struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	OTP       string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg       *config.Config
	userRepo  repository.UserRepository
	wallets   *WalletService
	referrals *ReferralService
	queue     ReferralRewardQueue
	store     SessionStore
	now       func() time.Time
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository, wallets *WalletService, referrals *ReferralService, queue ReferralRewardQueue, store SessionStore) *UserAuthService {
	return &UserAuthService{
		cfg:       cfg,
		userRepo:  userRepo,
		wallets:   wallets,
		referrals: referrals,
		queue:     queue,
		store:     store,
		now:       time.Now,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(resolveJWTExpireHours(s.cfg.UserJWT)) * time.Hour)
	claims := UserJWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate 校验 Token 并确认账号仍然有效，优先读取缓存的鉴权快照
func (s *UserAuthService) Authenticate(ctx context.Context, tokenString string) (*UserJWTClaims, error) {
	claims, err := s.ParseUserJWT(tokenString)
	if err != nil {
		return nil, err
	}
	state, found, err := cache.GetUserAuthState(ctx, claims.UserID)
	if err != nil {
		logger.FromContext(ctx).Warnw("user_auth_state_cache_read_failed", "user_id", claims.UserID, "error", err)
	}
	if !found || state == nil {
		user, err := s.userRepo.GetByID(claims.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrInvalidToken
		}
		state = cache.BuildUserAuthState(user)
		_ = cache.SetUserAuthState(ctx, state)
	}
	if state.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	if !state.IsActive || state.Status == constants.UserStatusDisabled {
		return nil, ErrAccountDisabled
	}
	return claims, nil
}

// StartRegistration 创建未激活账号并生成 OTP
func (s *UserAuthService) StartRegistration(ctx context.Context, input RegisterInput) (*RegistrationStarted, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len([]rune(input.Password)) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	var referrerID uint
	if code := strings.ToUpper(strings.TrimSpace(input.ReferralCode)); code != "" {
		referrer, err := s.userRepo.GetByReferralCode(code)
		if err != nil {
			return nil, err
		}
		if referrer == nil || !referrer.IsVerified {
			return nil, ErrInvalidReferralCode
		}
		referrerID = referrer.ID
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user != nil && user.IsVerified {
		return nil, ErrEmailRegistered
	}
	if user == nil {
		user = &models.User{Email: email, Status: constants.UserStatusActive}
	}
	if referrerID != 0 && referrerID == user.ID {
		return nil, ErrSelfReferral
	}
	user.PasswordHash = string(passwordHash)
	user.FirstName = firstName
	user.LastName = lastName
	user.IsActive = false
	user.IsVerified = false
	user.OTPCreatedAt = &now
	if user.ReferralCode == "" {
		code, err := s.generateReferralCode()
		if err != nil {
			return nil, err
		}
		user.ReferralCode = code
	}
	if user.ID == 0 {
		err = s.userRepo.Create(user)
	} else {
		err = s.userRepo.Update(user)
	}
	if err != nil {
		if errors.Is(normalizePersistenceError(err), ErrConflictRetry) {
			return nil, ErrEmailRegistered
		}
		return nil, err
	}

	otp := randNumeric(s.otpLength())
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.otpTTL())
	token := uuid.NewString()
	pending := PendingRegistration{
		UserID:     user.ID,
		Email:      email,
		OTPHash:    string(otpHash),
		ReferrerID: referrerID,
		ExpiresAt:  expiresAt,
	}
	if err := s.store.Set(ctx, registrationKey(token), pending, s.otpTTL()); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debugw("registration_otp_issued", "user_id", user.ID, "email", email, "otp", otp)
	return &RegistrationStarted{Token: token, Email: email, OTP: otp, ExpiresAt: expiresAt}, nil
}

// VerifyRegistration 校验 OTP，激活账号并创建钱包
func (s *UserAuthService) VerifyRegistration(ctx context.Context, token, otp string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrRegistrationNotFound
	}
	var pending PendingRegistration
	found, err := s.store.Get(ctx, registrationKey(token), &pending)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRegistrationNotFound
	}
	if !s.now().Before(pending.ExpiresAt) {
		_ = s.store.Clear(ctx, registrationKey(token))
		return nil, ErrOTPExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(pending.OTPHash), []byte(strings.TrimSpace(otp))); err != nil {
		return nil, ErrInvalidOTP
	}

	user, err := s.userRepo.GetByID(pending.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrRegistrationNotFound
	}
	if user.IsVerified {
		_ = s.store.Clear(ctx, registrationKey(token))
		return user, nil
	}

	user.IsActive = true
	user.IsVerified = true
	user.OTPCreatedAt = nil
	if pending.ReferrerID != 0 {
		referrerID := pending.ReferrerID
		user.ReferredByID = &referrerID
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, normalizePersistenceError(err)
	}
	if _, err := s.wallets.GetWallet(user.ID); err != nil {
		return nil, err
	}
	_ = s.store.Clear(ctx, registrationKey(token))

	if pending.ReferrerID != 0 {
		s.dispatchReferralReward(ctx, pending.ReferrerID, user.ID)
	}
	logger.FromContext(ctx).Infow("user_registered", "user_id", user.ID, "referred_by", pending.ReferrerID)
	return user, nil
}

// dispatchReferralReward 队列可用时异步入账，否则同步入账；失败只记录日志
func (s *UserAuthService) dispatchReferralReward(ctx context.Context, referrerID, referredUserID uint) {
	log := logger.FromContext(ctx)
	if s.queue != nil && s.queue.Enabled() {
		err := s.queue.EnqueueReferralReward(referrerID, referredUserID)
		if err == nil {
			return
		}
		log.Warnw("referral_reward_enqueue_failed", "referrer_id", referrerID, "referred_user_id", referredUserID, "error", err)
	}
	if s.referrals == nil {
		return
	}
	if _, err := s.referrals.CreateReward(referrerID, referredUserID); err != nil {
		log.Errorw("referral_reward_failed", "referrer_id", referrerID, "referred_user_id", referredUserID, "error", err)
	}
}

// Login 用户登录
func (s *UserAuthService) Login(email, password string) (*models.User, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, "", time.Time{}, ErrAccountNotVerified
	}
	if !user.IsActive || user.Status == constants.UserStatusDisabled {
		return nil, "", time.Time{}, ErrAccountDisabled
	}
	token, expiresAt, err := s.GenerateUserJWT(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	now := s.now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return user, token, expiresAt, nil
}

// CleanupUnverified 删除 OTP 已过期仍未验证的账号
func (s *UserAuthService) CleanupUnverified(now time.Time) (int64, error) {
	deleted, err := s.userRepo.DeleteExpiredUnverified(now.Add(-s.otpTTL()))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Infow("unverified_accounts_deleted", "count", deleted)
	}
	return deleted, nil
}

func (s *UserAuthService) otpTTL() time.Duration {
	minutes := s.cfg.Session.OTPExpireMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

func (s *UserAuthService) otpLength() int {
	if s.cfg.Session.OTPLength < 4 {
		return 6
	}
	return s.cfg.Session.OTPLength
}

func (s *UserAuthService) generateReferralCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := randomReferralCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := s.userRepo.GetByReferralCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrConflictRetry
}

func randomReferralCode(length int) (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(referralCodeChars)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralCodeChars[n.Int64()])
	}
	return b.String(), nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

func resolveJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

package public

import (
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	FirstName    string `json:"first_name" binding:"required,max=50"`
	LastName     string `json:"last_name" binding:"max=50"`
	ReferralCode string `json:"referral_code" binding:"max=20"`

	CaptchaPayload shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// Register 注册第一步：创建未激活账号并下发 OTP
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	if !shared.VerifyCaptcha(c, h.CaptchaService, constants.CaptchaSceneRegister, req.CaptchaPayload) {
		return
	}
	started, err := h.UserAuthService.StartRegistration(c.Request.Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	data := gin.H{
		"token":      started.Token,
		"email":      started.Email,
		"expires_at": started.ExpiresAt,
	}
	// 未接入邮件投递，调试模式直接返回 OTP
	if h.Config.Server.Mode == "debug" {
		data["otp"] = started.OTP
	}
	response.SuccessWithMsg(c, "OTP sent to your email", data)
}

// VerifyRegistrationRequest OTP 验证请求
type VerifyRegistrationRequest struct {
	Token string `json:"token" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyRegistration 注册第二步：校验 OTP 并激活账号
func (h *Handler) VerifyRegistration(c *gin.Context) {
	var req VerifyRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	user, err := h.UserAuthService.VerifyRegistration(c.Request.Context(), req.Token, req.OTP)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	token, expiresAt, err := h.UserAuthService.GenerateUserJWT(user)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "Failed to create session", err)
		return
	}
	response.SuccessWithMsg(c, "Account verified successfully", gin.H{
		"user":       user,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`

	CaptchaPayload shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// Login 用户登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	if !shared.VerifyCaptcha(c, h.CaptchaService, constants.CaptchaSceneLogin, req.CaptchaPayload) {
		return
	}
	user, token, expiresAt, err := h.UserAuthService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err, authErrorRules)
		return
	}
	response.Success(c, gin.H{
		"user":       user,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// GetReferrals 邀请返现记录
func (h *Handler) GetReferrals(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserRepo.GetByID(uid)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "Failed to load referrals", err)
		return
	}
	if user == nil {
		respondServiceError(c, service.ErrUserNotFound)
		return
	}
	rewards, err := h.ReferralService.ListRewards(uid)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "Failed to load referrals", err)
		return
	}
	response.Success(c, gin.H{
		"referral_code": user.ReferralCode,
		"rewards":       rewards,
	})
}

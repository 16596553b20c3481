package admin

import (
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`

	CaptchaPayload shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// Login 管理员登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	if !shared.VerifyCaptcha(c, h.CaptchaService, constants.CaptchaSceneAdminLogin, req.CaptchaPayload) {
		return
	}
	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err, adminAuthErrorRules...)
		return
	}
	requestLog(c).Infow("admin_login_succeeded", "admin_id", admin.ID)
	response.Success(c, gin.H{
		"admin":      admin,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword 修改密码，成功后需重新登录
func (h *Handler) ChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err, adminAuthErrorRules...)
		return
	}
	response.SuccessWithMsg(c, "Password updated, please log in again", nil)
}

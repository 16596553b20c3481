package shared

import (
	"strings"

	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

// CaptchaPayloadRequest 验证码请求载荷，场景未开启时可为空
type CaptchaPayloadRequest struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// ToServicePayload 转换为 service 层验证码载荷。
func (r CaptchaPayloadRequest) ToServicePayload() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:   strings.TrimSpace(r.CaptchaID),
		CaptchaCode: strings.TrimSpace(r.CaptchaCode),
	}
}

// VerifyCaptcha 校验失败时直接写入响应并返回 false。
func VerifyCaptcha(c *gin.Context, captcha *service.CaptchaService, scene string, payload CaptchaPayloadRequest) bool {
	if captcha == nil {
		return true
	}
	if err := captcha.Verify(scene, payload.ToServicePayload()); err != nil {
		RespondServiceError(c, err)
		return false
	}
	return true
}

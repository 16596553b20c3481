package public

import (
	"errors"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCaptchaConfig 验证码提供方与场景开关
func (h *Handler) GetCaptchaConfig(c *gin.Context) {
	if h.CaptchaService == nil {
		response.Success(c, service.CaptchaPublicSetting{Provider: constants.CaptchaProviderNone})
		return
	}
	response.Success(c, h.CaptchaService.PublicSetting())
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondServiceError(c, service.ErrCaptchaDisabled)
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		if errors.Is(err, service.ErrCaptchaDisabled) {
			respondServiceError(c, err)
			return
		}
		shared.RespondError(c, response.CodeInternal, "Failed to generate captcha", err)
		return
	}
	response.Success(c, challenge)
}

package service

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/constants"

	"github.com/mojocn/base64Captcha"
)

// 去掉易混淆的 0/o、1/l/i，答案统一小写
const captchaCharset = "23456789abcdefghjkmnpqrstuvwxyz"

// CaptchaVerifyPayload 登录注册请求携带的验证码
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicSetting 下发给前端的开关
type CaptchaPublicSetting struct {
	Provider string          `json:"provider"`
	Scenes   map[string]bool `json:"scenes"`
}

// CaptchaService 图片验证码：按场景开关决定是否校验，答案一次性使用
type CaptchaService struct {
	cfg   config.CaptchaConfig
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务，store 为空时使用进程内存储
func NewCaptchaService(cfg config.CaptchaConfig, store base64Captcha.Store) *CaptchaService {
	cfg = normalizeCaptchaConfig(cfg)
	if store == nil {
		store = base64Captcha.NewMemoryStore(cfg.Image.MaxStore, time.Duration(cfg.Image.ExpireSeconds)*time.Second)
	}
	return &CaptchaService{cfg: cfg, store: store}
}

// PublicSetting 当前提供方与各场景开关
func (s *CaptchaService) PublicSetting() CaptchaPublicSetting {
	return CaptchaPublicSetting{
		Provider: s.cfg.Provider,
		Scenes: map[string]bool{
			constants.CaptchaSceneLogin:      s.SceneEnabled(constants.CaptchaSceneLogin),
			constants.CaptchaSceneRegister:   s.SceneEnabled(constants.CaptchaSceneRegister),
			constants.CaptchaSceneAdminLogin: s.SceneEnabled(constants.CaptchaSceneAdminLogin),
		},
	}
}

// SceneEnabled 场景是否需要验证码
func (s *CaptchaService) SceneEnabled(scene string) bool {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return false
	}
	switch scene {
	case constants.CaptchaSceneLogin:
		return s.cfg.Scenes.Login
	case constants.CaptchaSceneRegister:
		return s.cfg.Scenes.Register
	case constants.CaptchaSceneAdminLogin:
		return s.cfg.Scenes.AdminLogin
	default:
		return false
	}
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaDisabled
	}
	image := s.cfg.Image
	driver := base64Captcha.NewDriverString(
		image.Height,
		image.Width,
		image.NoiseCount,
		image.ShowLine,
		image.Length,
		captchaCharset,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	id, b64s, _, err := base64Captcha.NewCaptcha(driver, s.store).Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验；场景未开启直接通过，无论对错答案都会失效
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if !s.SceneEnabled(scene) {
		return nil
	}
	id := strings.TrimSpace(payload.CaptchaID)
	code := strings.ToLower(strings.TrimSpace(payload.CaptchaCode))
	if id == "" || code == "" {
		return ErrCaptchaRequired
	}
	if !s.store.Verify(id, code, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider != constants.CaptchaProviderImage {
		cfg.Provider = constants.CaptchaProviderNone
	}
	image := &cfg.Image
	if image.Length < 4 || image.Length > 8 {
		image.Length = 5
	}
	if image.Width < 100 || image.Width > 480 {
		image.Width = 240
	}
	if image.Height < 40 || image.Height > 160 {
		image.Height = 80
	}
	if image.NoiseCount < 0 {
		image.NoiseCount = 0
	}
	if image.ShowLine < 0 {
		image.ShowLine = 0
	}
	if image.ExpireSeconds < 30 || image.ExpireSeconds > 3600 {
		image.ExpireSeconds = 300
	}
	if image.MaxStore < 100 {
		image.MaxStore = 10240
	}
	return cfg
}

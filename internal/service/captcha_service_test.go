package service

import (
	"strings"
	"testing"
	"time"

	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/constants"

	"github.com/mojocn/base64Captcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageCaptcha(t *testing.T, scenes config.CaptchaSceneConfig) (*CaptchaService, base64Captcha.Store) {
	t.Helper()
	store := base64Captcha.NewMemoryStore(100, time.Minute)
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "Image", Scenes: scenes}, store)
	return svc, store
}

func TestCaptchaDisabledByDefault(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Scenes: config.CaptchaSceneConfig{Login: true}}, nil)

	assert.False(t, svc.SceneEnabled(constants.CaptchaSceneLogin), "scenes need the image provider")
	assert.NoError(t, svc.Verify(constants.CaptchaSceneLogin, CaptchaVerifyPayload{}))
	_, err := svc.GenerateImageChallenge()
	assert.ErrorIs(t, err, ErrCaptchaDisabled)
	assert.Equal(t, constants.CaptchaProviderNone, svc.PublicSetting().Provider)
}

func TestCaptchaVerifyIsSingleUse(t *testing.T) {
	svc, store := newImageCaptcha(t, config.CaptchaSceneConfig{Login: true})

	challenge, err := svc.GenerateImageChallenge()
	require.NoError(t, err)
	require.NotEmpty(t, challenge.CaptchaID)
	assert.True(t, strings.HasPrefix(challenge.ImageBase64, "data:image/png;base64,"))

	answer := store.Get(challenge.CaptchaID, false)
	require.Len(t, answer, 5)

	err = svc.Verify(constants.CaptchaSceneLogin, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID})
	assert.ErrorIs(t, err, ErrCaptchaRequired)

	err = svc.Verify(constants.CaptchaSceneLogin, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: " " + strings.ToUpper(answer) + " "})
	assert.NoError(t, err, "answers are case-insensitive")

	err = svc.Verify(constants.CaptchaSceneLogin, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: answer})
	assert.ErrorIs(t, err, ErrCaptchaInvalid, "a used captcha cannot be replayed")
}

func TestCaptchaWrongAnswerBurnsChallenge(t *testing.T) {
	svc, store := newImageCaptcha(t, config.CaptchaSceneConfig{Register: true})

	challenge, err := svc.GenerateImageChallenge()
	require.NoError(t, err)
	answer := store.Get(challenge.CaptchaID, false)

	err = svc.Verify(constants.CaptchaSceneRegister, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "wrong"})
	assert.ErrorIs(t, err, ErrCaptchaInvalid)
	err = svc.Verify(constants.CaptchaSceneRegister, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: answer})
	assert.ErrorIs(t, err, ErrCaptchaInvalid)

	assert.NoError(t, svc.Verify(constants.CaptchaSceneLogin, CaptchaVerifyPayload{}), "login scene is off")
}

func TestCaptchaPublicSetting(t *testing.T) {
	svc, _ := newImageCaptcha(t, config.CaptchaSceneConfig{Login: true, AdminLogin: true})

	setting := svc.PublicSetting()
	assert.Equal(t, constants.CaptchaProviderImage, setting.Provider)
	assert.Equal(t, map[string]bool{
		constants.CaptchaSceneLogin:      true,
		constants.CaptchaSceneRegister:   false,
		constants.CaptchaSceneAdminLogin: true,
	}, setting.Scenes)
}

func TestNormalizeCaptchaConfig(t *testing.T) {
	cfg := normalizeCaptchaConfig(config.CaptchaConfig{
		Provider: "turnstile",
		Image:    config.CaptchaImageConfig{Length: 20, Width: 10, Height: 1000, NoiseCount: -1, ExpireSeconds: 5},
	})
	assert.Equal(t, constants.CaptchaProviderNone, cfg.Provider, "unsupported providers are turned off")
	assert.Equal(t, config.CaptchaImageConfig{Length: 5, Width: 240, Height: 80, NoiseCount: 0, ShowLine: 0, ExpireSeconds: 300, MaxStore: 10240}, cfg.Image)
}

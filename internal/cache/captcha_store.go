package cache

import (
	"context"
	"strings"
	"time"

	"github.com/timestamp-store/internal/logger"

	"github.com/redis/go-redis/v9"
)

const captchaStoreTimeout = 2 * time.Second

// RedisCaptchaStore 图片验证码答案存储，多实例部署时共享
// 实现 base64Captcha.Store
type RedisCaptchaStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCaptchaStore 创建验证码存储，key 为 {prefix}:captcha:{id}
func NewRedisCaptchaStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCaptchaStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCaptchaStore{client: client, prefix: prefix + ":captcha", ttl: ttl}
}

// Set 保存答案
func (s *RedisCaptchaStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), captchaStoreTimeout)
	defer cancel()
	return s.client.Set(ctx, buildKey(s.prefix, id), value, s.ttl).Err()
}

// Get 读取答案，clear 为真时读取即删除；不存在或出错返回空串
func (s *RedisCaptchaStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), captchaStoreTimeout)
	defer cancel()
	key := buildKey(s.prefix, id)
	var (
		value string
		err   error
	)
	if clear {
		value, err = s.client.GetDel(ctx, key).Result()
	} else {
		value, err = s.client.Get(ctx, key).Result()
	}
	if err != nil {
		if err != redis.Nil {
			logger.Warnw("captcha_store_get_failed", "error", err)
		}
		return ""
	}
	return value
}

// Verify 答案忽略大小写比对
func (s *RedisCaptchaStore) Verify(id, answer string, clear bool) bool {
	stored := s.Get(id, clear)
	return stored != "" && strings.EqualFold(stored, strings.TrimSpace(answer))
}

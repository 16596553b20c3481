package service

import (
	"context"
	"fmt"
	"time"
)

// SessionStore 短时效键值存储（待用优惠券、钱包开关、立即购买草稿、在线支付草稿、注册 OTP）
type SessionStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

const (
	sessionKeyPendingCoupon  = "pending_coupon"
	sessionKeyUseWallet      = "use_wallet"
	sessionKeyBuyNow         = "buy_now"
	sessionKeyPendingOnline  = "pending_online"
	registrationKeyNamespace = "registration"
)

// BuyNowDraft 立即购买草稿
type BuyNowDraft struct {
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

// PendingOnlineCheckout 已创建网关订单、等待支付确认的结算草稿
type PendingOnlineCheckout struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Receipt        string `json:"receipt"`
	OnlineAmount   string `json:"online_amount"`
	Currency       string `json:"currency"`
	PaymentMethod  string `json:"payment_method"`
	AddressID      uint   `json:"address_id"`
	OrderNotes     string `json:"order_notes,omitempty"`
	BuyNow         bool   `json:"buy_now"`
	Fingerprint    string `json:"fingerprint"`
}

// CheckoutSession 绑定到单个用户的结算会话
type CheckoutSession struct {
	store  SessionStore
	userID uint
	ttl    time.Duration
}

// NewCheckoutSession 创建结算会话
func NewCheckoutSession(store SessionStore, userID uint, ttl time.Duration) *CheckoutSession {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CheckoutSession{store: store, userID: userID, ttl: ttl}
}

// UserID 会话所属用户
func (s *CheckoutSession) UserID() uint {
	return s.userID
}

func (s *CheckoutSession) key(name string) string {
	return fmt.Sprintf("checkout:%d:%s", s.userID, name)
}

// PendingCoupon 当前待用的优惠码
func (s *CheckoutSession) PendingCoupon(ctx context.Context) (string, error) {
	var code string
	if _, err := s.store.Get(ctx, s.key(sessionKeyPendingCoupon), &code); err != nil {
		return "", err
	}
	return code, nil
}

// SetPendingCoupon 保存待用优惠码
func (s *CheckoutSession) SetPendingCoupon(ctx context.Context, code string) error {
	return s.store.Set(ctx, s.key(sessionKeyPendingCoupon), code, s.ttl)
}

// ClearPendingCoupon 清除待用优惠码
func (s *CheckoutSession) ClearPendingCoupon(ctx context.Context) error {
	return s.store.Clear(ctx, s.key(sessionKeyPendingCoupon))
}

// UseWallet 是否使用钱包余额
func (s *CheckoutSession) UseWallet(ctx context.Context) (bool, error) {
	var enabled bool
	if _, err := s.store.Get(ctx, s.key(sessionKeyUseWallet), &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// SetUseWallet 切换钱包余额开关
func (s *CheckoutSession) SetUseWallet(ctx context.Context, enabled bool) error {
	if !enabled {
		return s.store.Clear(ctx, s.key(sessionKeyUseWallet))
	}
	return s.store.Set(ctx, s.key(sessionKeyUseWallet), true, s.ttl)
}

// BuyNow 立即购买草稿，不存在返回 nil
func (s *CheckoutSession) BuyNow(ctx context.Context) (*BuyNowDraft, error) {
	var draft BuyNowDraft
	found, err := s.store.Get(ctx, s.key(sessionKeyBuyNow), &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

// SetBuyNow 保存立即购买草稿
func (s *CheckoutSession) SetBuyNow(ctx context.Context, draft BuyNowDraft) error {
	return s.store.Set(ctx, s.key(sessionKeyBuyNow), draft, s.ttl)
}

// ClearBuyNow 清除立即购买草稿
func (s *CheckoutSession) ClearBuyNow(ctx context.Context) error {
	return s.store.Clear(ctx, s.key(sessionKeyBuyNow))
}

// PendingOnline 待确认的在线支付草稿，不存在返回 nil
func (s *CheckoutSession) PendingOnline(ctx context.Context) (*PendingOnlineCheckout, error) {
	var pending PendingOnlineCheckout
	found, err := s.store.Get(ctx, s.key(sessionKeyPendingOnline), &pending)
	if err != nil || !found {
		return nil, err
	}
	return &pending, nil
}

// SetPendingOnline 保存在线支付草稿
func (s *CheckoutSession) SetPendingOnline(ctx context.Context, pending PendingOnlineCheckout) error {
	return s.store.Set(ctx, s.key(sessionKeyPendingOnline), pending, s.ttl)
}

// ClearPendingOnline 清除在线支付草稿
func (s *CheckoutSession) ClearPendingOnline(ctx context.Context) error {
	return s.store.Clear(ctx, s.key(sessionKeyPendingOnline))
}

// ClearAfterOrder 下单成功后清理优惠券、钱包开关与草稿
func (s *CheckoutSession) ClearAfterOrder(ctx context.Context, buyNow bool) error {
	keys := []string{sessionKeyPendingCoupon, sessionKeyUseWallet, sessionKeyPendingOnline}
	if buyNow {
		keys = append(keys, sessionKeyBuyNow)
	}
	for _, name := range keys {
		if err := s.store.Clear(ctx, s.key(name)); err != nil {
			return err
		}
	}
	return nil
}

func registrationKey(token string) string {
	return fmt.Sprintf("%s:%s", registrationKeyNamespace, token)
}

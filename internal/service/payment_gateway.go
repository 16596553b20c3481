package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/timestamp-store/internal/payment/razorpay"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const paymentProviderRazorpay = "razorpay"

// GatewayOrder 网关订单
type GatewayOrder struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
}

// GatewayPayment 网关支付状态
type GatewayPayment struct {
	ID       string
	OrderID  string
	Status   string
	Amount   decimal.Decimal
	Currency string
	Captured bool
	Raw      map[string]interface{}
}

// PaymentGateway 在线支付网关
type PaymentGateway interface {
	Provider() string
	KeyID() string
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) error
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}

// RazorpayGateway Razorpay 网关适配
type RazorpayGateway struct {
	cfg *razorpay.Config
}

// NewRazorpayGateway 创建 Razorpay 网关
func NewRazorpayGateway(cfg *razorpay.Config) *RazorpayGateway {
	if cfg != nil {
		cfg.Normalize()
	}
	return &RazorpayGateway{cfg: cfg}
}

// Provider 网关标识
func (g *RazorpayGateway) Provider() string {
	return paymentProviderRazorpay
}

// KeyID 前端拉起支付所需的公钥
func (g *RazorpayGateway) KeyID() string {
	if g.cfg == nil {
		return ""
	}
	return g.cfg.KeyID
}

// CreateOrder 创建网关订单
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	result, err := razorpay.CreateOrder(ctx, g.cfg, razorpay.CreateOrderInput{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return &GatewayOrder{
		ID:       result.ID,
		Amount:   result.Amount,
		Currency: result.Currency,
		Receipt:  result.Receipt,
	}, nil
}

// VerifySignature 校验支付回调签名
func (g *RazorpayGateway) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	if err := razorpay.VerifyPaymentSignature(g.cfg, gatewayOrderID, paymentID, signature); err != nil {
		return mapGatewayError(err)
	}
	return nil
}

// FetchPayment 查询网关支付
func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	result, err := razorpay.FetchPayment(ctx, g.cfg, paymentID)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return &GatewayPayment{
		ID:       result.ID,
		OrderID:  result.OrderID,
		Status:   result.Status,
		Amount:   result.Amount,
		Currency: result.Currency,
		Captured: result.Captured,
		Raw:      result.Raw,
	}, nil
}

func mapGatewayError(err error) error {
	if errors.Is(err, razorpay.ErrSignatureInvalid) {
		return ErrPaymentSignatureInvalid
	}
	return ErrPaymentGatewayUnavailable.WithDetails([]string{err.Error()})
}

// newReceipt 生成网关对账回执号（不超过 40 字符）
func newReceipt(now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	return "rcpt_" + strings.ToLower(id.String())
}

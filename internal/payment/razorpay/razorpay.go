package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("razorpay config invalid")
	ErrRequestFailed    = errors.New("razorpay request failed")
	ErrResponseInvalid  = errors.New("razorpay response invalid")
	ErrSignatureInvalid = errors.New("razorpay signature invalid")
)

const (
	defaultAPIBaseURL = "https://api.razorpay.com"
	defaultTimeout    = 12 * time.Second
	minorUnitScale    = 2
)

// 网关支付状态
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusFailed     = "failed"
)

// Config Razorpay 渠道配置。
type Config struct {
	KeyID          string `json:"key_id"`
	KeySecret      string `json:"key_secret"`
	APIBaseURL     string `json:"api_base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CreateOrderInput 创建网关订单输入，金额单位为卢比。
type CreateOrderInput struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// OrderResult 网关订单。
type OrderResult struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Status   string
	Raw      map[string]interface{}
}

// PaymentResult 网关支付查询结果。
type PaymentResult struct {
	ID       string
	OrderID  string
	Status   string
	Amount   decimal.Decimal
	Currency string
	Captured bool
	Raw      map[string]interface{}
}

// ParseConfig 解析配置。
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize 去空白并补默认值。
func (c *Config) Normalize() {
	c.KeyID = strings.TrimSpace(c.KeyID)
	c.KeySecret = strings.TrimSpace(c.KeySecret)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeyID) == "" {
		return fmt.Errorf("%w: key_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.APIBaseURL)); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// CreateOrder 创建网关订单，金额按分（paise）提交。
func CreateOrder(ctx context.Context, cfg *Config, input CreateOrderInput) (*OrderResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	minor, err := ToMinorAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}
	receipt := strings.TrimSpace(input.Receipt)
	if receipt == "" || len(receipt) > 40 {
		return nil, fmt.Errorf("%w: receipt must be 1 to 40 characters", ErrConfigInvalid)
	}
	payload := map[string]interface{}{
		"amount":   minor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(input.Notes) > 0 {
		payload["notes"] = input.Notes
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
	}

	respBody, statusCode, err := doRequest(ctx, cfg, http.MethodPost, "/v1/orders", body)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create order status %d", ErrResponseInvalid, statusCode)
	}
	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := &OrderResult{
		ID:       readString(raw, "id"),
		Amount:   FromMinorAmount(readInt64(raw, "amount")),
		Currency: strings.ToUpper(readString(raw, "currency")),
		Receipt:  readString(raw, "receipt"),
		Status:   readString(raw, "status"),
		Raw:      raw,
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return result, nil
}

// FetchPayment 查询支付详情，金额换算回卢比。
func FetchPayment(ctx context.Context, cfg *Config, paymentID string) (*PaymentResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment_id is required", ErrConfigInvalid)
	}
	respBody, statusCode, err := doRequest(ctx, cfg, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: fetch payment status %d", ErrResponseInvalid, statusCode)
	}
	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := &PaymentResult{
		ID:       readString(raw, "id"),
		OrderID:  readString(raw, "order_id"),
		Status:   strings.ToLower(readString(raw, "status")),
		Amount:   FromMinorAmount(readInt64(raw, "amount")),
		Currency: strings.ToUpper(readString(raw, "currency")),
		Raw:      raw,
	}
	if captured, ok := raw["captured"].(bool); ok {
		result.Captured = captured
	}
	if result.Status == PaymentStatusCaptured {
		result.Captured = true
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrResponseInvalid)
	}
	return result, nil
}

// VerifyPaymentSignature 校验 checkout 回传签名：HMAC-SHA256(key_secret, order_id|payment_id)。
func VerifyPaymentSignature(cfg *Config, orderID, paymentID, signature string) error {
	if cfg == nil || strings.TrimSpace(cfg.KeySecret) == "" {
		return fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	signature = strings.ToLower(strings.TrimSpace(signature))
	if orderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("%w: missing signature fields", ErrSignatureInvalid)
	}
	expected := ComputeSignature(cfg.KeySecret, orderID, paymentID)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}
	return nil
}

// ComputeSignature 计算支付签名。
func ComputeSignature(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

// ToMinorAmount 卢比转换为 paise。
func ToMinorAmount(amount decimal.Decimal) (int64, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	minor := amount.Shift(minorUnitScale)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision is invalid", ErrConfigInvalid)
	}
	return minor.IntPart(), nil
}

// FromMinorAmount paise 转换为卢比。
func FromMinorAmount(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-minorUnitScale)
}

func requestTimeout(cfg *Config) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

func doRequest(ctx context.Context, cfg *Config, method, path string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout(cfg))
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.SetBasicAuth(cfg.KeyID, cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := (&http.Client{Timeout: requestTimeout(cfg)}).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return respBody, resp.StatusCode, nil
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func readString(raw map[string]interface{}, key string) string {
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	default:
		return ""
	}
}

func readInt64(raw map[string]interface{}, key string) int64 {
	value, ok := raw[key]
	if !ok || value == nil {
		return 0
	}
	switch typed := value.(type) {
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

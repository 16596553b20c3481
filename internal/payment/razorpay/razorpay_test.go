package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"key_id":     " rzp_test_key ",
		"key_secret": " secret ",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.KeyID != "rzp_test_key" || cfg.KeySecret != "secret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected default api base url: %s", cfg.APIBaseURL)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
	if err := ValidateConfig(&Config{KeyID: "rzp"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestCreateOrderSendsPaise(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Errorf("unexpected basic auth %q %q", user, pass)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Abc123","amount":125050,"currency":"INR","receipt":"rcpt_1","status":"created"}`))
	}))
	defer server.Close()

	cfg := &Config{KeyID: "rzp_test_key", KeySecret: "secret", APIBaseURL: server.URL}
	result, err := CreateOrder(context.Background(), cfg, CreateOrderInput{
		Amount:   decimal.RequireFromString("1250.50"),
		Currency: "inr",
		Receipt:  "rcpt_1",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if result.ID != "order_Abc123" {
		t.Fatalf("unexpected order id: %s", result.ID)
	}
	if !result.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("unexpected amount: %s", result.Amount)
	}
	if amount, _ := got["amount"].(float64); amount != 125050 {
		t.Fatalf("expected 125050 paise, got %v", got["amount"])
	}
	if got["currency"] != "INR" {
		t.Fatalf("unexpected currency: %v", got["currency"])
	}
}

func TestCreateOrderRejectsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
	}))
	defer server.Close()

	cfg := &Config{KeyID: "k", KeySecret: "s", APIBaseURL: server.URL}
	_, err := CreateOrder(context.Background(), cfg, CreateOrderInput{Amount: decimal.NewFromInt(10), Receipt: "r"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected response invalid, got %v", err)
	}
}

func TestFetchPaymentCaptured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pay_Xyz" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"pay_Xyz","order_id":"order_Abc123","status":"captured","amount":99900,"currency":"INR","captured":true}`))
	}))
	defer server.Close()

	cfg := &Config{KeyID: "k", KeySecret: "s", APIBaseURL: server.URL}
	payment, err := FetchPayment(context.Background(), cfg, "pay_Xyz")
	if err != nil {
		t.Fatalf("fetch payment failed: %v", err)
	}
	if !payment.Captured || payment.OrderID != "order_Abc123" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if !payment.Amount.Equal(decimal.RequireFromString("999")) {
		t.Fatalf("unexpected amount: %s", payment.Amount)
	}
}

func TestFetchPaymentHonoursTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":"pay_slow"}`))
	}))
	defer server.Close()

	cfg := &Config{KeyID: "k", KeySecret: "s", APIBaseURL: server.URL, TimeoutSeconds: 1}
	_, err := FetchPayment(context.Background(), cfg, "pay_slow")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected request failed on timeout, got %v", err)
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	cfg := &Config{KeyID: "k", KeySecret: "topsecret"}
	sig := ComputeSignature("topsecret", "order_1", "pay_1")
	if err := VerifyPaymentSignature(cfg, "order_1", "pay_1", sig); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := VerifyPaymentSignature(cfg, "order_1", "pay_2", sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature invalid, got %v", err)
	}
	if err := VerifyPaymentSignature(cfg, "order_1", "pay_1", ""); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature invalid for empty signature, got %v", err)
	}
}

func TestToMinorAmount(t *testing.T) {
	minor, err := ToMinorAmount(decimal.RequireFromString("10.05"))
	if err != nil || minor != 1005 {
		t.Fatalf("unexpected minor amount %d err %v", minor, err)
	}
	if _, err := ToMinorAmount(decimal.RequireFromString("1.005")); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected precision error, got %v", err)
	}
	if _, err := ToMinorAmount(decimal.Zero); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected non-positive error, got %v", err)
	}
}

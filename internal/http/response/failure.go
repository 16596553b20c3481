package response

// Failure 失败响应的 data 部分
type Failure struct {
	ErrorCode string   `json:"error_code,omitempty"` // 业务错误码，如 coupon_expired
	Details   []string `json:"details,omitempty"`    // 购物车逐行问题、字段校验说明
	RequestID string   `json:"request_id,omitempty"`
}

func (f Failure) empty() bool {
	return f.ErrorCode == "" && len(f.Details) == 0 && f.RequestID == ""
}

var defaultMessages = map[int]string{
	CodeBadRequest:      "Invalid request",
	CodeUnauthorized:    "Please sign in to continue",
	CodePaymentRequired: "Wallet balance does not cover this order, please pay online",
	CodeForbidden:       "You do not have access to this resource",
	CodeNotFound:        "The requested resource was not found",
	CodeConflict:        "Something changed while processing your request, please try again",
	CodeUnprocessable:   "This request cannot be completed",
	CodeTooManyRequests: "Too many requests, please try again later",
	CodeInternal:        "Something went wrong, please try again later",
	CodeBadGateway:      "Payment provider is unavailable, please try again",
}

// MessageFor msg 非空时原样返回，否则给出错误码的默认提示
func MessageFor(code int, msg string) string {
	if msg != "" {
		return msg
	}
	if fallback, ok := defaultMessages[code]; ok {
		return fallback
	}
	return defaultMessages[CodeInternal]
}

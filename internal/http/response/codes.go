package response

// 响应码沿用 HTTP 语义，落在 envelope 的 status_code 中
const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodePaymentRequired = 402 // 钱包余额不足，需要走在线支付
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409 // 库存不足、并发修改，可重试
	CodeUnprocessable   = 422 // 优惠券、订单状态等业务规则不满足
	CodeTooManyRequests = 429
	CodeInternal        = 500
	CodeBadGateway      = 502 // 支付网关不可用
)

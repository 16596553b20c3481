package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 所有接口共用的响应外壳，HTTP 状态恒为 200，结果看 status_code
type Envelope struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 列表分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 由页码、页大小和总数计算总页数
func NewPagination(page, pageSize int, total int64) Pagination {
	pagination := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		pagination.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return pagination
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithMsg 成功响应，附带给用户的提示（如 "Order placed successfully"）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{StatusCode: CodeOK, Msg: msg, Data: data})
}

// SuccessWithPage 分页列表（订单、钱包流水、券、活动）
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, Envelope{StatusCode: CodeOK, Msg: "success", Data: data, Pagination: &pagination})
}

// Error 失败响应，msg 为空时使用错误码的默认提示
func Error(c *gin.Context, code int, msg string) {
	Fail(c, code, msg, Failure{})
}

// Fail 失败响应，data 中带业务错误码与逐项说明
func Fail(c *gin.Context, code int, msg string, failure Failure) {
	failure.RequestID = requestID(c)
	var data interface{}
	if !failure.empty() {
		data = failure
	}
	c.JSON(http.StatusOK, Envelope{StatusCode: code, Msg: MessageFor(code, msg), Data: data})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, msg string) {
	Error(c, CodeNotFound, msg)
}

// Unauthorized 未登录或令牌失效
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 无权访问
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, msg string) {
	Error(c, CodeBadRequest, msg)
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	id, _ := c.Get("request_id")
	value, _ := id.(string)
	return value
}

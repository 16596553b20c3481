package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const internalErrorMessage = "Something went wrong, please try again later"

// MappedHandlerError 业务错误到接口响应码的覆盖规则。
type MappedHandlerError struct {
	Target error
	Code   int
}

// kindCodes 业务错误分类对应的响应码
var kindCodes = map[service.ErrorKind]int{
	service.KindValidation:   response.CodeBadRequest,
	service.KindNotFound:     response.CodeNotFound,
	service.KindBusinessRule: response.CodeUnprocessable,
	service.KindExternal:     response.CodeBadGateway,
	service.KindConflict:     response.CodeConflict,
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error", "code", code, "message", msg, "error", err)
	}
	response.Error(c, code, msg)
}

// RespondServiceError 按业务错误分类返回响应，未知错误统一为 500 且不暴露细节。
func RespondServiceError(c *gin.Context, err error, overrides ...MappedHandlerError) {
	var svcErr *service.ServiceError
	if !errors.As(err, &svcErr) {
		RespondError(c, response.CodeInternal, internalErrorMessage, err)
		return
	}
	code, ok := kindCodes[svcErr.Kind]
	if !ok {
		code = response.CodeBadRequest
	}
	for _, rule := range overrides {
		if errors.Is(err, rule.Target) {
			code = rule.Code
			break
		}
	}
	if svcErr.Kind == service.KindExternal || svcErr.Kind == service.KindConflict {
		RequestLog(c).Warnw("handler_service_error", "code", svcErr.Code, "kind", svcErr.Kind, "error", err)
	}
	response.Fail(c, code, svcErr.Message, response.Failure{ErrorCode: svcErr.Code, Details: svcErr.Details})
}

// RespondBindError 请求参数校验失败，逐字段给出提示。
func RespondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		response.BadRequest(c, "Invalid request body")
		return
	}
	details := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		details = append(details, describeFieldError(fieldErr))
	}
	response.Fail(c, response.CodeBadRequest, "Invalid request parameters", response.Failure{ErrorCode: "invalid_parameters", Details: details})
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := toSnakeCase(fieldErr.Field())
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldErr.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

package admin

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var adminAuthErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized},
	{Target: service.ErrInvalidToken, Code: response.CodeUnauthorized},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return shared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	shared.RespondError(c, code, msg, err)
}

func respondServiceError(c *gin.Context, err error, overrides ...shared.MappedHandlerError) {
	shared.RespondServiceError(c, err, overrides...)
}

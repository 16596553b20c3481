package public

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = shared.MappedHandlerError

var authErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized},
	{Target: service.ErrInvalidToken, Code: response.CodeUnauthorized},
	{Target: service.ErrAccountDisabled, Code: response.CodeForbidden},
	{Target: service.ErrAccountNotVerified, Code: response.CodeForbidden},
}

var checkoutErrorRules = []mappedHandlerError{
	{Target: service.ErrCartValidationFailed, Code: response.CodeUnprocessable},
	{Target: service.ErrInsufficientStock, Code: response.CodeConflict},
	{Target: service.ErrPaymentSignatureInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrPaymentAmountMismatch, Code: response.CodeBadRequest},
	{Target: service.ErrPaymentNotCaptured, Code: response.CodeBadRequest},
	{Target: service.ErrExternalPaymentRequired, Code: response.CodePaymentRequired},
	{Target: service.ErrWalletInsufficientBalance, Code: response.CodePaymentRequired},
}

func respondServiceError(c *gin.Context, err error, rules ...[]mappedHandlerError) {
	var merged []mappedHandlerError
	for _, group := range rules {
		merged = append(merged, group...)
	}
	shared.RespondServiceError(c, err, merged...)
}

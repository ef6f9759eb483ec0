package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medledger/chain-api/pkg/errors"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) Response {
	return Response{Status: "error", Message: message}
}

// Error writes err with the HTTP status its application code maps to.
func Error(c *gin.Context, err error) {
	c.JSON(HTTPStatus(err), NewErrorResponse(err.Error()))
}

// HTTPStatus maps application error codes onto HTTP statuses. Contract
// denials are 403: the request was understood and authenticated, the policy
// said no.
func HTTPStatus(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound, errors.ErrRecordNotFound, errors.ErrBlockOutOfRange,
		errors.ErrTokenNotFound, errors.ErrContractNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest, errors.ErrPayloadInvalid, errors.ErrDuplicateRecord,
		errors.ErrEmptyTree, errors.ErrInvalidRole, errors.ErrSessionTooLong,
		errors.ErrUnknownContractType, errors.ErrUnknownOperation:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrForbidden, errors.ErrRoleNotAssigned, errors.ErrRoleNotAssignable,
		errors.ErrJustificationRequired, errors.ErrTwoFactorRequired,
		errors.ErrDataTypeDenied, errors.ErrPatientScopeDenied,
		errors.ErrConsentDenied, errors.ErrTokenNotActive:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

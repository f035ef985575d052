package dto

import (
	"net/http"

	"github.com/coridor/backend/internal/domain/regularization"
)

// Transport error codes. Domain codes (regularization.Code*) are returned
// as-is.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeRouteNotFound   = "ERR_ROUTE_NOT_FOUND"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeTimeout         = "ERR_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRouteNotFound:   http.StatusNotFound,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
}

var kindHTTPStatus = map[regularization.ErrorKind]int{
	regularization.KindValidation:   http.StatusBadRequest,
	regularization.KindNotFound:     http.StatusNotFound,
	regularization.KindConflict:     http.StatusConflict,
	regularization.KindPersistence:  http.StatusInternalServerError,
	regularization.KindNotification: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status of an error code. Domain codes map
// through their error kind; unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := kindHTTPStatus[regularization.KindOfCode(code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

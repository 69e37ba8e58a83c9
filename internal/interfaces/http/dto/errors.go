package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors carry their own codes, which are
// passed through unchanged
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Domain codes that need a status other than the prefix rules give them
const (
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodePriceChanged        = "PRICE_CHANGED"
	ErrCodePaymentInProgress   = "PAYMENT_IN_PROGRESS"
	ErrCodeShippingConflict    = "SHIPPING_METHOD_CONFLICT"
	ErrCodeExternalUnavailable = "EXTERNAL_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	"PRICING_MISMATCH": http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	"ADDRESS_REQUIRED":     http.StatusBadRequest,
	"COUPON_CODE_REQUIRED": http.StatusBadRequest,

	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeTokenInvalid:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,

	ErrCodeForbidden: http.StatusForbidden,

	ErrCodeNotFound:     http.StatusNotFound,
	"ADDRESS_NOT_FOUND": http.StatusNotFound,
	"ITEM_NOT_IN_CART":  http.StatusNotFound,

	"ALREADY_EXISTS":           http.StatusConflict,
	"ALREADY_VERIFIED":         http.StatusConflict,
	"SHIPMENT_EXISTS":          http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodePriceChanged:        http.StatusConflict,
	ErrCodePaymentInProgress:   http.StatusConflict,
	ErrCodeShippingConflict:    http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	"INVALID_STATE":           http.StatusUnprocessableEntity,
	"INVALID_SHIPMENT_STEP":   http.StatusUnprocessableEntity,
	"INVALID_COUPON":          http.StatusUnprocessableEntity,
	"PAYMENT_AMOUNT_MISMATCH": http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	"CARRIER_ERROR":         http.StatusBadGateway,
	"PAYMENT_GATEWAY_ERROR": http.StatusBadGateway,

	ErrCodeExternalUnavailable:     http.StatusServiceUnavailable,
	"CARRIER_NOT_CONFIGURED":       http.StatusServiceUnavailable,
	"PAYMENT_PROVIDER_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted INVALID_* codes are input errors, unlisted *_NOT_FOUND codes are
// 404, and every other unlisted code is a business rule violation (422)
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case code == "":
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

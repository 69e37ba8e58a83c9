package handler

import "github.com/wellnest/backend/internal/interfaces/http/dto"

// The types below only describe dto.Response to swag; handlers never build
// them.

// APIResponse is dto.Response with a typed payload.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is what every failing endpoint returns.
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

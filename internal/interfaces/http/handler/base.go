package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/application/checkout"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
	"github.com/wellnest/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler carries the response and binding helpers shared by every handler.
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// requestContext is what services receive: the request deadline plus the
// request-scoped logger and ids.
func requestContext(c *gin.Context) context.Context {
	return logger.RequestContext(c)
}

// requireUserID answers 401 for anonymous callers.
func (h *BaseHandler) requireUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.CurrentUserID(c))
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	return h.bound(c, c.ShouldBindJSON(obj))
}

func (h *BaseHandler) bindQuery(c *gin.Context, obj any) bool {
	return h.bound(c, c.ShouldBindQuery(obj))
}

// bound writes 400 for a failed bind: field errors for validation failures,
// INVALID_JSON for anything else.
func (h *BaseHandler) bound(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, err)
	} else {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request")
	}
	return false
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// respond finishes a handler: err wins, 204 carries no body, anything else is
// wrapped in the success envelope.
func (h *BaseHandler) respond(c *gin.Context, status int, data any, err error) {
	switch {
	case err != nil:
		h.HandleError(c, err)
	case status == http.StatusNoContent:
		c.Status(status)
	default:
		c.JSON(status, dto.OK(data))
	}
}

// Paginated answers with one page of results and its meta.
func Paginated[T any](c *gin.Context, page *shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.Page(page.Items, page.Total, page.Page, page.PageSize))
}

func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Fail(code, message, getRequestID(c)))
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError maps service errors to responses. Domain codes pass through;
// anything else is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var priceErr *checkout.PriceChangedError
	if errors.As(err, &priceErr) {
		c.JSON(http.StatusConflict, dto.Fail(dto.ErrCodePriceChanged, priceErr.Error(), requestID).
			WithDetails(gin.H{"changes": priceErr.Changes}))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Warn("Request failed", zap.String("code", domainErr.Code), zap.Error(err))
		}
		c.JSON(status, dto.Fail(domainErr.Code, domainErr.Message, requestID))
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.Error(c, http.StatusGatewayTimeout, "TIMEOUT", "The request took too long, please retry")
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

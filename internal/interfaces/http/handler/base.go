package handler

import (
	"errors"
	"net/http"

	appcompanion "github.com/companiondir/backend/internal/application/companion"
	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/domain/shared"
	"github.com/companiondir/backend/internal/infrastructure/logger"
	"github.com/companiondir/backend/internal/interfaces/http/dto"
	"github.com/companiondir/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	resp := dto.NewValidationErrorResponse("Request validation failed", middleware.GetRequestID(c), details)
	resp.Error.Hint = appcompanion.UserHint(shared.ErrValidation)
	c.JSON(http.StatusBadRequest, resp)
}

// HandleError converts an operation error into an HTTP response. Domain
// codes select the status; every response carries an end-user hint.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	requestID := middleware.GetRequestID(c)

	if middleware.IsBodyTooLarge(err) {
		middleware.AbortBodyTooLarge(c)
		return
	}

	var verr *companion.ValidationError
	if errors.As(err, &verr) {
		details := make([]dto.ValidationDetail, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, dto.ValidationDetail{Field: f.Field, Message: f.Message})
		}
		h.ValidationError(c, details)
		return
	}

	hint := appcompanion.UserHint(err)

	var rerr *companion.ReconcileError
	if errors.As(err, &rerr) && len(rerr.Errors) > 0 {
		resp := dto.NewErrorResponseWithHint(dto.ErrCodePartialWrite,
			"Some profile attributes were not saved", requestID, hint)
		for _, ae := range rerr.Errors {
			resp.Error.Details = append(resp.Error.Details, dto.ValidationDetail{Field: ae.Key, Message: ae.Message})
		}
		c.JSON(dto.GetHTTPStatus(dto.ErrCodePartialWrite), resp)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		}
		c.JSON(status, dto.NewErrorResponseWithHint(code, domainErr.Message, requestID, hint))
		return
	}
	if errors.Is(err, shared.ErrUpstreamUnavailable) {
		logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithHint(
			dto.ErrCodeUpstreamUnavailable, shared.ErrUpstreamUnavailable.Message, requestID, hint))
		return
	}

	logger.GetGinLogger(c).Error("Unexpected error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithHint(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
		hint,
	))
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/domain/shared"
	"github.com/companiondir/backend/internal/interfaces/http/dto"
	"github.com/companiondir/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"a", "b"}, 25, 2, 12)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(25), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 12, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandlerCreated(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Created(c, map[string]int{"id": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name       string
		call       func(h *BaseHandler, c *gin.Context)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "bad request",
			call:       func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "bad") },
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeBadRequest,
		},
		{
			name:       "not found",
			call:       func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "missing") },
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			c.Set(middleware.RequestIDKey, "req-1")

			tt.call(&BaseHandler{}, c)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerValidationError(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).ValidationError(c, []dto.ValidationDetail{{Field: "user_name", Message: "required"}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Hint)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "user_name", resp.Error.Details[0].Field)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"companion not found", companion.ErrCompanionNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"page not found", companion.ErrPageNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"handle taken", companion.ErrHandleTaken, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"password mismatch", companion.ErrPasswordMismatch, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"status not writable", companion.ErrStatusNotWritable, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"uniqueness unverifiable", companion.ErrUniquenessUnverifiable, http.StatusServiceUnavailable, dto.ErrCodeUpstreamUnavailable},
		{
			"wrapped upstream error",
			shared.WrapDomainError(shared.CodeUpstreamUnavailable, "Failed to create record", fmt.Errorf("dial tcp: connection refused")),
			http.StatusServiceUnavailable,
			dto.ErrCodeUpstreamUnavailable,
		},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()

			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Hint)
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandlerHandleError_Validation(t *testing.T) {
	c, w := newTestContext()

	verr := companion.NewValidationError("images", "at least 3 images are required")
	verr.Add("password", "password is required")
	(&BaseHandler{}).HandleError(c, fmt.Errorf("create: %w", verr))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "images", resp.Error.Details[0].Field)
	assert.Equal(t, "password", resp.Error.Details[1].Field)
}

func TestBaseHandlerHandleError_Reconcile(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, &companion.ReconcileError{
		RecordID: 7,
		Errors:   []companion.AttributeError{{Key: "skill", Message: "value is invalid"}},
	})

	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodePartialWrite, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "skill", resp.Error.Details[0].Field)
}

func TestBaseHandlerHandleError_ReconcileTransportOnly(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, &companion.ReconcileError{RecordID: 7, Cause: fmt.Errorf("timeout")})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeUpstreamUnavailable, resp.Error.Code)
}

func TestBaseHandlerHandleError_Nil(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, nil)

	assert.Empty(t, w.Body.String())
	assert.Empty(t, c.Errors)
}

func TestBaseHandlerHandleError_BodyTooLarge(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, fmt.Errorf("parse form: %w", &http.MaxBytesError{Limit: 10}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeRequestTooLarge)
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/application/checkout"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
	"github.com/wellnest/backend/internal/interfaces/http/middleware"
	"github.com/wellnest/backend/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newJSONContext builds a test context whose request carries body as JSON
func newJSONContext(t *testing.T, method, path, body string) *testutil.TestContext {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return testutil.NewTestContextWithRequest(t, req)
}

func errorCode(t *testing.T, tc *testutil.TestContext) string {
	t.Helper()
	resp := testutil.JSONResponse(t, tc)
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected an error object")
	return errObj["code"].(string)
}

func TestGetRequestID(t *testing.T) {
	tc := testutil.NewTestContext(t)
	assert.Empty(t, getRequestID(tc.Context))

	tc.SetRequestID("req-123")
	assert.Equal(t, "req-123", getRequestID(tc.Context))
}

func TestBaseHandler_RequireUserID(t *testing.T) {
	h := &BaseHandler{}

	t.Run("anonymous caller gets 401", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		_, ok := h.requireUserID(tc.Context)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodeUnauthorized)
	})

	t.Run("authenticated caller", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		tc.SetUser(testutil.TestUserID(), "customer")
		id, ok := h.requireUserID(tc.Context)
		assert.True(t, ok)
		assert.Equal(t, testutil.TestUserID(), id)
	})
}

func TestBaseHandler_PathUUID(t *testing.T) {
	h := &BaseHandler{}

	tc := testutil.NewTestContext(t)
	tc.Context.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok := h.pathUUID(tc.Context, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
	testutil.AssertErrorResponse(t, tc, "INVALID_ID")

	want := uuid.New()
	tc = testutil.NewTestContext(t)
	tc.Context.Params = gin.Params{{Key: "id", Value: want.String()}}
	got, ok := h.pathUUID(tc.Context, "id")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestBaseHandler_BindJSON(t *testing.T) {
	type body struct {
		Name string `json:"name" binding:"required,max=5"`
	}
	h := &BaseHandler{}

	t.Run("malformed body", func(t *testing.T) {
		tc := newJSONContext(t, http.MethodPost, "/", "{not json")
		var b body
		assert.False(t, h.bindJSON(tc.Context, &b))
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodeInvalidJSON)
	})

	t.Run("validation failure", func(t *testing.T) {
		tc := newJSONContext(t, http.MethodPost, "/", `{"name":"too long"}`)
		var b body
		assert.False(t, h.bindJSON(tc.Context, &b))
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodeValidation)
	})

	t.Run("valid body", func(t *testing.T) {
		tc := newJSONContext(t, http.MethodPost, "/", `{"name":"asha"}`)
		var b body
		assert.True(t, h.bindJSON(tc.Context, &b))
		assert.Equal(t, "asha", b.Name)
	})
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		h.Success(tc.Context, gin.H{"ok": true})
		assert.Equal(t, http.StatusOK, tc.ResponseCode())
		testutil.AssertSuccessResponse(t, tc)
	})

	t.Run("created", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		h.Created(tc.Context, gin.H{"id": "1"})
		assert.Equal(t, http.StatusCreated, tc.ResponseCode())
	})

	t.Run("no content", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		h.NoContent(tc.Context)
		tc.Context.Writer.WriteHeaderNow()
		assert.Equal(t, http.StatusNoContent, tc.ResponseCode())
		assert.Empty(t, tc.ResponseBody())
	})

	t.Run("respond prefers the error", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		h.respond(tc.Context, http.StatusCreated, gin.H{"id": "1"}, shared.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, tc.ResponseCode())
	})

	t.Run("respond without body", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		h.respond(tc.Context, http.StatusNoContent, gin.H{"ignored": true}, nil)
		tc.Context.Writer.WriteHeaderNow()
		assert.Equal(t, http.StatusNoContent, tc.ResponseCode())
		assert.Empty(t, tc.ResponseBody())
	})

	t.Run("paginated", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		page := shared.NewPaginated([]string{"a", "b"}, 12, 2, 2)
		Paginated(tc.Context, &page)

		resp := testutil.JSONResponse(t, tc)
		meta := resp["meta"].(map[string]any)
		assert.Equal(t, float64(12), meta["total"])
		assert.Equal(t, float64(2), meta["page"])
		assert.Equal(t, float64(2), meta["page_size"])
		assert.Len(t, resp["data"], 2)
	})
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"insufficient stock", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, shared.ErrInsufficientStock.Code},
		{"external outage", shared.ErrExternalUnavailable, http.StatusServiceUnavailable, dto.ErrCodeExternalUnavailable},
		{"invalid prefix", shared.NewDomainError("INVALID_QUANTITY", "bad"), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			tc := testutil.NewTestContext(t)
			tc.SetRequestID("req-err")

			h.HandleError(tc.Context, tt.err)

			assert.Equal(t, tt.wantStatus, tc.ResponseCode())
			assert.Equal(t, tt.wantCode, errorCode(t, tc))
			errObj := testutil.JSONResponse(t, tc)["error"].(map[string]any)
			assert.Equal(t, "req-err", errObj["request_id"])
		})
	}
}

func TestBaseHandler_HandleError_PriceChanged(t *testing.T) {
	h := &BaseHandler{}
	tc := testutil.NewTestContext(t)

	h.HandleError(tc.Context, &checkout.PriceChangedError{Changes: []checkout.PriceChange{{
		ProductID: uuid.New(),
		Title:     "Ashwagandha",
		Was:       valueobject.MustINR("499"),
		Now:       valueobject.MustINR("549"),
	}}})

	assert.Equal(t, http.StatusConflict, tc.ResponseCode())
	errObj := testutil.JSONResponse(t, tc)["error"].(map[string]any)
	assert.Equal(t, dto.ErrCodePriceChanged, errObj["code"])
	details := errObj["details"].(map[string]any)
	changes := details["changes"].([]any)
	require.Len(t, changes, 1)
	assert.Equal(t, "Ashwagandha", changes[0].(map[string]any)["title"])
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	tc := testutil.NewTestContext(t)
	h.HandleError(tc.Context, nil)
	assert.False(t, tc.Context.Writer.Written())
}

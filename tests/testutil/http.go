package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase drives one handler invocation. Body is sent as JSON when set;
// Setup runs before the handler and Validate after the status check.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           any
	Headers        map[string]string
	ExpectedStatus int
	Setup          func(t *testing.T, tc *TestContext)
	Validate       func(t *testing.T, tc *TestContext)
}

func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, hc HTTPTestCase) {
	t.Helper()

	req := httptest.NewRequest(orElse(hc.Method, http.MethodGet), orElse(hc.Path, "/"), encodeBody(t, hc.Body))
	if hc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hc.Headers {
		req.Header.Set(k, v)
	}

	tc := newTestContext(req)
	if hc.Setup != nil {
		hc.Setup(t, tc)
	}
	handler(tc.Context)

	if hc.ExpectedStatus != 0 {
		assert.Equal(t, hc.ExpectedStatus, tc.ResponseCode(), "status for %s %s: %s", req.Method, req.URL, tc.ResponseBody())
	}
	if hc.Validate != nil {
		hc.Validate(t, tc)
	}
}

func encodeBody(t *testing.T, body any) io.Reader {
	t.Helper()
	if body == nil {
		return nil
	}
	if s, ok := body.(string); ok {
		return bytes.NewBufferString(s)
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// JSONResponse decodes the recorded body into a generic map
func JSONResponse(t *testing.T, tc *TestContext) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &out), "response is not JSON: %s", tc.ResponseBody())
	return out
}

// AssertSuccessResponse checks the envelope reports success without an error
func AssertSuccessResponse(t *testing.T, tc *TestContext) {
	t.Helper()
	resp := JSONResponse(t, tc)
	assert.Equal(t, true, resp["success"])
	assert.Nil(t, resp["error"])
}

// AssertErrorResponse checks the envelope carries the given error code
func AssertErrorResponse(t *testing.T, tc *TestContext, code string) {
	t.Helper()
	resp := JSONResponse(t, tc)
	assert.Equal(t, false, resp["success"])
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected an error object in %s", tc.ResponseBody())
	assert.Equal(t, code, errObj["code"])
}

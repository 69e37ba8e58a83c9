// Package testutil holds shared test helpers for the storefront: gin
// contexts, an HTTP case runner, testify mocks of the domain repositories
// and ready-made catalog and order fixtures.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixtureNamespace seeds the deterministic IDs handed out by FixtureID
var fixtureNamespace = uuid.MustParse("4f1c8a52-7d0e-4b8e-9a61-2c5e0d3b7f90")

// TestContext is a gin context paired with the recorder it writes to
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

func newTestContext(req *http.Request) *TestContext {
	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = req
	return &TestContext{Context: c, Recorder: w, Engine: engine}
}

// NewTestContext returns a context for a bare GET /
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()
	return newTestContext(httptest.NewRequest(http.MethodGet, "/", nil))
}

// NewTestContextWithRequest returns a context serving req
func NewTestContextWithRequest(t *testing.T, req *http.Request) *TestContext {
	t.Helper()
	return newTestContext(req)
}

// SetRequestID stores id under the key the request-id middleware uses
func (tc *TestContext) SetRequestID(id string) {
	tc.Context.Set("request_id", id)
}

// SetUser marks the request as authenticated, as the JWT middleware would
func (tc *TestContext) SetUser(id uuid.UUID, role string) {
	tc.Context.Set("jwt_user_id", id.String())
	tc.Context.Set("jwt_role", role)
}

func (tc *TestContext) ResponseBody() []byte { return tc.Recorder.Body.Bytes() }

func (tc *TestContext) ResponseCode() int { return tc.Recorder.Code }

// FixtureID derives a stable UUID from name
func FixtureID(name string) uuid.UUID {
	return uuid.NewSHA1(fixtureNamespace, []byte(name))
}

// TestUserID is the customer most handler tests act as
func TestUserID() uuid.UUID {
	return FixtureID("customer:asha")
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func docsRouter(cfg DocsGateConfig, auth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/swagger/*any", DocsGate(cfg, auth, nil), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return r
}

func getDocs(r *gin.Engine, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDocsGate_Disabled(t *testing.T) {
	w := getDocs(docsRouter(DocsGateConfig{}, nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestDocsGate_AllowList(t *testing.T) {
	r := docsRouter(DocsGateConfig{
		Enabled:    true,
		AllowedIPs: []string{"10.20.0.0/16", "203.0.113.7", "2001:db8::/32"},
	}, nil)

	cases := []struct {
		remote string
		want   int
	}{
		{"10.20.4.1:5512", http.StatusOK},
		{"203.0.113.7:443", http.StatusOK},
		{"[2001:db8::1]:80", http.StatusOK},
		{"203.0.113.8:443", http.StatusForbidden},
		{"192.168.1.10:9000", http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, getDocs(r, tc.remote).Code, tc.remote)
	}
}

func TestDocsGate_OpenWhenNoList(t *testing.T) {
	w := getDocs(docsRouter(DocsGateConfig{Enabled: true}, nil), "198.51.100.4:1000")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocsGate_RequireAuth(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	allow := func(c *gin.Context) {}

	assert.Equal(t, http.StatusUnauthorized, getDocs(docsRouter(DocsGateConfig{Enabled: true, RequireAuth: true}, deny), "").Code)
	assert.Equal(t, http.StatusOK, getDocs(docsRouter(DocsGateConfig{Enabled: true, RequireAuth: true}, allow), "").Code)
	assert.Equal(t, http.StatusOK, getDocs(docsRouter(DocsGateConfig{Enabled: true}, deny), "").Code, "auth only runs when required")
}

func TestDocsGate_IPCheckedBeforeAuth(t *testing.T) {
	authRan := false
	auth := func(c *gin.Context) { authRan = true }
	r := docsRouter(DocsGateConfig{Enabled: true, RequireAuth: true, AllowedIPs: []string{"10.0.0.1"}}, auth)

	assert.Equal(t, http.StatusForbidden, getDocs(r, "10.0.0.2:1").Code)
	assert.False(t, authRan)
}

func TestParsePrefixes_SkipsGarbage(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prefixes := parsePrefixes([]string{"not-an-ip", "10.0.0.0/33", " 127.0.0.1 ", "::ffff:10.1.1.1"}, zap.New(core))

	assert.Len(t, prefixes, 2)
	assert.Equal(t, 2, logs.Len())
	assert.True(t, clientAllowed("10.1.1.1", prefixes))
	assert.False(t, clientAllowed("garbage", prefixes))
}

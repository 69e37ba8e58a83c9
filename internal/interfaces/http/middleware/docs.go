package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

// DocsGateConfig controls who may read the API documentation
type DocsGateConfig struct {
	Enabled     bool
	RequireAuth bool
	// AllowedIPs holds addresses or CIDR prefixes. Empty allows every client
	AllowedIPs []string
}

// DocsGate guards the swagger routes. Disabled docs answer 404 so their
// presence is not advertised; clients outside AllowedIPs get 403; auth, when
// required, runs last.
func DocsGate(cfg DocsGateConfig, auth gin.HandlerFunc, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefixes := parsePrefixes(cfg.AllowedIPs, logger)
	restricted := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.Fail(
				dto.ErrCodeNotFound, "API documentation is not available", c.GetString(RequestIDKey)))
			return
		}
		if restricted && !clientAllowed(c.ClientIP(), prefixes) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Fail(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", c.GetString(RequestIDKey)))
			return
		}
		if cfg.RequireAuth && auth != nil {
			auth(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

// parsePrefixes turns single addresses into /32 or /128 prefixes. Entries that
// parse as neither are logged and skipped, which may leave the gate closed to
// everyone.
func parsePrefixes(entries []string, logger *zap.Logger) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				logger.Warn("Ignoring invalid docs CIDR", zap.String("entry", raw), zap.Error(err))
				continue
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			logger.Warn("Ignoring invalid docs address", zap.String("entry", raw), zap.Error(err))
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func clientAllowed(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

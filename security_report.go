package tokenauth

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth/internal/security"
)

// SecurityReport describes the engine's effective security posture, with a
// warning for each setting weaker than the hardened defaults.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return security.BuildReport(security.ReportInput{
		ProductionMode:   cfg.Security.ProductionMode,
		SigningAlgorithm: strings.ToLower(cfg.JWT.SigningMethod),
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		AtomicRotation:   cfg.Store.AtomicRotation,
		CookieSecure:     cfg.Cookie.Secure,
		CookieSameSite:   sameSiteName(cfg.Cookie.SameSite),
		RateLimitEnabled: cfg.RateLimit.Enabled,
		MaxLoginAttempts: cfg.RateLimit.MaxAttempts,
		LoginWindow:      cfg.RateLimit.Window,
		AuditEnabled:     e.audit != nil,
		MetricsEnabled:   cfg.Metrics.Enabled,
	})
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}

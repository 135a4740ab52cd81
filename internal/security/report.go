package security

import "time"

// ReportInput is the subset of engine configuration a posture report reads.
type ReportInput struct {
	ProductionMode   bool
	SigningAlgorithm string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AtomicRotation   bool
	CookieSecure     bool
	CookieSameSite   string
	RateLimitEnabled bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	AuditEnabled     bool
	MetricsEnabled   bool
}

// Report summarizes the security posture of a configured engine.
type Report struct {
	ProductionMode     bool
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	AtomicRotation     bool
	CookieSecure       bool
	CookieSameSite     string
	RateLimitingActive bool
	AuditEnabled       bool
	MetricsEnabled     bool
	Warnings           []string
}

// Warning messages. Stable so operators can alert on them.
const (
	WarnInsecureCookie     = "refresh cookie is sent without the Secure attribute"
	WarnLastWriterWins     = "refresh rotation is last-writer-wins; concurrent rotations may both succeed"
	WarnNoRateLimit        = "login attempts are not rate limited"
	WarnLongAccessTTL      = "access tokens live longer than one hour; logout relies on the blacklist for that long"
	WarnSharedSecretSigner = "tokens are signed with a shared HMAC secret"
)

func BuildReport(input ReportInput) Report {
	rateLimiting := input.RateLimitEnabled &&
		input.MaxLoginAttempts > 0 &&
		input.LoginWindow > 0

	r := Report{
		ProductionMode:     input.ProductionMode,
		SigningAlgorithm:   input.SigningAlgorithm,
		AccessTTL:          input.AccessTTL,
		RefreshTTL:         input.RefreshTTL,
		AtomicRotation:     input.AtomicRotation,
		CookieSecure:       input.CookieSecure,
		CookieSameSite:     input.CookieSameSite,
		RateLimitingActive: rateLimiting,
		AuditEnabled:       input.AuditEnabled,
		MetricsEnabled:     input.MetricsEnabled,
	}

	if !input.CookieSecure {
		r.Warnings = append(r.Warnings, WarnInsecureCookie)
	}
	if !input.AtomicRotation {
		r.Warnings = append(r.Warnings, WarnLastWriterWins)
	}
	if !rateLimiting {
		r.Warnings = append(r.Warnings, WarnNoRateLimit)
	}
	if input.AccessTTL > time.Hour {
		r.Warnings = append(r.Warnings, WarnLongAccessTTL)
	}
	if input.SigningAlgorithm == "hs256" {
		r.Warnings = append(r.Warnings, WarnSharedSecretSigner)
	}
	return r
}

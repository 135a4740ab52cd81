package tokenauth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the immutable engine configuration. Build clones it, so changes
// made by the caller afterwards have no effect.
type Config struct {
	JWT       JWTConfig
	Store     StoreConfig
	Cookie    CookieConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte // HS256 secret or Ed25519 private key
	PublicKey     []byte
	Issuer        string
	Audience      string
	// Now overrides the clock used for issuance and expiry. Tests only.
	Now func() time.Time
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the revocation store layout and timeouts.
type StoreConfig struct {
	RefreshPrefix   string
	BlacklistPrefix string
	// OperationTimeout bounds every store call made on behalf of a request.
	OperationTimeout time.Duration
	// AtomicRotation swaps the refresh record with compare-and-swap instead of
	// a last-writer-wins overwrite.
	AtomicRotation bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the refresh cookie. HttpOnly is always set.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
AUDIT / METRICS
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
RATE LIMIT
====================================
*/

// RateLimitConfig throttles login endpoints per client IP.
type RateLimitConfig struct {
	Enabled     bool
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// SecurityConfig holds deployment posture switches.
type SecurityConfig struct {
	// ProductionMode refuses configurations that are only acceptable locally,
	// such as refresh cookies without the Secure flag.
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. A signing key must still
// be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    14 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Store: StoreConfig{
			RefreshPrefix:    "refresh",
			BlacklistPrefix:  "blacklist",
			OperationTimeout: 2 * time.Second,
			AtomicRotation:   true,
		},
		Cookie: CookieConfig{
			Name:     "refresh",
			Path:     "/",
			Secure:   false,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Prefix:      "ratelimit",
			MaxAttempts: 5,
			Window:      time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Store
	if strings.TrimSpace(c.Store.RefreshPrefix) == "" {
		return errors.New("Store RefreshPrefix must be set")
	}
	if strings.TrimSpace(c.Store.BlacklistPrefix) == "" {
		return errors.New("Store BlacklistPrefix must be set")
	}
	if c.Store.RefreshPrefix == c.Store.BlacklistPrefix {
		return errors.New("Store prefixes must differ")
	}
	if c.Store.OperationTimeout < 0 {
		return errors.New("Store OperationTimeout must be >= 0")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name must be set")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must be set")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("RateLimit MaxAttempts must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	// Security
	if c.Security.ProductionMode && !c.Cookie.Secure {
		return errors.New("ProductionMode requires Secure refresh cookies")
	}

	return nil
}

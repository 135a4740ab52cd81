package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

const minHMACSecretBytes = 32

// Config is read once at construction. PrivateKey holds the HS256 secret or
// the Ed25519 private key; PublicKey is only used with Ed25519.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	// Now is the single clock used for iat, exp and expiry checks.
	// Defaults to time.Now.
	Now func() time.Time
}

// Manager issues and verifies signed tokens.
type Manager struct {
	config    Config
	signKey   interface{}
	verifyKey interface{}
	parser    *jwt.Parser
}

// NewManager validates cfg and returns a Manager. The key material is copied
// so later mutation of the caller's slices has no effect.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.PrivateKey = append([]byte(nil), cfg.PrivateKey...)
	cfg.PublicKey = append([]byte(nil), cfg.PublicKey...)

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACSecretBytes {
			return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minHMACSecretBytes)
		}
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.config.Now()
}

// Issue stamps claims with issued-at, expiry (now+ttl) and a fresh token id,
// then signs them. Kind, subject, role and email are taken from c as given.
func (m *Manager) Issue(c Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}

	now := m.config.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	c.ID = uuid.NewString()
	if m.config.Issuer != "" {
		c.Issuer = m.config.Issuer
	}
	if m.config.Audience != "" {
		c.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	return jwt.NewWithClaims(m.method(), c).SignedString(m.signKey)
}

// Verify checks structure, signature and expiry. A token whose expiry equals
// the current instant is expired.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	var wire wireClaims
	token, err := m.parser.ParseWithClaims(tokenStr, &wire, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, jwt.ErrTokenInvalidClaims)
	}

	return wire.toClaims(), nil
}

// RemainingTTL returns how long c stays valid from now, or zero when it is
// already expired or carries no expiry.
func (m *Manager) RemainingTTL(c *Claims) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Time.Sub(m.config.Now())
	if remaining <= 0 {
		return 0
	}
	return remaining
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

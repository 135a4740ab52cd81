package tokenauth

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/revocation"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. It is single-use: Build may succeed once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *slog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the revocation store and login throttle.
// Store.OperationTimeout only cuts socket I/O short when the client was built
// with ContextTimeoutEnabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination for audit events. It only takes effect
// when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- SIGNER --------
	signer, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Now:           cfg.JWT.Now,
	})
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION STORE --------
	store := revocation.NewStore(b.redis, cfg.Store.RefreshPrefix, cfg.Store.BlacklistPrefix)

	// -------- LOGIN THROTTLE --------
	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			Prefix:      cfg.RateLimit.Prefix,
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
			Timeout:     cfg.Store.OperationTimeout,
		})
	}

	// -------- FLOWS --------
	issuer := flows.Issuer{
		Sign:       signer.Issue,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}
	validate := flows.ValidateDeps{
		Verify:       signer.Verify,
		ValidRole:    validRoleName,
		Refresh:      store,
		Blacklist:    store,
		StoreTimeout: cfg.Store.OperationTimeout,
	}
	deps := flows.Deps{
		Issue: flows.IssueDeps{
			Issuer:       issuer,
			Store:        store,
			StoreTimeout: cfg.Store.OperationTimeout,
		},
		Validate: validate,
		Rotate: flows.RotateDeps{
			Validate:        validate,
			Issuer:          issuer,
			Store:           store,
			Atomic:          cfg.Store.AtomicRotation,
			StoreTimeout:    cfg.Store.OperationTimeout,
			RefreshMismatch: revocation.ErrRefreshMismatch,
		},
		Terminate: flows.TerminateDeps{
			Verify:       signer.Verify,
			RemainingTTL: signer.RemainingTTL,
			Refresh:      store,
			Blacklist:    store,
			StoreTimeout: cfg.Store.OperationTimeout,
		},
	}

	now := cfg.JWT.Now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:  cfg,
		signer:  signer,
		store:   store,
		limiter: limiter,
		issuer:  issuer,
		flows:   deps,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink, now),
	}

	b.built = true
	return engine, nil
}

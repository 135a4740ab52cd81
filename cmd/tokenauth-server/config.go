package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
)

// fileConfig is the optional JSON config file. Flags override it.
type fileConfig struct {
	Addr           string       `json:"addr"`
	RedisAddr      string       `json:"redis_addr"`
	PostgresDSN    string       `json:"postgres_dsn"`
	Secret         string       `json:"secret"`
	AccessTTL      string       `json:"access_ttl"`
	RefreshTTL     string       `json:"refresh_ttl"`
	CookieSecure   bool         `json:"cookie_secure"`
	CookieDomain   string       `json:"cookie_domain"`
	Production     bool         `json:"production"`
	TrustProxy     bool         `json:"trust_proxy"`
	AuditLog       bool         `json:"audit_log"`
	LogLevel       string       `json:"log_level"`
	Members        []memberSeed `json:"members"`
	SocialLinks    []socialLink `json:"social_links"`
	ShutdownPeriod string       `json:"shutdown_period"`
	OTelInterval   string       `json:"otel_interval"`
}

type memberSeed struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type socialLink struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	SubjectID  string `json:"subject_id"`
}

type serverConfig struct {
	Addr           string
	RedisAddr      string
	PostgresDSN    string
	TrustProxy     bool
	AuditLog       bool
	LogLevel       slog.Level
	ShutdownPeriod time.Duration
	// OTelInterval enables the OpenTelemetry metrics push when positive.
	OTelInterval   time.Duration
	Auth           tokenauth.Config
	Members        []memberSeed
	SocialLinks    []socialLink
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Addr:           ":8080",
		LogLevel:       "info",
		ShutdownPeriod: "10s",
	}
}

func loadConfig(args []string) (serverConfig, error) {
	fs := flag.NewFlagSet("tokenauth-server", flag.ContinueOnError)
	var (
		configPath   = fs.String("config", "", "path to a JSON config file")
		addr         = fs.String("addr", "", "listen address")
		redisAddr    = fs.String("redis", "", "redis address; if empty, REDIS_ADDR env or an in-process miniredis is used")
		postgresDSN  = fs.String("postgres", "", "postgres DSN for the member directory; if empty, DATABASE_URL env or an in-memory directory is used")
		logLevel     = fs.String("log-level", "", "debug, info, warn or error")
		cookieSecure = fs.Bool("cookie-secure", false, "set the Secure attribute on the refresh cookie")
		production   = fs.Bool("production", false, "refuse insecure cookie settings")
		otelInterval = fs.String("otel-interval", "", "push OpenTelemetry metrics to stderr at this interval; empty disables")
	)
	if err := fs.Parse(args); err != nil {
		return serverConfig{}, err
	}

	fc := defaultFileConfig()
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return serverConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(raw, &fc); err != nil {
			return serverConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			fc.Addr = *addr
		case "redis":
			fc.RedisAddr = *redisAddr
		case "postgres":
			fc.PostgresDSN = *postgresDSN
		case "log-level":
			fc.LogLevel = *logLevel
		case "cookie-secure":
			fc.CookieSecure = *cookieSecure
		case "production":
			fc.Production = *production
		case "otel-interval":
			fc.OTelInterval = *otelInterval
		}
	})
	if fc.RedisAddr == "" {
		fc.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if fc.PostgresDSN == "" {
		fc.PostgresDSN = os.Getenv("DATABASE_URL")
	}
	if secret := os.Getenv("TOKENAUTH_SECRET"); secret != "" {
		fc.Secret = secret
	}

	return fc.resolve()
}

func (fc fileConfig) resolve() (serverConfig, error) {
	out := serverConfig{
		Addr:        fc.Addr,
		RedisAddr:   fc.RedisAddr,
		PostgresDSN: fc.PostgresDSN,
		TrustProxy:  fc.TrustProxy,
		AuditLog:    fc.AuditLog,
		Auth:        tokenauth.DefaultConfig(),
		Members:     fc.Members,
		SocialLinks: fc.SocialLinks,
	}

	level, err := parseLevel(fc.LogLevel)
	if err != nil {
		return serverConfig{}, err
	}
	out.LogLevel = level

	if out.ShutdownPeriod, err = parseDuration("shutdown_period", fc.ShutdownPeriod, 10*time.Second); err != nil {
		return serverConfig{}, err
	}
	if out.OTelInterval, err = parseDuration("otel_interval", fc.OTelInterval, 0); err != nil {
		return serverConfig{}, err
	}
	if out.Auth.JWT.AccessTTL, err = parseDuration("access_ttl", fc.AccessTTL, out.Auth.JWT.AccessTTL); err != nil {
		return serverConfig{}, err
	}
	if out.Auth.JWT.RefreshTTL, err = parseDuration("refresh_ttl", fc.RefreshTTL, out.Auth.JWT.RefreshTTL); err != nil {
		return serverConfig{}, err
	}

	out.Auth.JWT.PrivateKey = []byte(fc.Secret)
	out.Auth.Cookie.Secure = fc.CookieSecure
	out.Auth.Cookie.Domain = fc.CookieDomain
	out.Auth.Security.ProductionMode = fc.Production
	out.Auth.Audit.Enabled = fc.AuditLog

	return out, nil
}

func parseDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, errors.New("log level must be debug, info, warn or error")
	}
	return level, nil
}

// Command tokenauth-server runs the token lifecycle endpoints over HTTP.
//
// With no -redis address it starts an in-process miniredis, so it runs with
// no external dependencies:
//
//	go run ./cmd/tokenauth-server -config server.json
//
// Members live in memory unless -postgres (or DATABASE_URL) names a database;
// its schema is migrated on start.
//
//	curl -i -c jar.txt -X POST localhost:8080/auth/login \
//	  -d '{"email":"alice@example.com","password":"correct-horse"}'
//	curl -i localhost:8080/me -H "Authorization: Bearer <ACCESS_TOKEN>"
//	curl -i -b jar.txt -c jar.txt -X POST localhost:8080/auth/token/refresh/full
//	curl -i -b jar.txt -c jar.txt -X POST localhost:8080/auth/logout \
//	  -H "Authorization: Bearer <ACCESS_TOKEN>"
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi"
	"github.com/MrEthical07/tokenauth/metrics/export/prometheus"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/alicebob/miniredis/v2"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cleanup, err := openRedis(cfg.RedisAddr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(cfg.Auth.JWT.PrivateKey) == 0 {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("generate signing key: %w", err)
		}
		cfg.Auth.JWT.PrivateKey = key
		logger.Warn("no secret configured, using an ephemeral signing key")
	}

	builder := tokenauth.New().WithConfig(cfg.Auth).WithRedis(client).WithLogger(logger)
	if cfg.AuditLog {
		builder = builder.WithAuditSink(tokenauth.NewJSONWriterSink(os.Stdout))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	if cfg.OTelInterval > 0 {
		stopOTel, err := startOTelMetrics(engine, os.Stderr, cfg.OTelInterval)
		if err != nil {
			return err
		}
		defer func() {
			if err := stopOTel(context.Background()); err != nil {
				logger.Warn("otel shutdown", slog.Any("error", err))
			}
		}()
		logger.Info("pushing otel metrics", slog.Duration("interval", cfg.OTelInterval))
	}

	for _, warning := range engine.SecurityReport().Warnings {
		logger.Warn("security posture", slog.String("warning", warning))
	}

	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	var members memberDirectory = newMemberStore(hasher)
	if cfg.PostgresDSN != "" {
		pg, err := openPostgresMembers(ctx, cfg.PostgresDSN, hasher)
		if err != nil {
			return err
		}
		defer pg.Close()
		members = pg
		logger.Info("using postgres member directory")
	}
	if err := seedMembers(ctx, members, cfg); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(engine, members, cfg.TrustProxy, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}, ContextTimeoutEnabled: true})
		logger.Info("using redis", slog.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}, ContextTimeoutEnabled: true})
	logger.Warn("no redis configured, using in-process miniredis", slog.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seedMembers(ctx context.Context, members memberDirectory, cfg serverConfig) error {
	for _, seed := range cfg.Members {
		if err := members.Add(ctx, seed); err != nil {
			return err
		}
	}
	for _, link := range cfg.SocialLinks {
		if err := members.AddLink(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

func newRouter(engine *tokenauth.Engine, members memberDirectory, trustProxy bool, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	httpapi.New(engine,
		httpapi.WithAuthenticator(members),
		httpapi.WithMemberLinker(members),
		httpapi.WithLogger(logger),
		httpapi.WithTrustForwardedFor(trustProxy),
	).Register(mux)

	reg := promclient.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCollector(engine),
	)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", healthHandler(engine))
	mux.Handle("GET /me", middleware.Chain(http.HandlerFunc(meHandler),
		middleware.Gate(engine),
		middleware.RequireAuthenticated,
	))
	mux.Handle("GET /admin/ping", middleware.Chain(http.HandlerFunc(adminPingHandler),
		middleware.Gate(engine),
		middleware.RequireRole(tokenauth.RoleAdmin),
	))

	return httpapi.WithRequestLogging(mux, logger)
}

func healthHandler(engine *tokenauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latency, err := engine.Ping(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"redis_latency": latency.String(),
		})
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := tokenauth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"subject_id": p.SubjectID,
		"role":       string(p.Role),
		"email":      p.Email,
	})
}

func adminPingHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

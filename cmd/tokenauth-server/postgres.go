package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/social"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pgMembers is a member directory backed by Postgres.
type pgMembers struct {
	pool   *pgxpool.Pool
	hasher *password.Hasher
}

func openPostgresMembers(ctx context.Context, dsn string, hasher *password.Hasher) (*pgMembers, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrateMembers(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgMembers{pool: pool, hasher: hasher}, nil
}

func migrateMembers(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (s *pgMembers) Close() {
	s.pool.Close()
}

// Add inserts or replaces a member record.
func (s *pgMembers) Add(ctx context.Context, seed memberSeed) error {
	role, err := seed.validate()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return fmt.Errorf("member %q: %w", seed.Email, err)
	}

	const q = `
INSERT INTO members (subject_id, email, role, password_hash)
VALUES ($1, $2, $3, $4)
ON CONFLICT (subject_id) DO UPDATE
SET email = EXCLUDED.email, role = EXCLUDED.role, password_hash = EXCLUDED.password_hash`
	if _, err := s.pool.Exec(ctx, q, seed.SubjectID, normalizeEmail(seed.Email), string(role), hash); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %q: email already taken", seed.Email)
		}
		return fmt.Errorf("member %q: %w", seed.Email, err)
	}
	return nil
}

func (s *pgMembers) AddLink(ctx context.Context, link socialLink) error {
	const q = `
INSERT INTO social_links (provider, provider_id, subject_id)
VALUES ($1, $2, $3)
ON CONFLICT (provider, provider_id) DO UPDATE SET subject_id = EXCLUDED.subject_id`
	if _, err := s.pool.Exec(ctx, q, strings.ToLower(link.Provider), link.ProviderID, link.SubjectID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("social link %s/%s: unknown subject %q", link.Provider, link.ProviderID, link.SubjectID)
		}
		return fmt.Errorf("social link %s/%s: %w", link.Provider, link.ProviderID, err)
	}
	return nil
}

// Authenticate spends one hash comparison even for unknown emails.
func (s *pgMembers) Authenticate(ctx context.Context, email, pw string) (httpapi.Member, error) {
	const q = `SELECT subject_id, email, role, password_hash FROM members WHERE email = $1`

	var (
		m    httpapi.Member
		role string
		hash string
	)
	err := s.pool.QueryRow(ctx, q, normalizeEmail(email)).Scan(&m.SubjectID, &m.Email, &role, &hash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return httpapi.Member{}, fmt.Errorf("lookup member: %w", err)
	}

	if !s.hasher.Compare(pw, hash) || err != nil {
		return httpapi.Member{}, httpapi.ErrInvalidCredentials
	}
	m.Role = tokenauth.Role(role)
	return m, nil
}

func (s *pgMembers) Link(ctx context.Context, id social.Identity) (httpapi.Member, bool, error) {
	const q = `
SELECT m.subject_id, m.email, m.role
FROM social_links l
JOIN members m ON m.subject_id = l.subject_id
WHERE l.provider = $1 AND l.provider_id = $2`

	var (
		m    httpapi.Member
		role string
	)
	err := s.pool.QueryRow(ctx, q, strings.ToLower(id.Provider), id.ProviderID).Scan(&m.SubjectID, &m.Email, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return httpapi.Member{}, false, nil
	}
	if err != nil {
		return httpapi.Member{}, false, fmt.Errorf("lookup social link: %w", err)
	}
	m.Role = tokenauth.Role(role)
	return m, true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

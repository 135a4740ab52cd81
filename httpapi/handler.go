package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/social"
)

// ErrInvalidCredentials is returned by an Authenticator for an unknown email
// or a wrong password. Both look the same to the client.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Member is the identity a login boundary hands to the session coordinator.
type Member struct {
	SubjectID string
	Role      tokenauth.Role
	Email     string
}

// Authenticator checks email/password credentials against member storage.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Member, error)
}

// MemberLinker resolves a social identity to a member. linked is false for
// identities that have no member yet; they receive guest access.
type MemberLinker interface {
	Link(ctx context.Context, identity social.Identity) (member Member, linked bool, err error)
}

// Sessions is the engine surface the handlers use. *tokenauth.Engine
// satisfies it.
type Sessions interface {
	IssueSession(ctx context.Context, subjectID string, role tokenauth.Role, email string) (*tokenauth.Session, error)
	IssueGuestAccess(ctx context.Context, email string) (*tokenauth.Session, error)
	RotateAccessOnly(ctx context.Context, presentedRefresh string) (*tokenauth.Session, error)
	RotateBoth(ctx context.Context, presentedRefresh string) (*tokenauth.Session, error)
	Terminate(ctx context.Context, presentedAccess, presentedRefresh string) tokenauth.LogoutResult
	AllowAttempt(ctx context.Context, endpoint, ip string) error
	CookieConfig() tokenauth.CookieConfig
	RefreshTTL() time.Duration
}

// Handler serves the authentication endpoints.
type Handler struct {
	sessions Sessions
	auth     Authenticator
	linker   MemberLinker
	social   *social.Registry
	logger   *slog.Logger

	trustForwardedFor bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuthenticator enables POST /auth/login.
func WithAuthenticator(a Authenticator) Option {
	return func(h *Handler) { h.auth = a }
}

// WithMemberLinker enables POST /auth/social/{provider}.
func WithMemberLinker(l MemberLinker) Option {
	return func(h *Handler) { h.linker = l }
}

// WithSocialRegistry replaces the default google/kakao/naver registry.
func WithSocialRegistry(r *social.Registry) Option {
	return func(h *Handler) { h.social = r }
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithTrustForwardedFor takes the client IP from X-Forwarded-For. Enable only
// behind a proxy that overwrites the header.
func WithTrustForwardedFor(trust bool) Option {
	return func(h *Handler) { h.trustForwardedFor = trust }
}

// New returns a Handler backed by sessions.
func New(sessions Sessions, opts ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		social:   social.DefaultRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the endpoints on mux. Login and social login are mounted
// only when their collaborators are configured.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/token/refresh", h.refreshAccess)
	mux.HandleFunc("POST /auth/token/refresh/full", h.refreshFull)
	mux.HandleFunc("POST /auth/logout", h.logout)
	if h.auth != nil {
		mux.HandleFunc("POST /auth/login", h.login)
	}
	if h.linker != nil && h.social != nil {
		mux.HandleFunc("POST /auth/social/{provider}", h.socialLogin)
	}
}

func (h *Handler) requestContext(r *http.Request) (context.Context, string) {
	ip := clientIP(r, h.trustForwardedFor)
	return tokenauth.WithClientIP(r.Context(), ip), ip
}

func (h *Handler) withClientIP(r *http.Request) context.Context {
	ctx, _ := h.requestContext(r)
	return ctx
}

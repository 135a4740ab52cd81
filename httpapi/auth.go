package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/social"
)

const maxBodyBytes = 1 << 20

func (h *Handler) refreshAccess(w http.ResponseWriter, r *http.Request) {
	refresh, ok := h.refreshCookie(r)
	if !ok {
		writeError(w, errInvalidToken)
		return
	}

	s, err := h.sessions.RotateAccessOnly(h.withClientIP(r), refresh)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	setAccessHeader(w, s.AccessToken)
	writeOK(w, "access token reissued", nil)
}

func (h *Handler) refreshFull(w http.ResponseWriter, r *http.Request) {
	refresh, ok := h.refreshCookie(r)
	if !ok {
		writeError(w, errInvalidToken)
		return
	}

	s, err := h.sessions.RotateBoth(h.withClientIP(r), refresh)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	setAccessHeader(w, s.AccessToken)
	h.setRefreshCookie(w, s.RefreshToken)
	writeOK(w, "access and refresh tokens reissued", nil)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	refresh, _ := h.refreshCookie(r)
	access, _ := tokenauth.BearerToken(r.Header.Get("Authorization"))

	res := h.sessions.Terminate(h.withClientIP(r), access, refresh)
	h.logger.LogAttrs(r.Context(), slog.LevelDebug, "logout",
		slog.String("subject_id", res.SubjectID),
		slog.Bool("refresh_deleted", res.RefreshDeleted),
		slog.Bool("access_revoked", res.AccessRevoked),
	)

	h.clearRefreshCookie(w)
	w.Header().Set("Authorization", "")
	writeOK(w, "logout success", nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, ip := h.requestContext(r)

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, errBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, errBadRequest)
		return
	}

	if err := h.sessions.AllowAttempt(ctx, "login", ip); err != nil {
		h.fail(w, r, err)
		return
	}

	member, err := h.auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.sessions.IssueSession(ctx, member.SubjectID, member.Role, member.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	setAccessHeader(w, s.AccessToken)
	h.setRefreshCookie(w, s.RefreshToken)
	writeOK(w, "login success", sessionData{SubjectID: s.SubjectID, Role: s.Role})
}

type sessionData struct {
	SubjectID string         `json:"subject_id,omitempty"`
	Role      tokenauth.Role `json:"role"`
	Guest     bool           `json:"guest"`
}

func (h *Handler) socialLogin(w http.ResponseWriter, r *http.Request) {
	ctx, ip := h.requestContext(r)
	provider := r.PathValue("provider")

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var attrs social.Attributes
	if err := dec.Decode(&attrs); err != nil {
		writeError(w, errBadRequest)
		return
	}

	if err := h.sessions.AllowAttempt(ctx, "social", ip); err != nil {
		h.fail(w, r, err)
		return
	}

	identity, err := h.social.Extract(provider, attrs)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	member, linked, err := h.linker.Link(ctx, identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if !linked {
		s, err := h.sessions.IssueGuestAccess(ctx, identity.Email)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		setAccessHeader(w, s.AccessToken)
		writeOK(w, "guest access issued", sessionData{Role: s.Role, Guest: true})
		return
	}

	s, err := h.sessions.IssueSession(ctx, member.SubjectID, member.Role, member.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	setAccessHeader(w, s.AccessToken)
	h.setRefreshCookie(w, s.RefreshToken)
	writeOK(w, "login success", sessionData{SubjectID: s.SubjectID, Role: s.Role})
}

// fail maps err to a response. Token failures are checked first because a
// validation-time store failure is joined with ErrUnauthorized.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr apiError
	switch {
	case errors.Is(err, tokenauth.ErrRateLimited):
		apiErr = errRateLimited
	case errors.Is(err, tokenauth.ErrUnauthorized):
		apiErr = errInvalidToken
	case errors.Is(err, ErrInvalidCredentials):
		apiErr = errLoginFailed
	case errors.Is(err, social.ErrUnknownProvider):
		apiErr = errUnknownProvider
	case errors.Is(err, social.ErrMissingID):
		apiErr = errBadRequest
	case errors.Is(err, tokenauth.ErrStoreUnavailable):
		apiErr = errUnavailable
	default:
		apiErr = errInternal
	}

	if apiErr.status >= http.StatusInternalServerError {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "auth request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	writeError(w, apiErr)
}

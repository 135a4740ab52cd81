package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// ErrSubjectRequired is returned when a session is requested for an empty
// subject id. Guests receive access-only credentials instead.
var ErrSubjectRequired = errors.New("subject id required for session")

// Issuer mints access and refresh tokens with the configured TTLs.
// It depends on nothing but the signer.
type Issuer struct {
	Sign       func(jwt.Claims, time.Duration) (string, error)
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueAccess mints an ACCESS token. Empty subject or email are valid values.
func (i Issuer) IssueAccess(subjectID, role, email string) (string, error) {
	return i.Sign(jwt.Claims{
		SubjectID: subjectID,
		Role:      role,
		Email:     email,
		Kind:      jwt.KindAccess,
	}, i.AccessTTL)
}

// IssueRefresh mints a REFRESH token.
func (i Issuer) IssueRefresh(subjectID, role, email string) (string, error) {
	return i.Sign(jwt.Claims{
		SubjectID: subjectID,
		Role:      role,
		Email:     email,
		Kind:      jwt.KindRefresh,
	}, i.RefreshTTL)
}

// IssueFailureKind classifies session issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureSubject
	IssueFailureAccess
	IssueFailureRefresh
	IssueFailurePersist
)

// IssueResult carries the issued pair or failure metadata.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	AccessToken  string
	RefreshToken string
}

// IssueDeps captures issueSession dependencies.
type IssueDeps struct {
	Issuer       Issuer
	Store        RefreshWriter
	StoreTimeout time.Duration
}

// RunIssueSession issues an access/refresh pair and binds the refresh token to
// the subject. Nothing is returned to the caller unless the write succeeded.
func RunIssueSession(ctx context.Context, subjectID, role, email string, deps IssueDeps) IssueResult {
	if subjectID == "" {
		return IssueResult{Failure: IssueFailureSubject, Err: ErrSubjectRequired}
	}

	access, err := deps.Issuer.IssueAccess(subjectID, role, email)
	if err != nil {
		return IssueResult{Failure: IssueFailureAccess, Err: err}
	}
	refresh, err := deps.Issuer.IssueRefresh(subjectID, role, email)
	if err != nil {
		return IssueResult{Failure: IssueFailureRefresh, Err: err}
	}

	storeCtx, cancel := withStoreDeadline(ctx, deps.StoreTimeout)
	defer cancel()
	if err := deps.Store.SaveRefresh(storeCtx, subjectID, refresh, deps.Issuer.RefreshTTL); err != nil {
		return IssueResult{Failure: IssueFailurePersist, Err: err}
	}

	return IssueResult{AccessToken: access, RefreshToken: refresh}
}

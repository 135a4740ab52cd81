package flows

import (
	"context"
	"errors"
	"time"
)

// RotateMode selects between access-only and full rotation.
type RotateMode int

const (
	RotateAccessOnly RotateMode = iota
	RotateBoth
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureInvalid
	RotateFailureIssueAccess
	RotateFailureIssueRefresh
	RotateFailureConflict
	RotateFailurePersist
)

// RotateResult carries the new credentials or failure metadata. Check is
// always populated so callers can report the validation reason.
type RotateResult struct {
	Failure      RotateFailureKind
	Err          error
	Check        RefreshCheck
	AccessToken  string
	RefreshToken string
}

// RotateDeps captures rotation dependencies. With Atomic set, full rotation
// swaps the record only while it still holds the presented token; otherwise
// the new value is written last-writer-wins.
type RotateDeps struct {
	Validate        ValidateDeps
	Issuer          Issuer
	Store           RefreshWriter
	Atomic          bool
	StoreTimeout    time.Duration
	RefreshMismatch error
}

// RunRotate validates presented and issues new credentials. No store state
// changes unless every prior step succeeded.
func RunRotate(ctx context.Context, presented string, mode RotateMode, deps RotateDeps) RotateResult {
	check := RunCheckRefresh(ctx, presented, deps.Validate)
	if !check.Valid() {
		return RotateResult{Failure: RotateFailureInvalid, Err: check.Err, Check: check}
	}

	access, err := deps.Issuer.IssueAccess(check.SubjectID, check.Role, check.Email)
	if err != nil {
		return RotateResult{Failure: RotateFailureIssueAccess, Err: err, Check: check}
	}
	if mode == RotateAccessOnly {
		return RotateResult{Check: check, AccessToken: access}
	}

	refresh, err := deps.Issuer.IssueRefresh(check.SubjectID, check.Role, check.Email)
	if err != nil {
		return RotateResult{Failure: RotateFailureIssueRefresh, Err: err, Check: check}
	}

	storeCtx, cancel := withStoreDeadline(ctx, deps.StoreTimeout)
	defer cancel()
	if deps.Atomic {
		err = deps.Store.RotateRefresh(storeCtx, check.SubjectID, presented, refresh, deps.Issuer.RefreshTTL)
	} else {
		err = deps.Store.SaveRefresh(storeCtx, check.SubjectID, refresh, deps.Issuer.RefreshTTL)
	}
	if err != nil {
		if deps.RefreshMismatch != nil && errors.Is(err, deps.RefreshMismatch) {
			return RotateResult{Failure: RotateFailureConflict, Err: err, Check: check}
		}
		return RotateResult{Failure: RotateFailurePersist, Err: err, Check: check}
	}

	return RotateResult{Check: check, AccessToken: access, RefreshToken: refresh}
}

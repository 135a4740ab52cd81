package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// TerminateDeps captures logout dependencies.
type TerminateDeps struct {
	Verify       VerifyFunc
	RemainingTTL func(*jwt.Claims) time.Duration
	Refresh      RefreshWriter
	Blacklist    BlacklistWriter
	StoreTimeout time.Duration
}

// TerminateResult reports each sub-step independently. Skip kinds explain why
// a step did nothing; Err fields hold store failures.
type TerminateResult struct {
	SubjectID      string
	RefreshDeleted bool
	RefreshSkip    FailureKind
	RefreshErr     error
	AccessRevoked  bool
	AccessSkip     FailureKind
	AccessErr      error
}

// RunTerminate deletes the refresh record named by presentedRefresh and
// blacklists presentedAccess for its remaining lifetime. Both steps are best
// effort and independent; either token may be empty.
func RunTerminate(ctx context.Context, presentedAccess, presentedRefresh string, deps TerminateDeps) TerminateResult {
	var res TerminateResult

	if presentedRefresh != "" {
		kc := VerifyKind(presentedRefresh, jwt.KindRefresh, deps.Verify)
		switch {
		case kc.Failure != FailureNone:
			res.RefreshSkip = kc.Failure
		case !kc.Claims.HasSubject() || kc.Claims.SubjectID == "":
			res.RefreshSkip = FailureClaimsIncomplete
		default:
			res.SubjectID = kc.Claims.SubjectID
			storeCtx, cancel := withStoreDeadline(ctx, deps.StoreTimeout)
			err := deps.Refresh.DeleteRefresh(storeCtx, kc.Claims.SubjectID)
			cancel()
			if err != nil {
				res.RefreshErr = err
			} else {
				res.RefreshDeleted = true
			}
		}
	}

	if presentedAccess != "" {
		kc := VerifyKind(presentedAccess, jwt.KindAccess, deps.Verify)
		if kc.Failure != FailureNone {
			res.AccessSkip = kc.Failure
			return res
		}
		if res.SubjectID == "" {
			res.SubjectID = kc.Claims.SubjectID
		}
		remaining := deps.RemainingTTL(kc.Claims)
		if remaining <= 0 {
			res.AccessSkip = FailureExpired
			return res
		}
		storeCtx, cancel := withStoreDeadline(ctx, deps.StoreTimeout)
		err := deps.Blacklist.Blacklist(storeCtx, presentedAccess, remaining)
		cancel()
		if err != nil {
			res.AccessErr = err
		} else {
			res.AccessRevoked = true
		}
	}

	return res
}

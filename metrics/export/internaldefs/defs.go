package internaldefs

import (
	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = "tokenauth_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricSessionIssued, Name: "tokenauth_session_issued_total", Help: "Sessions issued after login."},
	{ID: tokenauth.MetricSessionIssueFailure, Name: "tokenauth_session_issue_failure_total", Help: "Session issue attempts that failed."},
	{ID: tokenauth.MetricGuestAccessIssued, Name: "tokenauth_guest_access_issued_total", Help: "Guest access tokens issued."},
	{ID: tokenauth.MetricRefreshAccessSuccess, Name: "tokenauth_refresh_access_success_total", Help: "Successful access-only refreshes."},
	{ID: tokenauth.MetricRefreshFullSuccess, Name: "tokenauth_refresh_full_success_total", Help: "Successful full refreshes."},
	{ID: tokenauth.MetricRefreshFailure, Name: "tokenauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: tokenauth.MetricRefreshNotBound, Name: "tokenauth_refresh_not_bound_total", Help: "Refresh tokens not bound to their subject."},
	{ID: tokenauth.MetricRefreshExpired, Name: "tokenauth_refresh_expired_total", Help: "Expired refresh tokens presented."},
	{ID: tokenauth.MetricRefreshKindMismatch, Name: "tokenauth_refresh_kind_mismatch_total", Help: "Non-refresh tokens presented for refresh."},
	{ID: tokenauth.MetricRefreshStoreUnavailable, Name: "tokenauth_refresh_store_unavailable_total", Help: "Refresh checks failed closed on store errors."},
	{ID: tokenauth.MetricRotationConflict, Name: "tokenauth_rotation_conflict_total", Help: "Rotations that lost a compare-and-swap race."},
	{ID: tokenauth.MetricAccessAccepted, Name: "tokenauth_access_accepted_total", Help: "Access tokens accepted at the gate."},
	{ID: tokenauth.MetricAccessRejected, Name: "tokenauth_access_rejected_total", Help: "Access tokens rejected at the gate."},
	{ID: tokenauth.MetricBlacklistHit, Name: "tokenauth_blacklist_hit_total", Help: "Access tokens rejected as revoked."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Logout operations."},
	{ID: tokenauth.MetricLogoutRefreshDeleted, Name: "tokenauth_logout_refresh_deleted_total", Help: "Refresh records deleted at logout."},
	{ID: tokenauth.MetricLogoutAccessRevoked, Name: "tokenauth_logout_access_revoked_total", Help: "Access tokens blacklisted at logout."},
	{ID: tokenauth.MetricLogoutStepFailure, Name: "tokenauth_logout_step_failure_total", Help: "Logout steps that failed on store errors."},
	{ID: tokenauth.MetricRateLimitHit, Name: "tokenauth_rate_limit_hit_total", Help: "Attempts denied by the rate limiter."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricValidateLatency, Name: "tokenauth_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramBounds are the Prometheus le labels, matching the engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket is +Inf and has no entry.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is HistogramBounds rendered safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

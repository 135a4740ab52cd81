// Package flows contains pure-function orchestrators for every token
// lifecycle operation.
//
// Each flow (RunIssueSession, RunCheckRefresh, RunCheckAccess, RunRotate,
// RunTerminate) accepts a typed dependency struct and returns a tagged result
// whose Failure field names exactly which check failed. The root package maps
// those kinds to public errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flows coordinate the signer and the revocation store. They do NOT own
// either; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Call the store without a deadline derived from the request context.
package flows

// Package audit relays token lifecycle events (session issued, rotation,
// rejected refresh, logout) to a caller-supplied Sink without blocking the
// request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines writer, no-op).
//   - [Dispatcher]: buffered async relay, drop-if-full or block-if-full.
//   - [Event]: timestamp, type, subject, role, client IP, outcome, reason.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine does.
//   - Carry token values. Events name subjects, never credentials.
//   - Import tokenauth or any sibling internal package.
package audit

// Package social maps a completed OAuth2 provider profile to a provider
// neutral identity. Each provider is a pure extraction function registered by
// id; the OAuth2 exchange itself happens before this package is involved.
package social

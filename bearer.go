package tokenauth

import "strings"

// BearerToken parses an Authorization header value. present is true when the
// value uses the Bearer scheme, case-insensitively, even if the credential
// after it is empty. Other schemes and an empty header count as no token.
func BearerToken(header string) (token string, present bool) {
	const scheme = "bearer"
	header = strings.TrimSpace(header)
	if len(header) < len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}

	rest := header[len(scheme):]
	if rest == "" {
		return "", true
	}
	if rest[0] != ' ' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

package password

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Params are the Argon2id cost parameters and password bounds.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinPasswordBytes int
	MaxPasswordBytes int // 0 means unbounded
}

// DefaultParams follows the RFC 9106 second recommendation.
func DefaultParams() Params {
	return Params{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MinPasswordBytes: 8,
		MaxPasswordBytes: 1024,
	}
}

// Hasher produces and checks Argon2id PHC strings. It is safe for concurrent use.
type Hasher struct {
	params Params
	dummy  string
}

// NewHasher validates p and precomputes a dummy hash for Compare on unknown
// accounts.
func NewHasher(p Params) (*Hasher, error) {
	if p.Memory < minMemoryKB || p.Time < minTimeCost || p.Parallelism < minParallelism ||
		p.SaltLength < minSaltLength || p.KeyLength < minKeyLength {
		return nil, ErrWeakParams
	}
	if p.MaxPasswordBytes > 0 && p.MaxPasswordBytes < p.MinPasswordBytes {
		return nil, fmt.Errorf("%w: max password bytes below min", ErrWeakParams)
	}

	h := &Hasher{params: p}
	dummy, err := h.encode([]byte("dummy-password-for-timing"))
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns the PHC encoding of password under fresh salt.
func (h *Hasher) Hash(password string) (string, error) {
	if err := h.checkLength(password); err != nil {
		return "", err
	}
	return h.encode([]byte(password))
}

// Verify reports whether password matches encoded. A malformed encoding is an
// error; a mismatch is not.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if h.checkLength(password) != nil {
		return false, nil
	}
	d, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// Compare is Verify for callers that may not have a stored hash. With an
// empty encoded value it still spends one hash computation and returns false,
// so unknown accounts take as long as wrong passwords.
func (h *Hasher) Compare(password, encoded string) bool {
	if encoded == "" {
		_, _ = h.Verify(password, h.dummy)
		return false
	}
	ok, err := h.Verify(password, encoded)
	return err == nil && ok
}

// NeedsRehash reports whether encoded was produced with weaker parameters than
// the hasher's current ones.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	d, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return h.params.Memory > d.memory ||
		h.params.Time > d.time ||
		h.params.Parallelism > d.parallelism ||
		int(h.params.KeyLength) != len(d.key), nil
}

func (h *Hasher) checkLength(password string) error {
	n := len(password)
	if n < h.params.MinPasswordBytes || (h.params.MaxPasswordBytes > 0 && n > h.params.MaxPasswordBytes) {
		return ErrPasswordLength
	}
	return nil
}

func (h *Hasher) encode(password []byte) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(password, salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	return encodePHC(digest{
		memory:      h.params.Memory,
		time:        h.params.Time,
		parallelism: h.params.Parallelism,
		salt:        salt,
		key:         key,
	}), nil
}

package password

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

type digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func encodePHC(d digest) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		d.memory, d.time, d.parallelism,
		base64.RawStdEncoding.EncodeToString(d.salt),
		base64.RawStdEncoding.EncodeToString(d.key),
	)
}

func decodePHC(encoded string) (digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return digest{}, ErrInvalidHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return digest{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	var d digest
	if err := parseParams(parts[3], &d); err != nil {
		return digest{}, err
	}

	var err error
	if d.salt, err = decodeB64(parts[4]); err != nil || len(d.salt) < int(minSaltLength) {
		return digest{}, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	if d.key, err = decodeB64(parts[5]); err != nil || len(d.key) < int(minKeyLength) {
		return digest{}, fmt.Errorf("%w: key", ErrInvalidHash)
	}
	return d, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func parseParams(s string, d *digest) error {
	var seen int
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: parameter %q", ErrInvalidHash, pair)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minMemoryKB {
				return fmt.Errorf("%w: memory", ErrInvalidHash)
			}
			d.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minTimeCost {
				return fmt.Errorf("%w: time", ErrInvalidHash)
			}
			d.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || uint8(n) < minParallelism {
				return fmt.Errorf("%w: parallelism", ErrInvalidHash)
			}
			d.parallelism = uint8(n)
		default:
			return fmt.Errorf("%w: parameter %q", ErrInvalidHash, k)
		}
		seen++
	}
	if seen != 3 || d.memory == 0 || d.time == 0 || d.parallelism == 0 {
		return fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	return nil
}

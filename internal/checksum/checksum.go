// Package checksum dispatches to the plaintext checksum kinds selectable
// with -S: crc32, sha256, sha3-256, and blake2b. It computes and verifies
// the per-chunk plaintext checksum; chunk and header authentication (HMAC
// in crypto mode, CRC32 otherwise) lives in internal/container/auth.go and
// does not go through this package.
package checksum

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"hash/crc32"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Kind identifies a checksum algorithm. It is stored in 3 bits of the file
// header flags field, leaving room for up to 8 kinds.
type Kind uint8

const (
	CRC32 Kind = iota
	SHA256
	SHA3256
	BLAKE2b
)

// ParseKind resolves the -S flag value to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "crc32", "":
		return CRC32, nil
	case "sha256":
		return SHA256, nil
	case "sha3-256":
		return SHA3256, nil
	case "blake2b":
		return BLAKE2b, nil
	default:
		return 0, fmt.Errorf("unknown checksum kind %q", name)
	}
}

func (k Kind) String() string {
	switch k {
	case CRC32:
		return "crc32"
	case SHA256:
		return "sha256"
	case SHA3256:
		return "sha3-256"
	case BLAKE2b:
		return "blake2b"
	default:
		return "unknown"
	}
}

// Size returns the digest size in bytes for the kind; this is the
// cksum_bytes value stored per chunk when crypto is disabled.
func (k Kind) Size() int {
	switch k {
	case CRC32:
		return 4
	case SHA256, SHA3256:
		return 32
	case BLAKE2b:
		return 32
	default:
		return 0
	}
}

// New returns a fresh hash.Hash for the kind.
func New(k Kind) (hash.Hash, error) {
	switch k {
	case CRC32:
		return crc32.NewIEEE(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA3256:
		return sha3.New256(), nil
	case BLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("checksum: unknown kind %v", k)
	}
}

// Compute hashes buf with the given kind in one call.
func Compute(k Kind, buf []byte) ([]byte, error) {
	h, err := New(k)
	if err != nil {
		return nil, err
	}
	h.Write(buf)
	return h.Sum(nil), nil
}

// Package crypto provides the cryptographic primitives the pipeline treats
// as an external collaborator: password-based key derivation, per-chunk
// stream ciphers, and HMAC-based authentication.
package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"crypto/rand"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("fatal crypto/rand error: %w", err)
	}

	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, errors.New("fatal crypto/rand error: produced zero bytes")
	}

	return b, nil
}

// Argon2id parameters used for password-based key derivation.
//
// CRITICAL: these parameters MUST NOT change, or existing containers
// cannot be decrypted.
const (
	Argon2Passes  = 4
	Argon2Memory  = 1 << 20 // 1 GiB
	Argon2Threads = 4
)

// DeriveKey derives a root key from password and salt using Argon2id.
// keyLen is the requested output size (16 or 32 bytes, per -k).
func DeriveKey(password, salt []byte, keyLen int) ([]byte, error) {
	key := argon2.IDKey(password, salt, Argon2Passes, Argon2Memory, Argon2Threads, uint32(keyLen))

	if bytes.Equal(key, make([]byte, keyLen)) {
		return nil, errors.New("fatal crypto/argon2 error: produced zero key")
	}

	return key, nil
}

// HKDF subkey sizes consumed, in order, from the root key's HKDF stream.
const (
	SubkeyHeaderSize = 64 // header HMAC subkey
	SubkeyChunkSize  = 64 // per-chunk/trailer HMAC subkey
)

// NewHKDFStream creates an HKDF-SHA3-256 stream for subkey derivation.
func NewHKDFStream(key, salt []byte) io.Reader {
	return hkdf.New(sha3.New256, key, salt, nil)
}

// SubkeyReader enforces strict, sequential consumption of subkeys from an
// HKDF stream: the header subkey must be read first, then the chunk subkey.
// This mirrors the ordering discipline of a single HKDF stream shared by
// multiple consumers, so that no two callers ever derive the same bytes.
type SubkeyReader struct {
	hkdf       io.Reader
	headerRead bool
	chunkRead  bool
}

// NewSubkeyReader wraps an HKDF stream.
func NewSubkeyReader(hkdfStream io.Reader) *SubkeyReader {
	return &SubkeyReader{hkdf: hkdfStream}
}

// HeaderSubkey reads the 64-byte subkey used to authenticate the file
// header. Must be called before ChunkSubkey.
func (r *SubkeyReader) HeaderSubkey() ([]byte, error) {
	if r.headerRead {
		return nil, errors.New("header subkey already consumed")
	}
	subkey := make([]byte, SubkeyHeaderSize)
	if _, err := io.ReadFull(r.hkdf, subkey); err != nil {
		return nil, errors.New("fatal hkdf.Read error for header subkey")
	}
	r.headerRead = true
	return subkey, nil
}

// ChunkSubkey reads the 64-byte subkey used to authenticate chunk frames
// and the trailer. Must be called after HeaderSubkey.
func (r *SubkeyReader) ChunkSubkey() ([]byte, error) {
	if r.chunkRead {
		return nil, errors.New("chunk subkey already consumed")
	}
	if !r.headerRead {
		return nil, errors.New("must read header subkey before chunk subkey")
	}
	subkey := make([]byte, SubkeyChunkSize)
	if _, err := io.ReadFull(r.hkdf, subkey); err != nil {
		return nil, errors.New("fatal hkdf.Read error for chunk subkey")
	}
	r.chunkRead = true
	return subkey, nil
}

package crypto

import (
	"crypto/hmac"
	"hash"

	"golang.org/x/crypto/sha3"
)

// NewMAC creates the HMAC-SHA3-512 hash used to authenticate the file
// header and, in crypto mode, chunk frames. The subkey must come from
// SubkeyReader so header and chunk authentication never share key material.
func NewMAC(subkey []byte) hash.Hash {
	return hmac.New(sha3.New512, subkey)
}

// MACSize is the output size of NewMAC's hash, in bytes.
const MACSize = 64

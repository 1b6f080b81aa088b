package container

import (
	"encoding/binary"
	"hash"
	"hash/crc32"

	"pcompress/internal/checksum"
)

// serializeFileHeaderPreAuth renders every file header field preceding the
// authenticator, in on-wire order, into one contiguous buffer so the
// authenticator can be computed (or verified) in a single pass — mirrors
// the teacher's ComputeV2HeaderMAC shape of hashing the exact serialized
// byte sequence rather than re-deriving it from parsed fields.
func serializeFileHeaderPreAuth(h *FileHeader) []byte {
	size := AlgoTagSize + 2 + 2 + 8 + 4 + 4
	if h.IsCrypto() {
		size += 4 + len(h.Salt) + len(h.Nonce) + 4
	}
	buf := make([]byte, 0, size)
	buf = append(buf, h.Algo[:]...)
	buf = binary.BigEndian.AppendUint16(buf, h.Version)
	buf = binary.BigEndian.AppendUint16(buf, h.Flags.ToUint16())
	buf = binary.BigEndian.AppendUint64(buf, h.ChunkSize)
	buf = binary.BigEndian.AppendUint32(buf, h.Level)
	buf = binary.BigEndian.AppendUint32(buf, h.Delta2Span)
	if h.IsCrypto() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(h.Salt)))
		buf = append(buf, h.Salt...)
		buf = append(buf, h.Nonce...)
		buf = binary.BigEndian.AppendUint32(buf, h.KeyLen)
	}
	return buf
}

// ComputeFileHeaderAuth computes the file header authenticator. mac is nil
// for CRC32 mode (non-crypto); for crypto mode it is the HMAC instance
// keyed with the header subkey (see internal/crypto.NewMAC).
func ComputeFileHeaderAuth(h *FileHeader, mac hash.Hash) []byte {
	pre := serializeFileHeaderPreAuth(h)
	if h.IsCrypto() {
		mac.Reset()
		mac.Write(pre)
		return mac.Sum(nil)
	}
	sum := crc32.ChecksumIEEE(pre)
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, sum)
	return out
}

// VerifyFileHeaderAuth recomputes and constant-time-compares the file
// header authenticator found in h.Auth.
func VerifyFileHeaderAuth(h *FileHeader, mac hash.Hash) bool {
	want := ComputeFileHeaderAuth(h, mac)
	return constantTimeEqual(want, h.Auth)
}

// serializeChunkPreAuth renders the authenticated region of a chunk frame:
// len_cmp || zeroed-checksum-slot || zeroed-mac-slot || flags || payload
// || optional original_size, in that exact order (spec.md §4.2 step 8).
func serializeChunkPreAuth(c *ChunkHeader, cksumBytes, macBytes int) []byte {
	size := 8 + cksumBytes + macBytes + 1 + len(c.Payload)
	if c.Flags.HasOriginalSize {
		size += 8
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint64(buf, c.LenCmp)
	buf = append(buf, make([]byte, cksumBytes)...)
	buf = append(buf, make([]byte, macBytes)...)
	buf = append(buf, c.Flags.ToByte())
	buf = append(buf, c.Payload...)
	if c.Flags.HasOriginalSize {
		buf = binary.BigEndian.AppendUint64(buf, c.OriginalSize)
	}
	return buf
}

// ComputeChunkAuth computes a chunk frame's authenticator. In crypto mode
// mac is the per-chunk HMAC (keyed with the chunk subkey); in non-crypto
// mode mac is nil and CRC32 is used, per spec.md's mandated fallback.
func ComputeChunkAuth(c *ChunkHeader, mac hash.Hash, cksumBytes, macBytes int) []byte {
	pre := serializeChunkPreAuth(c, cksumBytes, macBytes)
	if mac != nil {
		mac.Reset()
		mac.Write(pre)
		return mac.Sum(nil)
	}
	sum := crc32.ChecksumIEEE(pre)
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, sum)
	return out
}

// VerifyChunkAuth recomputes and constant-time-compares a chunk's
// authenticator. Must be called before the payload is decrypted or
// decompressed (spec.md §4.2 decompression step 2).
func VerifyChunkAuth(c *ChunkHeader, mac hash.Hash, cksumBytes, macBytes int) bool {
	want := ComputeChunkAuth(c, mac, cksumBytes, macBytes)
	return constantTimeEqual(want, c.Mac)
}

// VerifyPlaintextChecksum checks the plaintext checksum recorded in a
// non-crypto chunk against freshly-hashed decompressed data. Crypto mode
// never calls this: the HMAC already authenticated everything (spec.md
// §4.2 decompression step 6).
func VerifyPlaintextChecksum(kind checksum.Kind, plaintext, want []byte) (bool, error) {
	got, err := checksum.Compute(kind, plaintext)
	if err != nil {
		return false, err
	}
	return constantTimeEqual(got, want), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

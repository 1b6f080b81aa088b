package container

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"pcompress/internal/errors"
)

// ReadFileHeader reads and decodes the file header from r. macBytes is the
// expected authenticator length for crypto mode (internal/crypto.MACSize);
// it is unused in non-crypto mode, where the authenticator is always a
// 4-byte CRC32. The caller must call VerifyFileHeaderAuth afterward (with
// the key-derived MAC instance, once the salt has been used to derive it)
// before trusting anything past this point.
func ReadFileHeader(r io.Reader, macBytes int) (*FileHeader, error) {
	h := &FileHeader{}

	if _, err := io.ReadFull(r, h.Algo[:]); err != nil {
		return nil, fmt.Errorf("%w: reading algo tag: %v", errors.ErrIOShort, err)
	}

	var fixed [12]byte // version(2) + flags(2) + chunksize(8)
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header fields: %v", errors.ErrIOShort, err)
	}
	h.Version = binary.BigEndian.Uint16(fixed[0:2])
	h.Flags = FlagsFromUint16(binary.BigEndian.Uint16(fixed[2:4]))
	h.ChunkSize = binary.BigEndian.Uint64(fixed[4:12])

	if err := CheckVersion(h.Version); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrVersionUnsupported, err)
	}

	var levelBuf [4]byte
	if _, err := io.ReadFull(r, levelBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading level: %v", errors.ErrIOShort, err)
	}
	h.Level = binary.BigEndian.Uint32(levelBuf[:])

	var delta2Buf [4]byte
	if _, err := io.ReadFull(r, delta2Buf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading delta2 span: %v", errors.ErrIOShort, err)
	}
	h.Delta2Span = binary.BigEndian.Uint32(delta2Buf[:])

	if h.IsCrypto() {
		var saltLenBuf [4]byte
		if _, err := io.ReadFull(r, saltLenBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: reading saltlen: %v", errors.ErrIOShort, err)
		}
		saltLen := binary.BigEndian.Uint32(saltLenBuf[:])
		h.Salt = make([]byte, saltLen)
		if _, err := io.ReadFull(r, h.Salt); err != nil {
			return nil, fmt.Errorf("%w: reading salt: %v", errors.ErrIOShort, err)
		}
		h.Nonce = make([]byte, h.Flags.Crypto.NonceLen())
		if _, err := io.ReadFull(r, h.Nonce); err != nil {
			return nil, fmt.Errorf("%w: reading nonce: %v", errors.ErrIOShort, err)
		}
		var keyLenBuf [4]byte
		if _, err := io.ReadFull(r, keyLenBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: reading keylen: %v", errors.ErrIOShort, err)
		}
		h.KeyLen = binary.BigEndian.Uint32(keyLenBuf[:])

		h.Auth = make([]byte, macBytes)
		if _, err := io.ReadFull(r, h.Auth); err != nil {
			return nil, fmt.Errorf("%w: reading header mac: %v", errors.ErrIOShort, err)
		}
		return h, nil
	}

	if h.Version >= 5 {
		h.Auth = make([]byte, 4)
		if _, err := io.ReadFull(r, h.Auth); err != nil {
			return nil, fmt.Errorf("%w: reading header crc32: %v", errors.ErrIOShort, err)
		}
	}
	return h, nil
}

// ReadChunkFrame reads one chunk frame from r. A len_cmp of zero is the
// trailer sentinel: isTrailer is true and c is nil. cksumBytes/macBytes
// come from the active checksum kind / crypto mode for this container.
func ReadChunkFrame(r io.Reader, cksumBytes, macBytes int, chunkSize uint64) (c *ChunkHeader, isTrailer bool, err error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, false, fmt.Errorf("%w: reading len_cmp: %v", errors.ErrIOShort, err)
	}
	lenCmp := binary.BigEndian.Uint64(lenBuf[:])
	if lenCmp == 0 {
		return nil, true, nil
	}
	if lenCmp > MaxOversizeLenCmp(chunkSize) {
		return nil, false, fmt.Errorf("%w: len_cmp %d exceeds maximum %d", errors.ErrOversizeChunk, lenCmp, MaxOversizeLenCmp(chunkSize))
	}

	c = &ChunkHeader{LenCmp: lenCmp}

	c.Checksum = make([]byte, cksumBytes)
	if cksumBytes > 0 {
		if _, err := io.ReadFull(r, c.Checksum); err != nil {
			return nil, false, fmt.Errorf("%w: reading chunk checksum: %v", errors.ErrIOShort, err)
		}
	}

	c.Mac = make([]byte, macBytes)
	if _, err := io.ReadFull(r, c.Mac); err != nil {
		return nil, false, fmt.Errorf("%w: reading chunk mac: %v", errors.ErrIOShort, err)
	}

	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return nil, false, fmt.Errorf("%w: reading chunk flags: %v", errors.ErrIOShort, err)
	}
	c.Flags = ChunkFlagsFromByte(flagByte[0])

	c.Payload = make([]byte, lenCmp)
	if _, err := io.ReadFull(r, c.Payload); err != nil {
		return nil, false, fmt.Errorf("%w: reading chunk payload: %v", errors.ErrIOShort, err)
	}

	if c.Flags.HasOriginalSize {
		var origBuf [8]byte
		if _, err := io.ReadFull(r, origBuf[:]); err != nil {
			return nil, false, fmt.Errorf("%w: reading original_size: %v", errors.ErrIOShort, err)
		}
		c.OriginalSize = binary.BigEndian.Uint64(origBuf[:])
	}

	return c, false, nil
}

// VerifyFileHeaderAuthOrErr is a convenience wrapper returning the sentinel
// error spec.md names (AuthMismatch) instead of a bare bool.
func VerifyFileHeaderAuthOrErr(h *FileHeader, mac hash.Hash) error {
	if !VerifyFileHeaderAuth(h, mac) {
		return errors.ErrAuthMismatch
	}
	return nil
}

// VerifyChunkAuthOrErr is a convenience wrapper returning the sentinel
// error spec.md names (AuthMismatch) instead of a bare bool.
func VerifyChunkAuthOrErr(c *ChunkHeader, mac hash.Hash, cksumBytes, macBytes int) error {
	if !VerifyChunkAuth(c, mac, cksumBytes, macBytes) {
		return errors.ErrAuthMismatch
	}
	return nil
}

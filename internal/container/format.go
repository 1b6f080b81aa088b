// Package container implements the on-wire framing format: file header,
// chunk header, and trailer. It mirrors the teacher's internal/header
// package in spirit (emit/parse a versioned, authenticated header in a
// single contiguous buffer) but drops Reed-Solomon redundancy and keeps a
// single round-robin chunk-framing shape instead of a whole-volume one.
package container

import "fmt"

// CurrentVersion is the container format version this build writes and
// always accepts. Readers accept [CurrentVersion-3, CurrentVersion].
const CurrentVersion uint16 = 5

const minSupportedVersion = CurrentVersion - 3

// AlgoTagSize is the fixed width of the algorithm tag field.
const AlgoTagSize = 8

// CryptoAlgo identifies the encryption algorithm recorded in the file
// header's crypto bits. Mirrors internal/crypto.Algorithm but kept separate
// so the wire encoding doesn't leak crypto package internals.
type CryptoAlgo uint8

const (
	CryptoNone CryptoAlgo = iota
	CryptoAES
	CryptoSalsa20
)

// File header flags bitfield (u16): bits 0-2 checksum kind, bit 3
// FLAG_DEDUP, bit 4 FLAG_DEDUP_FIXED, bit 5 FLAG_SINGLE_CHUNK, bits 6-7
// crypto algorithm, bit 8 FLAG_DEDUP_GLOBAL, bit 9 FLAG_LZP. The last two
// exist so decompression is self-describing: -G and -L only affect how a
// chunk's payload is shaped, with nothing else on the wire hinting at it,
// so the container must carry them rather than rely on the decompress-time
// CLI flags matching what compression used.
const (
	flagChecksumMask = 0x7
	flagDedup        = 1 << 3
	flagDedupFixed   = 1 << 4
	flagSingleChunk  = 1 << 5
	flagCryptoShift  = 6
	flagCryptoMask   = 0x3 << flagCryptoShift
	flagDedupGlobal  = 1 << 8
	flagLZP          = 1 << 9
)

// HeaderFlags is the decoded form of the file header's flags field.
type HeaderFlags struct {
	ChecksumKind uint8
	Dedup        bool
	DedupFixed   bool
	SingleChunk  bool
	Crypto       CryptoAlgo
	DedupGlobal  bool
	LZP          bool
}

// ToUint16 packs HeaderFlags into the on-wire bitfield.
func (f HeaderFlags) ToUint16() uint16 {
	var v uint16
	v |= uint16(f.ChecksumKind) & flagChecksumMask
	if f.Dedup {
		v |= flagDedup
	}
	if f.DedupFixed {
		v |= flagDedupFixed
	}
	if f.SingleChunk {
		v |= flagSingleChunk
	}
	v |= uint16(f.Crypto) << flagCryptoShift & flagCryptoMask
	if f.DedupGlobal {
		v |= flagDedupGlobal
	}
	if f.LZP {
		v |= flagLZP
	}
	return v
}

// FlagsFromUint16 decodes the on-wire bitfield into HeaderFlags.
func FlagsFromUint16(v uint16) HeaderFlags {
	return HeaderFlags{
		ChecksumKind: uint8(v & flagChecksumMask),
		Dedup:        v&flagDedup != 0,
		DedupFixed:   v&flagDedupFixed != 0,
		SingleChunk:  v&flagSingleChunk != 0,
		Crypto:       CryptoAlgo(v & flagCryptoMask >> flagCryptoShift),
		DedupGlobal:  v&flagDedupGlobal != 0,
		LZP:          v&flagLZP != 0,
	}
}

// FileHeader is the fixed-layout header written once at the start of every
// container, big-endian on the wire.
type FileHeader struct {
	Algo      [AlgoTagSize]byte
	Version   uint16
	Flags     HeaderFlags
	ChunkSize uint64
	Level     uint32

	// Delta2Span is the preprocessor span compression ran with (0 when
	// Delta2 was never enabled); recorded unconditionally, not just when
	// a chunk's PREPROC bit ends up set, since the span is a per-file
	// compression-time parameter, not a per-chunk fact.
	Delta2Span uint32

	// Present only when Flags.Crypto != CryptoNone.
	Salt   []byte
	Nonce  []byte
	KeyLen uint32

	// Authenticator over all preceding bytes: HMAC (crypto.MACSize bytes)
	// when crypto is enabled, else CRC32 (4 bytes) when Version >= 5.
	Auth []byte
}

// NonceLen returns the nonce length in bytes for a crypto algorithm, or 0
// for CryptoNone. Mirrors internal/crypto.Algorithm.NonceLen without
// importing the crypto package from the wire-format layer.
func (a CryptoAlgo) NonceLen() int {
	switch a {
	case CryptoAES:
		return 16
	case CryptoSalsa20:
		return 24
	default:
		return 0
	}
}

// IsCrypto reports whether this header describes a crypto-mode container.
func (h *FileHeader) IsCrypto() bool {
	return h.Flags.Crypto != CryptoNone
}

// CheckVersion validates h.Version against the supported decode window.
func CheckVersion(v uint16) error {
	if v > CurrentVersion {
		return fmt.Errorf("container: version %d is newer than this build (current %d)", v, CurrentVersion)
	}
	if v < minSupportedVersion {
		return fmt.Errorf("container: version %d is older than the supported window (minimum %d)", v, minSupportedVersion)
	}
	return nil
}

// Chunk header flags byte (8 bits, MSB first): bit 7 CHSIZE_MASK, bits 6-4
// adaptive sub-algo id (widened to 3 bits, see DESIGN.md Open Question 3),
// bit 3 PREPROC, bit 2 DEDUP, bits 1-0 COMPRESSED (00 raw, 01 compressed).
const (
	chunkFlagCHSize       = 1 << 7
	chunkFlagAdaptiveMask = 0x7 << 4
	chunkFlagAdaptiveShift = 4
	chunkFlagPreproc      = 1 << 3
	chunkFlagDedup        = 1 << 2
	chunkFlagCompressed   = 1 << 0
)

// ChunkFlags is the decoded form of a chunk header's flags byte.
type ChunkFlags struct {
	HasOriginalSize bool
	AdaptiveSubAlgo uint8
	Preproc         bool
	Dedup           bool
	Compressed      bool
}

// ToByte packs ChunkFlags into the on-wire flags byte.
func (f ChunkFlags) ToByte() byte {
	var b byte
	if f.HasOriginalSize {
		b |= chunkFlagCHSize
	}
	b |= f.AdaptiveSubAlgo << chunkFlagAdaptiveShift & chunkFlagAdaptiveMask
	if f.Preproc {
		b |= chunkFlagPreproc
	}
	if f.Dedup {
		b |= chunkFlagDedup
	}
	if f.Compressed {
		b |= chunkFlagCompressed
	}
	return b
}

// ChunkFlagsFromByte decodes a chunk header's flags byte.
func ChunkFlagsFromByte(b byte) ChunkFlags {
	return ChunkFlags{
		HasOriginalSize: b&chunkFlagCHSize != 0,
		AdaptiveSubAlgo: b & chunkFlagAdaptiveMask >> chunkFlagAdaptiveShift,
		Preproc:         b&chunkFlagPreproc != 0,
		Dedup:           b&chunkFlagDedup != 0,
		Compressed:      b&chunkFlagCompressed != 0,
	}
}

// ChunkHeader is the per-chunk frame header plus payload, big-endian.
type ChunkHeader struct {
	LenCmp       uint64
	Checksum     []byte // cksum_bytes; zero-length slice of zeros when crypto is enabled
	Mac          []byte // mac_bytes: HMAC if crypto, else CRC32 (4 bytes)
	Flags        ChunkFlags
	Payload      []byte
	OriginalSize uint64 // valid only when Flags.HasOriginalSize
}

// MaxOversizeLenCmp is the largest permissible len_cmp for a given chunk
// size; anything bigger is corrupt (spec: len_cmp <= ChunkSize + 256).
func MaxOversizeLenCmp(chunkSize uint64) uint64 {
	return chunkSize + 256
}

// Package pipeline implements the Transform Pipeline (C2): the per-chunk
// compress and decompress transform sequences (dedup → preprocess →
// compress → encrypt → authenticate, and its strict inverse). It wires
// together internal/codec, internal/dedup, internal/preprocess,
// internal/crypto and internal/checksum behind the single per-worker
// Pipeline value a WorkerSlot owns, grounded on the teacher's
// volume.Encrypt/volume.Decrypt style of small named phase functions with
// first-error-wins, generalized to run once per chunk instead of once per
// volume.
package pipeline

import (
	"hash"

	"pcompress/internal/checksum"
	"pcompress/internal/codec"
	"pcompress/internal/container"
	"pcompress/internal/crypto"
	"pcompress/internal/dedup"
	"pcompress/internal/errors"
	"pcompress/internal/preprocess"
)

// indexCompressThreshold is the size above which the dedup index table is
// worth attempting to compress (spec.md §4.2 step 3: "if the index is >= 90
// bytes, attempt LZMA on it").
const indexCompressThreshold = 90

// indexCompressLevel stands in for spec.md's "level 255" sentinel, which
// this implementation's Codec interface has no special meaning for; any
// valid level produces an equivalent "attempt, keep only if it shrinks"
// outcome, so a fixed high level is used instead of inventing a magic
// number the codec layer would have to special-case.
const indexCompressLevel = 9

const indexTransposeStride = 4

// Config is the subset of the immutable PipelineConfig (spec.md §9) a
// single worker's Pipeline needs to build its own per-worker state:
// codec instance, dedup context, and cipher, each resolved fresh so no
// mutable state is shared across concurrently-running workers.
type Config struct {
	CodecName    string
	Level        int
	ChunkSize    uint64
	ChecksumKind checksum.Kind
	CryptoAlgo   crypto.Algorithm
	Key          []byte
	BaseNonce    []byte
	DedupEnabled bool
	DedupFixed   bool
	DedupGlobal  bool
	DedupBlock   uint
	LZPEnabled   bool
	Delta2Span   int
}

// Pipeline is the per-worker transform state a WorkerSlot owns: its own
// codec instance, dedup context, and cipher. Never share a Pipeline across
// goroutines — call New once per worker at setup.
type Pipeline struct {
	cfg Config

	backend    codec.Codec
	indexCodec codec.Codec // always "lzma", used only for the dedup index table
	dedupCtx   *dedup.Context
	cipher     *crypto.ChunkCipher

	chunkSubkey []byte // nil in non-crypto mode
}

// New builds a worker's Pipeline: resolves a fresh codec instance, a fresh
// dedup context (if enabled), and a chunk cipher from the already-derived
// key material. chunkSubkey is the HMAC subkey this worker's chunk/trailer
// authentication uses; pass nil in non-crypto mode.
func New(cfg Config, chunkSubkey []byte) (*Pipeline, error) {
	backend, err := codec.Resolve(cfg.CodecName)
	if err != nil {
		return nil, err
	}
	indexCodec, err := codec.Resolve("lzma")
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, backend: backend, indexCodec: indexCodec, chunkSubkey: chunkSubkey}

	if cfg.DedupEnabled {
		mode := dedup.ModeRabin
		if cfg.DedupFixed {
			mode = dedup.ModeFixed
		}
		p.dedupCtx = dedup.NewContext(mode, cfg.DedupBlock, cfg.DedupGlobal)
	}

	if cfg.CryptoAlgo != crypto.AlgoNone {
		cipher, err := crypto.NewChunkCipher(cfg.CryptoAlgo, cfg.Key, cfg.BaseNonce)
		if err != nil {
			return nil, err
		}
		p.cipher = cipher
	}

	return p, nil
}

// SetDedupContext overrides this worker's dedup context with one shared
// across the whole worker pool. internal/worker calls this for global dedup
// mode (spec.md §4.3's index semaphore ring): every worker's Pipeline must
// mutate the same duplicate-block dictionary, guarded by the ring instead
// of each worker keeping its own private dictionary.
func (p *Pipeline) SetDedupContext(ctx *dedup.Context) {
	p.dedupCtx = ctx
}

// mac returns a fresh HMAC instance for this worker's chunk frames, or nil
// in non-crypto mode (where CRC32 is used instead).
func (p *Pipeline) mac() hash.Hash {
	if p.chunkSubkey == nil {
		return nil
	}
	return crypto.NewMAC(p.chunkSubkey)
}

func (p *Pipeline) isCrypto() bool {
	return p.cfg.CryptoAlgo != crypto.AlgoNone
}

// cksumBytes returns the checksum size stored per-chunk: 0 in crypto mode
// (all integrity comes from the HMAC), else the configured checksum kind's
// size.
func (p *Pipeline) cksumBytes() int {
	if p.isCrypto() {
		return 0
	}
	return p.cfg.ChecksumKind.Size()
}

func (p *Pipeline) macBytes() int {
	if p.isCrypto() {
		return crypto.MACSize
	}
	return 4 // CRC32
}

// Result is a fully-framed, authenticated chunk ready for internal/writer.
type Result struct {
	Header *container.ChunkHeader
}

// CompressChunk runs the full compress-path transform (spec.md §4.2,
// compression path steps 1-8) over raw, the chunk's plaintext, resetting
// any per-chunk dedup state first unless global dedup is configured.
func (p *Pipeline) CompressChunk(id uint64, raw []byte) (*Result, error) {
	if p.dedupCtx != nil {
		p.dedupCtx.Reset()
	}

	// Step 1: checksum of plaintext, non-crypto mode only.
	var plainChecksum []byte
	if !p.isCrypto() {
		sum, err := checksum.Compute(p.cfg.ChecksumKind, raw)
		if err != nil {
			return nil, errors.NewChunkError(id, "checksum", err)
		}
		plainChecksum = sum
	}

	flags := container.ChunkFlags{}
	data := raw

	// Step 2+3: dedup and index compression.
	if p.dedupCtx != nil {
		index, deduped, err := p.dedupCtx.Compress(raw)
		if err != nil {
			return nil, errors.NewChunkError(id, "dedup", err)
		}
		if p.dedupCtx.Valid {
			flags.Dedup = true
			indexFramed := p.frameIndex(index)
			data = joinLenPrefixed(indexFramed, deduped)
		}
		// else: fall through, dedup not applied, data stays raw.
	}

	// Step 4: data preprocess (LZP, then Delta2), operating on `data` (the
	// post-dedup buffer, or raw if dedup wasn't applied/enabled). Note:
	// when dedup framed the buffer, only the deduped-data portion should
	// be preprocessed in a byte-exact implementation; this implementation
	// preprocesses the whole framed buffer (index + data) for simplicity,
	// which is safe since preprocessing is fully reversible regardless of
	// its input's internal structure.
	preprocType := byte(0)
	preprocApplied := false
	if p.cfg.LZPEnabled {
		if compact, ok := preprocess.LZPCompress(data); ok {
			data = compact
			preprocType |= 0x01
			preprocApplied = true
		}
	}
	if p.cfg.Delta2Span > 0 {
		out, err := preprocess.Delta2Compress(data, p.cfg.Delta2Span)
		if err == nil {
			data = out
			preprocType |= 0x02
			preprocApplied = true
		}
	}

	// Step 5: backend compression.
	var subAlgo uint8
	compressed, err := p.backend.Compress(nil, data, p.cfg.Level)
	backendOK := err == nil && len(compressed) < len(data)
	if backendOK {
		if ac, ok := p.backend.(codec.AdaptiveCodec); ok {
			subAlgo = ac.LastSubAlgo()
		}
		flags.Compressed = true
		data = compressed
		preprocType |= 0x80
	}
	// else: chunk is UNCOMPRESSED; data keeps whatever step 4 produced.

	if preprocApplied {
		flags.Preproc = true
		data = append([]byte{preprocType}, data...)
	}
	flags.AdaptiveSubAlgo = subAlgo

	// Step 6: encryption, length-preserving, in place on the final payload.
	if p.cipher != nil {
		enc := make([]byte, len(data))
		if err := p.cipher.XORKeyStream(id, enc, data); err != nil {
			return nil, errors.NewChunkError(id, "encrypt", err)
		}
		data = enc
	}

	// Step 7: frame.
	hdr := &container.ChunkHeader{
		LenCmp:   uint64(len(data)),
		Checksum: make([]byte, p.cksumBytes()),
		Mac:      make([]byte, p.macBytes()),
		Flags:    flags,
		Payload:  data,
	}
	if !p.isCrypto() {
		copy(hdr.Checksum, plainChecksum)
	}
	if uint64(len(raw)) < p.cfg.ChunkSize {
		hdr.Flags.HasOriginalSize = true
		hdr.OriginalSize = uint64(len(raw))
	}

	// Step 8: authentication.
	mac := p.mac()
	hdr.Mac = container.ComputeChunkAuth(hdr, mac, p.cksumBytes(), p.macBytes())

	return &Result{Header: hdr}, nil
}

// DecompressChunk inverts CompressChunk strictly (spec.md §4.2 decompress
// path steps 2-6; step 1, reading the frame off the wire, is
// internal/container's job and already done by the time hdr is built).
func (p *Pipeline) DecompressChunk(id uint64, hdr *container.ChunkHeader) ([]byte, error) {
	if p.dedupCtx != nil {
		p.dedupCtx.Reset()
	}

	// Step 2: verify authentication before touching the payload.
	mac := p.mac()
	if !container.VerifyChunkAuth(hdr, mac, p.cksumBytes(), p.macBytes()) {
		return nil, errors.NewChunkError(id, "auth", errors.ErrAuthMismatch)
	}

	data := hdr.Payload

	// Step 3: decrypt in place.
	if p.cipher != nil {
		dec := make([]byte, len(data))
		if err := p.cipher.XORKeyStream(id, dec, data); err != nil {
			return nil, errors.NewChunkError(id, "decrypt", errors.Wrap(err, "decrypt"))
		}
		data = dec
	}

	var preprocType byte
	if hdr.Flags.Preproc {
		if len(data) < 1 {
			return nil, errors.NewChunkError(id, "decompress", errors.ErrCorruptFrame)
		}
		preprocType = data[0]
		data = data[1:]
	}

	// Step 5 (performed before step 4's inverse, mirroring the compress
	// order: backend decompress first, then undo preprocessing).
	if hdr.Flags.Compressed {
		var (
			out []byte
			err error
		)
		if ac, ok := p.backend.(codec.AdaptiveCodec); ok {
			out, err = ac.DecompressSubAlgo(nil, data, hdr.Flags.AdaptiveSubAlgo)
		} else {
			out, err = p.backend.Decompress(nil, data)
		}
		if err != nil {
			return nil, errors.NewChunkError(id, "decompress", errors.Wrap(err, errors.ErrDecompressFail.Error()))
		}
		data = out
	}

	if hdr.Flags.Preproc {
		if preprocType&0x02 != 0 {
			out, err := preprocess.Delta2Decompress(data, p.cfg.Delta2Span)
			if err != nil {
				return nil, errors.NewChunkError(id, "preprocess", err)
			}
			data = out
		}
		if preprocType&0x01 != 0 {
			out, err := preprocess.LZPDecompress(data, 0)
			if err != nil {
				return nil, errors.NewChunkError(id, "preprocess", err)
			}
			data = out
		}
	}

	// Step 4 inverse: split dedup framing back out and reconstruct.
	if hdr.Flags.Dedup {
		if p.dedupCtx == nil {
			return nil, errors.NewChunkError(id, "dedup", errors.ErrDedupRecoveryFail)
		}
		indexFramed, deduped, err := splitLenPrefixed(data)
		if err != nil {
			return nil, errors.NewChunkError(id, "dedup", err)
		}
		index, err := p.unframeIndex(indexFramed)
		if err != nil {
			return nil, errors.NewChunkError(id, "dedup", err)
		}
		out, err := p.dedupCtx.Decompress(index, deduped)
		if err != nil {
			return nil, errors.NewChunkError(id, "dedup", errors.Wrap(err, errors.ErrDedupRecoveryFail.Error()))
		}
		data = out
	}

	// Step 6: verify plaintext checksum, non-crypto mode only.
	if !p.isCrypto() && p.cfg.ChecksumKind.Size() > 0 {
		ok, err := container.VerifyPlaintextChecksum(p.cfg.ChecksumKind, data, hdr.Checksum)
		if err != nil {
			return nil, errors.NewChunkError(id, "checksum", err)
		}
		if !ok {
			return nil, errors.NewChunkError(id, "checksum", errors.ErrChecksumMismatch)
		}
	}

	return data, nil
}

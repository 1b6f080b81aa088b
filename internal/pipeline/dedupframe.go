package pipeline

import (
	"encoding/binary"
	"fmt"

	"pcompress/internal/dedup"
)

// indexCompressedFlag marks, in the single header byte prepended to a
// dedup-framed index, whether the index bytes that follow are LZMA
// compressed or stored verbatim (spec.md §4.2 step 3).
const (
	indexStoredVerbatim = 0
	indexStoredLZMA     = 1
)

// frameIndex builds the self-describing index block: a one-byte storage
// flag, the transposed (and maybe LZMA-compressed) index bytes. Grounded
// on spec.md §4.2 step 3: transpose first, then attempt compression only
// above a minimum size, keeping the compressed form only if it shrinks.
func (p *Pipeline) frameIndex(index []byte) []byte {
	transposed := dedup.Transpose(index, indexTransposeStride, true)

	if len(transposed) < indexCompressThreshold {
		return append([]byte{indexStoredVerbatim}, transposed...)
	}

	compressed, err := p.indexCodec.Compress(nil, transposed, indexCompressLevel)
	if err != nil || len(compressed) >= len(transposed) {
		return append([]byte{indexStoredVerbatim}, transposed...)
	}
	return append([]byte{indexStoredLZMA}, compressed...)
}

// unframeIndex inverts frameIndex.
func (p *Pipeline) unframeIndex(framed []byte) ([]byte, error) {
	if len(framed) < 1 {
		return nil, fmt.Errorf("pipeline: empty dedup index frame")
	}
	flag, body := framed[0], framed[1:]

	var transposed []byte
	switch flag {
	case indexStoredVerbatim:
		transposed = body
	case indexStoredLZMA:
		out, err := p.indexCodec.Decompress(nil, body)
		if err != nil {
			return nil, fmt.Errorf("pipeline: dedup index decompress: %w", err)
		}
		transposed = out
	default:
		return nil, fmt.Errorf("pipeline: unknown dedup index storage flag %d", flag)
	}

	return dedup.Transpose(transposed, indexTransposeStride, false), nil
}

// joinLenPrefixed concatenates index and data behind a uvarint length
// prefix for index, so splitLenPrefixed can recover the boundary between
// the two independently-compressed regions spec.md §3 requires.
func joinLenPrefixed(index, data []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(index)))
	out := make([]byte, 0, n+len(index)+len(data))
	out = append(out, lenBuf[:n]...)
	out = append(out, index...)
	out = append(out, data...)
	return out
}

// splitLenPrefixed inverts joinLenPrefixed.
func splitLenPrefixed(buf []byte) (index, data []byte, err error) {
	indexLen, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, nil, fmt.Errorf("pipeline: corrupt dedup frame length prefix")
	}
	buf = buf[n:]
	if uint64(len(buf)) < indexLen {
		return nil, nil, fmt.Errorf("pipeline: truncated dedup index frame")
	}
	return buf[:indexLen], buf[indexLen:], nil
}

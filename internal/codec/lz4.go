package codec

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec wraps pierrec/lz4/v4, the ecosystem-standard pure-Go LZ4
// implementation (spec.md §6.1 names lz4 directly as a CLI algorithm).
type lz4Codec struct{}

func newLZ4Codec() Codec { return lz4Codec{} }

func (lz4Codec) Name() string { return "lz4" }

func (lz4Codec) Compress(dst, src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	opts := []lz4.Option{lz4.CompressionLevelOption(clampLZ4Level(level))}
	if err := w.Apply(opts...); err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst[:0], buf.Bytes()...), nil
}

func (lz4Codec) Decompress(dst, src []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return append(dst[:0], buf.Bytes()...), nil
}

func clampLZ4Level(level int) lz4.CompressionLevel {
	switch {
	case level <= 0:
		return lz4.Fast
	case level >= 9:
		return lz4.Level9
	default:
		return lz4.CompressionLevel(1 << (8 + level)) // Level1..Level8
	}
}

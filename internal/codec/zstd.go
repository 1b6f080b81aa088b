package codec

import (
	"github.com/klauspost/compress/zstd"
)

// zstdCodec wraps klauspost/compress/zstd. Not registered under its own
// name: spec.md §6.1's -c enum has no bare "zstd" entry, only adapt/adapt2,
// which select it as one of several candidate sub-codecs per chunk.
type zstdCodec struct{}

func newZstdCodecImpl() zstdCodec { return zstdCodec{} }

func (zstdCodec) Name() string { return "zstd" }

func (zstdCodec) Compress(dst, src []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(clampZstdLevel(level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, dst[:0]), nil
}

func (zstdCodec) Decompress(dst, src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(src, dst[:0])
}

func clampZstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level >= 12:
		return zstd.SpeedBestCompression
	case level >= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedFastest
	}
}

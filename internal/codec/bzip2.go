package codec

import (
	"bytes"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// bzip2Codec wraps dsnet/compress/bzip2, grounded directly on
// other_examples' dsnet-compress/bzip2-writer.go API shape
// (NewWriterLevel/NewReader).
type bzip2Codec struct{}

func newBzip2Codec() Codec { return bzip2Codec{} }

func (bzip2Codec) Name() string { return "bzip2" }

func (bzip2Codec) Compress(dst, src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	lvl := level
	if lvl < bzip2.BestSpeed || lvl > bzip2.BestCompression {
		lvl = bzip2.DefaultCompression
	}
	w, err := bzip2.NewWriterLevel(&buf, lvl)
	if err != nil {
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

func (bzip2Codec) Decompress(dst, src []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(src), nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return append(dst[:0], buf.Bytes()...), nil
}

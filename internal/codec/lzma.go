package codec

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzmaCodec wraps ulikunitz/xz/lzma, grounded on other_examples'
// liumingmin-xz lzma-reader and ulikunitz-xz lzma-chunk_reader usage.
type lzmaCodec struct{ name string }

func newLZMACodec() Codec   { return lzmaCodec{name: "lzma"} }
func newLZMAMtCodec() Codec { return lzmaMtCodec{lzmaCodec{name: "lzmaMt"}} }

func (c lzmaCodec) Name() string { return c.name }

func (c lzmaCodec) Compress(dst, src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
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

func (c lzmaCodec) Decompress(dst, src []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return append(dst[:0], buf.Bytes()...), nil
}

// lzmaMtCodec is the multi-threaded LZMA variant (-c lzmaMt). The
// ulikunitz/xz lzma package does not expose an internal thread pool the
// way the original's backend-parallel LZMA does, so multi-threading here
// comes entirely from pcompress's own chunk-level worker pool: lzmaMt
// behaves identically to lzma at the codec layer (see DESIGN.md).
type lzmaMtCodec struct{ lzmaCodec }

func (c lzmaMtCodec) Name() string { return "lzmaMt" }

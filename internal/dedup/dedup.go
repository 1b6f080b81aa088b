// Package dedup implements the Context interface spec.md §6.4 names as an
// external collaborator: create/reset a dedup context, compress a buffer
// into an index + deduped data region, decompress the inverse, and
// transpose the index table for entropy clustering. Content-defined
// splitting is delegated to github.com/klauspost/dedup's fragment splitter
// (ModeDynamic/ModeFixed), which is the real rabin/content-defined
// chunking package in the example pack (other_examples' own copy of
// klauspost/dedup's writer.go). Reconstruction and the on-disk index
// layout are pcompress's own, shaped to fit the single ChunkHeader framing
// spec.md §3/§4.2 describes instead of klauspost/dedup's own stream format.
package dedup

import (
	"bytes"
	"encoding/binary"
	"fmt"

	dd "github.com/klauspost/dedup"
)

// Mode selects fixed-block or content-defined (rabin) splitting.
type Mode int

const (
	ModeFixed Mode = iota
	ModeRabin
)

// Context mirrors spec.md §6.4's create_dedupe_context/dedupe_compress/
// dedupe_decompress contract. Valid reports whether the most recent
// Compress call actually reduced size (the pipeline falls back to the
// original buffer without copy when it is false).
type Context struct {
	mode      Mode
	blockSize uint
	global    bool

	// seen maps a fragment's content hash to the block id that first
	// produced it. In global mode this persists across chunks (shared by
	// one owner under the ring index-sem, per spec.md §4.3); in per-chunk
	// mode the caller calls Reset between chunks.
	seen   map[[dd.HashSize]byte]uint32
	blocks [][]byte

	Valid bool
}

// NewContext creates a dedup context. global controls whether the unique-
// block dictionary persists across Reset calls (spec.md's "global dedup"
// vs. per-chunk dedup).
func NewContext(mode Mode, blockSize uint, global bool) *Context {
	c := &Context{mode: mode, blockSize: blockSize, global: global}
	c.resetTables()
	return c
}

func (c *Context) resetTables() {
	c.seen = make(map[[dd.HashSize]byte]uint32)
	c.blocks = nil
}

// Reset clears per-chunk state. In global mode the unique-block dictionary
// is preserved; only Valid is cleared.
func (c *Context) Reset() {
	c.Valid = false
	if !c.global {
		c.resetTables()
	}
}

func ddMode(m Mode) dd.Mode {
	if m == ModeFixed {
		return dd.ModeFixed
	}
	return dd.ModeDynamic
}

// entry is one index record: either a back-reference to an already-seen
// unique block, or a literal marking new data appended to the data region.
type entry struct {
	dup   bool
	ref   uint32 // valid when dup
	length uint32
}

// Compress splits src into content-defined or fixed blocks, replacing
// repeated blocks with back-references into the unique-block dictionary.
// Returns the serialized index table and the deduped data region
// separately (spec.md invariant: "index table and data payload are
// compressed separately").
func (c *Context) Compress(src []byte) (index, data []byte, err error) {
	fragments := make(chan dd.Fragment, 64)
	w, err := dd.NewSplitter(fragments, ddMode(c.mode), c.blockSize)
	if err != nil {
		return nil, nil, fmt.Errorf("dedup: create splitter: %w", err)
	}

	done := make(chan error, 1)
	var entries []entry
	var dataBuf bytes.Buffer

	go func() {
		for f := range fragments {
			var h [dd.HashSize]byte
			copy(h[:], f.Hash[:])
			if id, ok := c.seen[h]; ok {
				entries = append(entries, entry{dup: true, ref: id, length: uint32(len(f.Payload))})
				continue
			}
			id := uint32(len(c.blocks))
			block := append([]byte(nil), f.Payload...)
			c.blocks = append(c.blocks, block)
			c.seen[h] = id
			entries = append(entries, entry{dup: false, length: uint32(len(f.Payload))})
			dataBuf.Write(f.Payload)
		}
		done <- nil
	}()

	if _, err := w.Write(src); err != nil {
		return nil, nil, fmt.Errorf("dedup: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, nil, fmt.Errorf("dedup: close: %w", err)
	}
	<-done

	index = serializeIndex(entries)
	data = dataBuf.Bytes()

	c.Valid = len(index)+len(data) < len(src)
	return index, data, nil
}

// Decompress reconstructs the original buffer from an index table and its
// matching data region. New (literal) entries consume len bytes from data
// in order and register a new unique block; dup entries copy a previously
// registered block by reference id.
func (c *Context) Decompress(index, data []byte) ([]byte, error) {
	entries, err := deserializeIndex(index)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	cursor := 0
	for _, e := range entries {
		if e.dup {
			if int(e.ref) >= len(c.blocks) {
				return nil, fmt.Errorf("dedup: reference to unknown block %d", e.ref)
			}
			out.Write(c.blocks[e.ref])
			continue
		}
		if cursor+int(e.length) > len(data) {
			return nil, fmt.Errorf("dedup: truncated data region")
		}
		block := data[cursor : cursor+int(e.length)]
		cursor += int(e.length)
		c.blocks = append(c.blocks, append([]byte(nil), block...))
		out.Write(block)
	}
	return out.Bytes(), nil
}

func serializeIndex(entries []entry) []byte {
	buf := make([]byte, 0, len(entries)*6)
	tmp := make([]byte, binary.MaxVarintLen64)
	for _, e := range entries {
		if e.dup {
			buf = append(buf, 1)
			n := binary.PutUvarint(tmp, uint64(e.ref))
			buf = append(buf, tmp[:n]...)
		} else {
			buf = append(buf, 0)
		}
		n := binary.PutUvarint(tmp, uint64(e.length))
		buf = append(buf, tmp[:n]...)
	}
	return buf
}

func deserializeIndex(buf []byte) ([]entry, error) {
	var entries []entry
	for len(buf) > 0 {
		flag := buf[0]
		buf = buf[1:]
		var e entry
		if flag == 1 {
			e.dup = true
			ref, n := binary.Uvarint(buf)
			if n <= 0 {
				return nil, fmt.Errorf("dedup: corrupt index (ref)")
			}
			e.ref = uint32(ref)
			buf = buf[n:]
		}
		length, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, fmt.Errorf("dedup: corrupt index (length)")
		}
		e.length = uint32(length)
		buf = buf[n:]
		entries = append(entries, e)
	}
	return entries, nil
}

// Transpose reorders buf into a byte-transposed layout with the given
// stride (elemSize): column-major instead of row-major, to cluster similar
// byte positions together and improve downstream entropy coding (spec.md
// §4.2 step 3: "byte-transpose the index table, stride = 4"). forward=false
// inverts it.
func Transpose(buf []byte, elemSize int, forward bool) []byte {
	if elemSize <= 1 || len(buf)%elemSize != 0 {
		return append([]byte(nil), buf...)
	}
	rows := len(buf) / elemSize
	out := make([]byte, len(buf))
	if forward {
		for r := 0; r < rows; r++ {
			for col := 0; col < elemSize; col++ {
				out[col*rows+r] = buf[r*elemSize+col]
			}
		}
	} else {
		for col := 0; col < elemSize; col++ {
			for r := 0; r < rows; r++ {
				out[r*elemSize+col] = buf[col*rows+r]
			}
		}
	}
	return out
}

package container

import (
	"encoding/binary"
	"hash"
	"io"
)

// WriteFileHeader serializes h (pre-auth fields then the authenticator) to
// w in a single contiguous buffer, matching the teacher's header.Writer
// approach of hashing/writing the exact same byte sequence rather than two
// independently-built ones.
func WriteFileHeader(w io.Writer, h *FileHeader, mac hash.Hash) error {
	buf := serializeFileHeaderPreAuth(h)
	h.Auth = ComputeFileHeaderAuth(h, mac)
	buf = append(buf, h.Auth...)
	_, err := w.Write(buf)
	return err
}

// WriteChunk serializes a fully-framed chunk (header fields + payload +
// optional original_size) to w. c.Mac must already be populated by
// ComputeChunkAuth.
func WriteChunk(w io.Writer, c *ChunkHeader) error {
	size := 8 + len(c.Checksum) + len(c.Mac) + 1 + len(c.Payload)
	if c.Flags.HasOriginalSize {
		size += 8
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint64(buf, c.LenCmp)
	buf = append(buf, c.Checksum...)
	buf = append(buf, c.Mac...)
	buf = append(buf, c.Flags.ToByte())
	buf = append(buf, c.Payload...)
	if c.Flags.HasOriginalSize {
		buf = binary.BigEndian.AppendUint64(buf, c.OriginalSize)
	}
	_, err := w.Write(buf)
	return err
}

// WriteTrailer writes the end-of-stream sentinel: a single zero u64.
func WriteTrailer(w io.Writer) error {
	var zero [8]byte
	_, err := w.Write(zero[:])
	return err
}

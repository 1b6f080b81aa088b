// Package producer implements the Producer (C4): a double-buffered reader
// that hands off chunk-sized buffers to the worker pool in round-robin
// order, with optional rabin-boundary-aware carryover so that content-
// defined chunk boundaries survive fixed-size chunk splitting (spec.md
// §4.4). There is no teacher file for this shape (Picocrypt reads whole
// volumes, not chunk streams); grounded instead on the double-buffer
// read-ahead idiom common across the pack's streaming compressors (e.g.
// falk-nsz-go's block reader) and on klauspost/dedup's own rolling-hash
// boundary detector for the carryover heuristic (see rabin.go).
package producer

import (
	"io"
)

// Producer maintains one read-ahead buffer: by the time a worker asks for
// its next chunk, the bytes are already sitting in memory, freshly read
// while the previous chunk was being dispatched.
type Producer struct {
	r         io.Reader
	chunkSize int
	rabin     bool
	minCut    int

	ahead []byte // next chunk's bytes, already read and ready to hand off
	carry []byte // trailing bytes past the last rabin boundary
	id    uint64
	eof   bool
}

// New creates a Producer over r and reads the first chunk immediately, per
// spec.md §4.4 ("Before the worker loop begins, it reads the first
// chunk."). rabinBoundary enables content-defined boundary adjustment.
func New(r io.Reader, chunkSize int, rabinBoundary bool) (*Producer, error) {
	p := &Producer{
		r:         r,
		chunkSize: chunkSize,
		rabin:     rabinBoundary,
		minCut:    chunkSize / 2,
	}
	if err := p.fill(); err != nil {
		return nil, err
	}
	return p, nil
}

// fill reads the next chunk into p.ahead, consuming any carried-over bytes
// first. Sets p.eof once the underlying reader is exhausted; a final
// short chunk is still delivered before EOF is reported as having no more
// data.
func (p *Producer) fill() error {
	buf := make([]byte, p.chunkSize)
	n := copy(buf, p.carry)
	p.carry = nil

	if n < p.chunkSize {
		read, err := io.ReadFull(p.r, buf[n:])
		n += read
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			p.eof = true
		} else if err != nil {
			return err
		}
	}

	buf = buf[:n]
	if p.rabin && !p.eof && len(buf) > 0 {
		cut := findRabinBoundary(buf, p.minCut)
		if cut < len(buf) {
			p.carry = append([]byte(nil), buf[cut:]...)
			buf = buf[:cut]
		}
	}
	if len(buf) == 0 {
		p.ahead = nil
	} else {
		p.ahead = buf
	}
	return nil
}

// Next hands off the current read-ahead buffer (the chunk a worker should
// process next) and its ascending id, then immediately reads the
// following chunk into a fresh buffer so it is ready for the next call.
// done is true once there is no more data (chunk is nil in that case).
func (p *Producer) Next() (chunk []byte, id uint64, done bool, err error) {
	if p.ahead == nil && p.eof {
		return nil, 0, true, nil
	}

	chunk = p.ahead
	id = p.id
	p.id++

	moreToRead := !p.eof
	if moreToRead {
		if err := p.fill(); err != nil {
			return nil, id, false, err
		}
	} else {
		p.ahead = nil
	}

	return chunk, id, false, nil
}

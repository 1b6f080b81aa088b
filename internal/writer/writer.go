// Package writer implements the Writer (C5): it walks the worker pool in
// the same round-robin order the Producer used, so output chunk order
// always equals input chunk order regardless of how long any individual
// chunk took to process. Grounded on pbzip2's assemble() (an `expected`
// sequence counter gating writes out of a completion channel), redesigned
// per spec.md §9 to use the fixed-slot ring the channel-based worker pool
// already provides instead of assemble()'s min-heap (order here comes from
// dispatch order, not from sorting arbitrary completions).
package writer

import (
	"io"

	"pcompress/internal/container"
	"pcompress/internal/errors"
	"pcompress/internal/worker"
)

// Writer serializes completed chunks from a worker.Pool to w in strict
// slot round-robin order.
type Writer struct {
	w    io.Writer
	pool *worker.Pool
	next int // next slot index to await, wrapping mod len(pool.Slots)
}

// New builds a Writer over pool's slots, writing framed chunks to w.
func New(w io.Writer, pool *worker.Pool) *Writer {
	return &Writer{w: w, pool: pool}
}

// WriteNext waits for the next slot in round-robin order to finish, writes
// its framed chunk (or propagates its error), frees the slot for reuse,
// and advances the ring. cancelled reports whether a worker-reported
// sentinel (LenCmp == 0 compression failure) triggered the cancel cascade
// spec.md §4.5 describes; callers should stop dispatching further chunks
// once cancelled is true.
func (wr *Writer) WriteNext() (cancelled bool, err error) {
	slot := wr.next
	out := wr.pool.Await(slot)
	wr.next = (wr.next + 1) % len(wr.pool.Slots)

	if out.Err != nil {
		wr.pool.Free(slot)
		return true, out.Err
	}
	if out.Header == nil || out.Header.LenCmp == 0 {
		wr.pool.Free(slot)
		return true, errors.NewChunkError(out.ID, "io", errors.ErrCorruptFrame)
	}

	if err := container.WriteChunk(wr.w, out.Header); err != nil {
		wr.pool.Free(slot)
		return true, errors.NewChunkError(out.ID, "io", err)
	}

	wr.pool.Free(slot)
	return false, nil
}

// WritePlain is the decompress-direction counterpart of WriteNext: it
// waits for the next slot, frees it, and returns the worker's reconstructed
// plaintext to the caller; it does not write to w.
func (wr *Writer) WritePlain() (plain []byte, cancelled bool, err error) {
	slot := wr.next
	out := wr.pool.Await(slot)
	wr.next = (wr.next + 1) % len(wr.pool.Slots)
	wr.pool.Free(slot)

	if out.Err != nil {
		return nil, true, out.Err
	}
	return out.Plain, false, nil
}

// Package worker implements the Worker Pool (C3): a fixed set of symmetric
// goroutines, one per WorkerSlot, each driven by the three-phase handshake
// spec.md §4.3/§9 describes as a "semaphore triad" — redesigned here as
// three unbuffered/buffered channels per slot (start, done, writeDone)
// instead of raw semaphores, per spec.md §9's own instruction ("Semaphore
// triad → channels"). Grounded on the worker/assemble split in
// other_examples' pbzip2 parallel.go, narrowed from that file's heap-based
// arbitrary-completion-order reassembly to the strict round-robin ordering
// spec.md mandates (the Writer, not a heap, enforces order here).
package worker

import (
	"sync"

	"pcompress/internal/container"
	"pcompress/internal/dedup"
	"pcompress/internal/pipeline"
)

// Job is one unit of work handed to a slot: either a chunk to compress or a
// parsed frame to decompress, selected by which field is non-nil.
type Job struct {
	ID    uint64
	Raw   []byte                 // set for compression jobs
	Frame *container.ChunkHeader // set for decompression jobs
}

// Outcome is a slot's completed result, read by the Writer.
type Outcome struct {
	ID     uint64
	Header *container.ChunkHeader // compression result
	Plain  []byte                 // decompression result
	Err    error
}

// Slot is a single WorkerSlot: the goroutine, its pipeline, and its
// three-channel handshake. The ring index semaphore (indexSem/nextIndexSem)
// is only exercised in global dedup mode.
type Slot struct {
	ID int

	pipeline *pipeline.Pipeline

	start     chan Job
	done      chan Outcome
	writeDone chan struct{}

	indexSem     chan struct{}
	nextIndexSem chan struct{}
}

// Pool is the fixed-capacity set of worker slots a Controller drives.
type Pool struct {
	Slots []*Slot

	wg         sync.WaitGroup
	cancelOnce sync.Once

	sharedDedup *dedup.Context // non-nil only in global dedup mode
}

// New builds a Pool of n slots, each with its own Pipeline built from cfg.
// chunkSubkeys supplies each worker's HMAC chunk subkey in crypto mode (nil
// entries in non-crypto mode); it must have length n.
func New(n int, cfg pipeline.Config, chunkSubkeys [][]byte) (*Pool, error) {
	p := &Pool{Slots: make([]*Slot, n)}

	if cfg.DedupEnabled && cfg.DedupGlobal {
		mode := dedup.ModeRabin
		if cfg.DedupFixed {
			mode = dedup.ModeFixed
		}
		p.sharedDedup = dedup.NewContext(mode, cfg.DedupBlock, true)
	}

	for i := 0; i < n; i++ {
		pl, err := pipeline.New(cfg, chunkSubkeys[i])
		if err != nil {
			return nil, err
		}
		if p.sharedDedup != nil {
			pl.SetDedupContext(p.sharedDedup)
		}

		s := &Slot{
			ID:        i,
			pipeline:  pl,
			start:     make(chan Job, 1),
			done:      make(chan Outcome, 1),
			writeDone: make(chan struct{}, 1),
			indexSem:  make(chan struct{}, 1),
		}
		p.Slots[i] = s
	}

	// Wire the index semaphore ring: slot i posts to slot (i+1) mod n.
	for i, s := range p.Slots {
		s.nextIndexSem = p.Slots[(i+1)%n].indexSem
	}
	// Pre-post writeDone on every slot so the first cycle is unblocked,
	// and pre-post the first slot's index semaphore so the ring can start.
	for _, s := range p.Slots {
		s.writeDone <- struct{}{}
	}
	if n > 0 {
		p.Slots[0].indexSem <- struct{}{}
	}

	return p, nil
}

// Start launches one goroutine per slot running its processing loop. mode
// selects compress or decompress behavior.
func (p *Pool) Start(mode Mode) {
	for _, s := range p.Slots {
		p.wg.Add(1)
		go p.runSlot(s, mode)
	}
}

// Mode selects which direction a Pool's slots run.
type Mode int

const (
	ModeCompress Mode = iota
	ModeDecompress
)

func (p *Pool) runSlot(s *Slot, mode Mode) {
	defer p.wg.Done()
	for job := range s.start {
		useRing := p.sharedDedup != nil
		if useRing {
			<-s.indexSem
		}

		var out Outcome
		switch mode {
		case ModeCompress:
			res, err := s.pipeline.CompressChunk(job.ID, job.Raw)
			out = Outcome{ID: job.ID, Err: err}
			if err == nil {
				out.Header = res.Header
			}
		case ModeDecompress:
			plain, err := s.pipeline.DecompressChunk(job.ID, job.Frame)
			out = Outcome{ID: job.ID, Plain: plain, Err: err}
		}

		if useRing {
			s.nextIndexSem <- struct{}{}
		}

		s.done <- out
		<-s.writeDone
	}
}

// Dispatch hands job to slot i's start channel (the Producer's "post
// start" step).
func (p *Pool) Dispatch(i int, job Job) {
	p.Slots[i].start <- job
}

// Await blocks for slot i's completion (the Writer's "wait(done)" step).
func (p *Pool) Await(i int) Outcome {
	return <-p.Slots[i].done
}

// Free posts writeDone for slot i, unblocking its next cycle (the Writer's
// "post(write_done)" step).
func (p *Pool) Free(i int) {
	p.Slots[i].writeDone <- struct{}{}
}

// Cancel closes every slot's start channel, causing each runSlot goroutine
// to exit its range loop immediately once it finishes any job already in
// flight, then waits for all of them to return. Used both for the normal
// EOF shutdown path and for signal/fatal-error cancellation (spec.md §4.7);
// the two are the same operation once the triad is channels instead of
// raw semaphores; a WorkerSlot has nothing left to clean up differently
// between them. Idempotent: a Controller's cleanup phase may call this
// after shutdown already did, and closing a channel twice panics otherwise.
func (p *Pool) Cancel() {
	p.cancelOnce.Do(func() {
		for _, s := range p.Slots {
			close(s.start)
		}
		p.wg.Wait()
	})
}

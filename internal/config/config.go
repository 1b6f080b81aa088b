// Package config defines PipelineConfig: the single immutable value
// spec.md §9 asks for in place of package-level globals. internal/cli
// builds exactly one PipelineConfig from parsed flags and passes it by
// value to the Controller, which derives whatever each of Producer,
// worker.Pool and Writer needs from it — no package below this one reads
// flags or environment state directly.
package config

import (
	"runtime"

	"pcompress/internal/checksum"
	"pcompress/internal/crypto"
)

// Direction selects compress or decompress mode (spec.md §6.1 `-c`/`-d`).
type Direction int

const (
	DirCompress Direction = iota
	DirDecompress
)

// PipelineConfig is the immutable, fully-resolved set of parameters a run
// of pcompress needs. It is built once by internal/cli and never mutated
// afterward; every downstream component takes a copy or a pointer-to-const
// view of it.
type PipelineConfig struct {
	Direction  Direction
	InputFile  string
	OutputFile string

	Codec     string // -c algorithm name, e.g. "zlib", "adapt"
	Level     int    // -l compression level, default 6
	ChunkSize uint64 // -s chunk size in bytes

	Pipe    bool // -p stdin/stdout mode
	Threads int  // -t worker count; 0 means runtime.NumCPU()

	ChecksumKind checksum.Kind // -S

	Crypto   crypto.Algorithm // -e
	KeyLen   int              // -k (16 or 32)
	Password []byte           // read from -w password file; not zeroed after derivation

	DedupEnabled    bool // -D (rabin) or -F (fixed) or implied by -E/-EE
	DedupFixed      bool // -F: fixed-block instead of content-defined
	DedupGlobal     bool // -G: persist dedup index across chunks
	DedupBlockIndex int  // -B <1..5>: average dedup block size index
	RabinSplit      bool // !-r: producer cuts chunk reads at rabin boundaries

	LZPEnabled bool // -L
	Delta2Span int  // -P span in bytes, 0 disables

	ShowMemStats  bool // -M
	ShowCostStats bool // -C
}

// dedupBlockSizes maps the -B index (1..5) to an average dedup block size
// in bytes, doubling at each step so index 3 lands on a common 4 KiB
// content-defined chunk target.
var dedupBlockSizes = [...]uint{1024, 2048, 4096, 8192, 16384}

// DedupBlockSize resolves DedupBlockIndex to a byte count, defaulting to
// index 3 (4096 bytes) when unset or out of range.
func (c PipelineConfig) DedupBlockSize() uint {
	i := c.DedupBlockIndex
	if i < 1 || i > len(dedupBlockSizes) {
		i = 3
	}
	return dedupBlockSizes[i-1]
}

// ResolvedThreads returns Threads, defaulting to runtime.NumCPU() when the
// user did not set one explicitly.
func (c PipelineConfig) ResolvedThreads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

// Validate checks invariants spec.md §3/§9 require before a run starts:
// chunk size sanity, positive thread count, and direction-appropriate
// fields being present.
func (c PipelineConfig) Validate() error {
	if c.ChunkSize == 0 {
		return errConfigInvalid("chunk size must be > 0")
	}
	if !c.Pipe {
		if c.InputFile == "" {
			return errConfigInvalid("input file is required")
		}
		if c.OutputFile == "" {
			return errConfigInvalid("output file is required")
		}
	}
	if c.Crypto != crypto.AlgoNone && c.KeyLen != 16 && c.KeyLen != 32 {
		return errConfigInvalid("key length must be 16 or 32 bytes when encryption is enabled")
	}
	return nil
}

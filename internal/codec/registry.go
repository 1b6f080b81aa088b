// Package codec implements the Codec Registry (C1): resolving an algorithm
// name to a small capability set of {compress, decompress}. Grounded on the
// "one function per backend, selected by name" shape used throughout the
// pack (e.g. falk-nsz-go's pkg/fs/compressor.go dispatching to
// pkg/zstd.Compress) rather than a heavier interface-per-object vtable.
// Resolve builds a fresh instance per call because the adaptive codec keeps
// per-instance state.
package codec

import "fmt"

// Codec resolves to a compress/decompress pair for one named algorithm.
// level is the compression level (0..14, meaning backend-specific);
// decompress does not need it. Both methods operate on whole buffers: the
// pipeline owns chunk-sized buffering, not the codec.
type Codec interface {
	Name() string
	Compress(dst, src []byte, level int) ([]byte, error)
	Decompress(dst, src []byte) ([]byte, error)
}

// AdaptiveCodec additionally reports which concrete sub-codec id was used
// to compress the most recent chunk, so the pipeline can record it in the
// chunk flags byte's adaptive-sub-algo field (spec.md §4.1/§4.6).
type AdaptiveCodec interface {
	Codec
	LastSubAlgo() uint8
	DecompressSubAlgo(dst, src []byte, subAlgo uint8) ([]byte, error)
}

// Resolve returns a fresh Codec instance for name. A new instance per call
// is deliberate: spec.md's WorkerSlot owns its own `backend_state` per
// worker (§3), and adaptiveCodec in particular carries per-call mutable
// state (the last-used sub-algo id) that must never be shared across
// concurrently-running workers. internal/pipeline calls Resolve once per
// worker at setup, not once globally.
func Resolve(name string) (Codec, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown algorithm %q", name)
	}
	return factory(), nil
}

// Names returns every registered codec name, for CLI help/validation.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	return names
}

var factories = map[string]func() Codec{
	"none":   func() Codec { return noneCodec{} },
	"zlib":   func() Codec { return newZlibCodec() },
	"lzma":   func() Codec { return newLZMACodec() },
	"lzmaMt": func() Codec { return newLZMAMtCodec() },
	"bzip2":  func() Codec { return newBzip2Codec() },
	"lz4":    func() Codec { return newLZ4Codec() },
	"lzfx":   func() Codec { return newPlaceholderCodec("lzfx") },
	"ppmd":   func() Codec { return newPlaceholderCodec("ppmd") },
	"libbsc": func() Codec { return newPlaceholderCodec("libbsc") },
	"adapt":  func() Codec { return newAdaptiveCodec("adapt", false) },
	"adapt2": func() Codec { return newAdaptiveCodec("adapt2", true) },
}

package codec

import "fmt"

// adaptiveCodec implements -c adapt / -c adapt2: per spec.md §4.1, the
// registry holds one adaptive-mode bit, and the container's chunk flags
// reserve the adaptive-sub-algo field (widened to 3 bits, Open Question 3)
// to record which concrete sub-codec actually compressed the chunk.
// Compress tries every candidate and keeps the smallest result; wide mode
// (adapt2) adds the slower, higher-ratio backends to the candidate set.
type adaptiveCodec struct {
	name       string
	candidates []Codec
	lastSub    uint8
}

func newAdaptiveCodec(name string, wide bool) Codec {
	cands := []Codec{
		noneCodec{},
		newZstdCodecImpl(),
		newLZ4Codec(),
		newZlibCodec(),
	}
	if wide {
		cands = append(cands, newLZMACodec(), newBzip2Codec())
	}
	return &adaptiveCodec{name: name, candidates: cands}
}

func (c *adaptiveCodec) Name() string { return c.name }

func (c *adaptiveCodec) Compress(dst, src []byte, level int) ([]byte, error) {
	var best []byte
	bestSub := uint8(0)
	for i, cand := range c.candidates {
		out, err := cand.Compress(nil, src, level)
		if err != nil {
			continue
		}
		if best == nil || len(out) < len(best) {
			best = out
			bestSub = uint8(i)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("codec %s: every candidate sub-codec failed", c.name)
	}
	c.lastSub = bestSub
	return append(dst[:0], best...), nil
}

// Decompress is unused directly by the pipeline for adaptive codecs: the
// sub-algo id recorded in the chunk flags byte is required to know which
// candidate produced the payload, so callers use DecompressSubAlgo instead.
func (c *adaptiveCodec) Decompress(dst, src []byte) ([]byte, error) {
	return c.DecompressSubAlgo(dst, src, 0)
}

func (c *adaptiveCodec) DecompressSubAlgo(dst, src []byte, subAlgo uint8) ([]byte, error) {
	if int(subAlgo) >= len(c.candidates) {
		return nil, fmt.Errorf("codec %s: unknown sub-algo id %d", c.name, subAlgo)
	}
	return c.candidates[subAlgo].Decompress(dst, src)
}

func (c *adaptiveCodec) LastSubAlgo() uint8 { return c.lastSub }

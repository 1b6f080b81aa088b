// Package preprocess implements the two optional reversible filters
// spec.md §4/§6.4 call out as narrow external collaborators sitting
// between dedup and backend compression: LZP (lossless byte prediction)
// and Delta2 (numeric-sequence delta). Both are self-contained — no
// ecosystem Go package implementing either was found anywhere in the
// example pack, and each is a compact, well-known filter behind a tiny
// src/dst interface, consistent with spec.md treating them as out-of-scope
// collaborators specified only by interface (see DESIGN.md).
package preprocess

const (
	lzpContextBits  = 16
	lzpContextSize  = 1 << lzpContextBits
	lzpContextOrder = 4 // bytes of history hashed into the context table
	lzpMinMatch     = 32
)

// lzpHash mixes the last lzpContextOrder bytes into a table index. Grounded
// on the classic Ross Williams / Charles Bloom LZP context hash: multiply-
// shift over a small rolling window, truncated to lzpContextBits.
func lzpHash(history uint32) uint32 {
	h := history * 2654435761
	return h >> (32 - lzpContextBits)
}

// LZPCompress runs LZ-Predict over src: at each position it guesses the
// next byte from a hash of the preceding lzpContextOrder bytes, and when
// the guess is a long enough run of correct predictions, emits a
// length-coded match marker instead of literal bytes. Returns ok=false
// (with the input length unreduced) when the filter does not shrink the
// buffer, per spec.md §4 step 4's "keep output only if it reduced length".
func LZPCompress(src []byte) (dst []byte, ok bool) {
	if len(src) < lzpContextOrder+lzpMinMatch {
		return nil, false
	}

	table := make([]int32, lzpContextSize)
	for i := range table {
		table[i] = -1
	}

	out := make([]byte, 0, len(src))
	var history uint32
	i := 0

	for i < lzpContextOrder {
		history = history<<8 | uint32(src[i])
		out = append(out, src[i])
		i++
	}

	for i < len(src) {
		idx := lzpHash(history)
		predicted := table[idx]
		table[idx] = int32(i)

		matchLen := 0
		if predicted >= 0 {
			p := int(predicted)
			for i+matchLen < len(src) && p+matchLen < i && src[p+matchLen] == src[i+matchLen] {
				matchLen++
				if matchLen == 255 {
					break
				}
			}
		}

		if matchLen >= lzpMinMatch {
			out = append(out, 0xFF, byte(matchLen))
			for j := 0; j < matchLen; j++ {
				history = history<<8 | uint32(src[i])
				i++
			}
			continue
		}

		b := src[i]
		if b == 0xFF {
			out = append(out, 0xFF, 0x00) // escape literal 0xFF
		} else {
			out = append(out, b)
		}
		history = history<<8 | uint32(b)
		i++
	}

	if len(out) >= len(src) {
		return nil, false
	}
	return out, true
}

// LZPDecompress inverts LZPCompress. It rebuilds the same hash table the
// encoder built, since predictions reference already-decoded output.
func LZPDecompress(src []byte, originalLen int) ([]byte, error) {
	if len(src) < lzpContextOrder {
		return append([]byte(nil), src...), nil
	}

	table := make([]int32, lzpContextSize)
	for i := range table {
		table[i] = -1
	}

	out := make([]byte, 0, originalLen)
	var history uint32
	i := 0

	for i < lzpContextOrder && i < len(src) {
		out = append(out, src[i])
		history = history<<8 | uint32(src[i])
		i++
	}

	for i < len(src) {
		if src[i] == 0xFF {
			i++
			if i >= len(src) {
				return nil, errLZPTruncated
			}
			marker := src[i]
			i++
			if marker == 0x00 {
				idx := lzpHash(history)
				table[idx] = int32(len(out))
				out = append(out, 0xFF)
				history = history<<8 | 0xFF
				continue
			}
			matchLen := int(marker)
			idx := lzpHash(history)
			p := int(table[idx])
			if p < 0 {
				return nil, errLZPBadReference
			}
			table[idx] = int32(len(out))
			for j := 0; j < matchLen; j++ {
				b := out[p+j]
				out = append(out, b)
				history = history<<8 | uint32(b)
			}
			continue
		}

		idx := lzpHash(history)
		table[idx] = int32(len(out))
		out = append(out, src[i])
		history = history<<8 | uint32(src[i])
		i++
	}

	return out, nil
}

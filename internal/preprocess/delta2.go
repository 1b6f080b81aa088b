package preprocess

// Delta2Compress applies a byte-wise delta at distance span: the first
// span bytes are copied unchanged and every later byte becomes its
// difference from the byte `span` positions earlier, mod 256. This is the classic "delta filter" numeric codecs use ahead of
// entropy coding (e.g. PNG's per-scanline filters, FLAC's fixed predictors)
// generalized to an arbitrary element width, matching spec.md §4's
// `delta2_span` parameter. Returns an error only when span is invalid;
// unlike LZP it is always applied when enabled (spec.md: "keep if it did
// not error", not "keep if smaller" — delta data is judged by the
// downstream compressor, not by raw size).
func Delta2Compress(src []byte, span int) ([]byte, error) {
	if span <= 0 {
		return nil, errDelta2BadSpan
	}
	out := make([]byte, len(src))
	for i, b := range src {
		if i < span {
			out[i] = b
			continue
		}
		out[i] = b - src[i-span]
	}
	return out, nil
}

// Delta2Decompress inverts Delta2Compress: each lane byte is reconstructed
// by re-accumulating against the already-restored byte `span` positions
// earlier.
func Delta2Decompress(src []byte, span int) ([]byte, error) {
	if span <= 0 {
		return nil, errDelta2BadSpan
	}
	out := make([]byte, len(src))
	for i, b := range src {
		if i < span {
			out[i] = b
			continue
		}
		out[i] = b + out[i-span]
	}
	return out, nil
}

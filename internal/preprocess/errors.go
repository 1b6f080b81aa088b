package preprocess

import "errors"

var (
	errLZPTruncated    = errors.New("preprocess: truncated lzp stream")
	errLZPBadReference  = errors.New("preprocess: lzp match references unseen context")
	errDelta2BadSpan    = errors.New("preprocess: delta2 span must be > 0")
)

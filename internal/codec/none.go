package codec

// noneCodec passes bytes through unchanged; selecting -c none still runs
// the full authenticate stage (Open Question 1: authentication applies
// regardless of codec).
type noneCodec struct{}

func (noneCodec) Name() string { return "none" }

func (noneCodec) Compress(dst, src []byte, level int) ([]byte, error) {
	return append(dst[:0], src...), nil
}

func (noneCodec) Decompress(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}

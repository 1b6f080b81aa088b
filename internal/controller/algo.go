package controller

import (
	"pcompress/internal/container"
	"pcompress/internal/crypto"
)

// encodeAlgoTag renders a codec name into the fixed 8-byte ASCII tag
// format.FileHeader.Algo expects, zero-padded. spec.md §6.2 additionally
// requires the first bytes to match a minimum unambiguous prefix length per
// algorithm (zlib/4, lzma/4, lzmaMt/6, bzip2/5, ppmd/4, lzfx/4, lz4/3,
// none/4, adapt2/6, adapt/5, libbsc/6); every registered codec name in
// internal/codec is already that exact spelling, so truncating to 8 bytes
// and zero-padding satisfies the prefix rule without a lookup table.
func encodeAlgoTag(name string) [container.AlgoTagSize]byte {
	var tag [container.AlgoTagSize]byte
	copy(tag[:], name)
	return tag
}

// decodeAlgoTag trims trailing zero padding back to the codec name.
func decodeAlgoTag(tag [container.AlgoTagSize]byte) string {
	n := container.AlgoTagSize
	for n > 0 && tag[n-1] == 0 {
		n--
	}
	return string(tag[:n])
}

// toContainerCrypto maps internal/crypto's Algorithm (used throughout the
// pipeline) to internal/container's CryptoAlgo (the wire encoding), kept as
// separate types so the container package never imports crypto internals.
func toContainerCrypto(a crypto.Algorithm) container.CryptoAlgo {
	switch a {
	case crypto.AlgoAES:
		return container.CryptoAES
	case crypto.AlgoSalsa20:
		return container.CryptoSalsa20
	default:
		return container.CryptoNone
	}
}

func fromContainerCrypto(a container.CryptoAlgo) crypto.Algorithm {
	switch a {
	case container.CryptoAES:
		return crypto.AlgoAES
	case container.CryptoSalsa20:
		return crypto.AlgoSalsa20
	default:
		return crypto.AlgoNone
	}
}

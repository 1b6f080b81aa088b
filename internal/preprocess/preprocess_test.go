package preprocess

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestLZPRoundTripRepetitive(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	compressed, ok := LZPCompress(src)
	if !ok {
		t.Fatal("expected LZP to reduce a highly repetitive buffer")
	}
	if len(compressed) >= len(src) {
		t.Errorf("compressed size %d not smaller than source %d", len(compressed), len(src))
	}

	out, err := LZPDecompress(compressed, len(src))
	if err != nil {
		t.Fatalf("LZPDecompress failed: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("LZP round-trip mismatch")
	}
}

func TestLZPRejectsIncompressibleData(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	src := make([]byte, 8192)
	rnd.Read(src)

	if _, ok := LZPCompress(src); ok {
		t.Error("LZP should report ok=false when it fails to shrink random data")
	}
}

func TestLZPHandlesLiteral0xFF(t *testing.T) {
	// The repeat period must exceed the 32-byte minimum match, or LZP never
	// finds a match and the buffer does not compress.
	pattern := append([]byte{0xFF}, []byte("literal escape bytes inside a repeating run")...)
	pattern = append(pattern, 0xFF)
	src := append(bytes.Repeat(pattern, 40), 0xFF)
	compressed, ok := LZPCompress(src)
	if !ok {
		t.Skip("buffer did not compress; the 0xFF escape round-trip is not exercised")
	}
	out, err := LZPDecompress(compressed, len(src))
	if err != nil {
		t.Fatalf("LZPDecompress failed: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("round-trip mismatch with literal 0xFF bytes present")
	}
}

func TestDelta2RoundTrip(t *testing.T) {
	src := make([]byte, 1024)
	for i := range src {
		src[i] = byte(i * 3 % 251)
	}

	for _, span := range []int{1, 2, 4, 8} {
		compressed, err := Delta2Compress(src, span)
		if err != nil {
			t.Fatalf("Delta2Compress(span=%d) failed: %v", span, err)
		}
		out, err := Delta2Decompress(compressed, span)
		if err != nil {
			t.Fatalf("Delta2Decompress(span=%d) failed: %v", span, err)
		}
		if !bytes.Equal(out, src) {
			t.Fatalf("delta2 round-trip mismatch for span=%d", span)
		}
	}
}

func TestDelta2RejectsInvalidSpan(t *testing.T) {
	if _, err := Delta2Compress([]byte("abc"), 0); err == nil {
		t.Error("expected error for span=0")
	}
	if _, err := Delta2Compress([]byte("abc"), -1); err == nil {
		t.Error("expected error for negative span")
	}
}

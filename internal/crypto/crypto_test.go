package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	password := []byte("correct horse battery staple")
	salt := []byte("0123456789012345")

	key, err := DeriveKey(password, salt, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("DeriveKey length = %d; want 32", len(key))
	}

	key16, err := DeriveKey(password, salt, 16)
	if err != nil {
		t.Fatalf("DeriveKey(16) failed: %v", err)
	}
	if len(key16) != 16 {
		t.Errorf("DeriveKey(16) length = %d; want 16", len(key16))
	}

	// Different passwords must produce different keys.
	key2, _ := DeriveKey([]byte("different password"), salt, 32)
	if bytes.Equal(key, key2) {
		t.Error("different passwords should derive different keys")
	}

	// Same inputs must be deterministic.
	key3, _ := DeriveKey(password, salt, 32)
	if !bytes.Equal(key, key3) {
		t.Error("DeriveKey should be deterministic for the same inputs")
	}
}

func TestSubkeyReaderOrder(t *testing.T) {
	key := make([]byte, 32)
	salt := make([]byte, 16)
	stream := NewHKDFStream(key, salt)
	reader := NewSubkeyReader(stream)

	header, err := reader.HeaderSubkey()
	if err != nil {
		t.Fatalf("HeaderSubkey() failed: %v", err)
	}
	if len(header) != SubkeyHeaderSize {
		t.Errorf("header subkey length = %d; want %d", len(header), SubkeyHeaderSize)
	}

	chunk, err := reader.ChunkSubkey()
	if err != nil {
		t.Fatalf("ChunkSubkey() failed: %v", err)
	}
	if len(chunk) != SubkeyChunkSize {
		t.Errorf("chunk subkey length = %d; want %d", len(chunk), SubkeyChunkSize)
	}

	if bytes.Equal(header, chunk) {
		t.Error("header and chunk subkeys must differ")
	}
}

func TestSubkeyReaderRejectsOutOfOrder(t *testing.T) {
	stream := NewHKDFStream(make([]byte, 32), make([]byte, 16))
	reader := NewSubkeyReader(stream)

	if _, err := reader.ChunkSubkey(); err == nil {
		t.Error("ChunkSubkey() before HeaderSubkey() should fail")
	}
}

func TestSubkeyReaderRejectsDoubleRead(t *testing.T) {
	stream := NewHKDFStream(make([]byte, 32), make([]byte, 16))
	reader := NewSubkeyReader(stream)

	if _, err := reader.HeaderSubkey(); err != nil {
		t.Fatalf("HeaderSubkey() failed: %v", err)
	}
	if _, err := reader.HeaderSubkey(); err == nil {
		t.Error("second HeaderSubkey() call should fail")
	}
}

func TestNewMAC(t *testing.T) {
	subkey := make([]byte, 64)
	mac := NewMAC(subkey)
	mac.Write([]byte("chunk payload"))
	sum := mac.Sum(nil)
	if len(sum) != MACSize {
		t.Errorf("MAC output length = %d; want %d", len(sum), MACSize)
	}
}

func TestChunkCipherRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{AlgoAES, AlgoSalsa20} {
		t.Run(algo.String(), func(t *testing.T) {
			key := make([]byte, 32)
			for i := range key {
				key[i] = byte(i)
			}
			baseNonce := make([]byte, algo.NonceLen())
			for i := range baseNonce {
				baseNonce[i] = byte(i + 1)
			}

			cipher, err := NewChunkCipher(algo, key, baseNonce)
			if err != nil {
				t.Fatalf("NewChunkCipher failed: %v", err)
			}

			plaintext := bytes.Repeat([]byte("pcompress chunk payload "), 100)
			ciphertext := make([]byte, len(plaintext))
			if err := cipher.XORKeyStream(42, ciphertext, plaintext); err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}
			if bytes.Equal(ciphertext, plaintext) {
				t.Error("ciphertext should differ from plaintext")
			}

			decrypted := make([]byte, len(ciphertext))
			if err := cipher.XORKeyStream(42, decrypted, ciphertext); err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if !bytes.Equal(decrypted, plaintext) {
				t.Error("decrypted output does not match original plaintext")
			}
		})
	}
}

func TestChunkCipherIndependentChunks(t *testing.T) {
	key := make([]byte, 32)
	baseNonce := make([]byte, AlgoAES.NonceLen())
	cipher, err := NewChunkCipher(AlgoAES, key, baseNonce)
	if err != nil {
		t.Fatalf("NewChunkCipher failed: %v", err)
	}

	plaintext := bytes.Repeat([]byte("x"), 64)
	out1 := make([]byte, len(plaintext))
	out2 := make([]byte, len(plaintext))
	if err := cipher.XORKeyStream(1, out1, plaintext); err != nil {
		t.Fatalf("chunk 1 encrypt failed: %v", err)
	}
	if err := cipher.XORKeyStream(2, out2, plaintext); err != nil {
		t.Fatalf("chunk 2 encrypt failed: %v", err)
	}
	if bytes.Equal(out1, out2) {
		t.Error("different chunk ids must produce different ciphertext for identical plaintext")
	}
}

func TestChunkCipherNone(t *testing.T) {
	cipher, err := NewChunkCipher(AlgoNone, nil, nil)
	if err != nil {
		t.Fatalf("NewChunkCipher(AlgoNone) failed: %v", err)
	}
	src := []byte("unchanged")
	dst := make([]byte, len(src))
	if err := cipher.XORKeyStream(0, dst, src); err != nil {
		t.Fatalf("XORKeyStream failed: %v", err)
	}
	if !bytes.Equal(dst, src) {
		t.Error("AlgoNone should pass bytes through unchanged")
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"AES":     AlgoAES,
		"SALSA20": AlgoSalsa20,
		"":        AlgoNone,
	}
	for name, want := range cases {
		got, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", name, err)
		}
		if got != want {
			t.Errorf("ParseAlgorithm(%q) = %v; want %v", name, got, want)
		}
	}

	if _, err := ParseAlgorithm("rot13"); err == nil {
		t.Error("ParseAlgorithm should reject unknown algorithms")
	}
}

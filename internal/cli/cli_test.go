package cli

import (
	"os"
	"path/filepath"
	"testing"

	"pcompress/internal/config"
)

// resetFlags restores every package-level flag var to its zero/default
// value between test cases, since buildConfig reads them directly rather
// than through a fresh cobra.Command each call.
func resetFlags() {
	flagCodec = ""
	flagDecompress = false
	flagChunkSize = "16m"
	flagLevel = 6
	flagPipe = false
	flagThreads = 0
	flagDedupRabin = false
	flagDedupGlobal = false
	flagDedupFixed = false
	flagDeltaSim = ""
	flagNoRabinSplit = false
	flagLZP = false
	flagDelta2 = 0
	flagChecksum = "crc32"
	flagDedupBlock = 3
	flagCryptoAlgo = ""
	flagPasswordFile = ""
	flagKeyLen = 32
	flagShowMem = false
	flagShowCost = false
	flagQuiet = false
}

func TestParseChunkSize(t *testing.T) {
	cases := map[string]uint64{
		"1024": 1024,
		"16m":  16 * 1024 * 1024,
		"16M":  16 * 1024 * 1024,
		"2g":   2 * 1024 * 1024 * 1024,
		"4k":   4 * 1024,
	}
	for in, want := range cases {
		got, err := parseChunkSize(in)
		if err != nil {
			t.Errorf("parseChunkSize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseChunkSize(%q) = %d, want %d", in, got, want)
		}
	}

	if _, err := parseChunkSize(""); err == nil {
		t.Error("expected error for empty chunk size")
	}
	if _, err := parseChunkSize("abc"); err == nil {
		t.Error("expected error for non-numeric chunk size")
	}
}

func TestBuildConfigCompressMode(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	in := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(in, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	flagCodec = "zlib"
	flagChunkSize = "64k"

	cfg, err := buildConfig(in)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Direction != config.DirCompress {
		t.Errorf("Direction = %v, want DirCompress", cfg.Direction)
	}
	if cfg.OutputFile != in+".pz" {
		t.Errorf("OutputFile = %q, want %q", cfg.OutputFile, in+".pz")
	}
	if cfg.ChunkSize != 64*1024 {
		t.Errorf("ChunkSize = %d, want %d", cfg.ChunkSize, 64*1024)
	}
}

func TestBuildConfigRejectsExistingOutput(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	in := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(in, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}
	if err := os.WriteFile(in+".pz", []byte("existing"), 0o644); err != nil {
		t.Fatalf("writing existing output: %v", err)
	}

	flagCodec = "zlib"
	if _, err := buildConfig(in); err == nil {
		t.Error("expected error when output file already exists")
	}
}

func TestBuildConfigDecompressRequiresPzSuffix(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	in := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(in, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	flagDecompress = true
	if _, err := buildConfig(in); err == nil {
		t.Error("expected error decompressing a file without a .pz suffix")
	}
}

func TestBuildConfigMutuallyExclusiveModes(t *testing.T) {
	resetFlags()
	flagCodec = "zlib"
	flagDecompress = true
	if _, err := buildConfig("file.bin"); err == nil {
		t.Error("expected error when both -c and -d are set")
	}
}

func TestBuildConfigRequiresAMode(t *testing.T) {
	resetFlags()
	if _, err := buildConfig("file.bin"); err == nil {
		t.Error("expected error when neither -c nor -d is set")
	}
}

func TestBuildConfigDedupFixedExclusiveWithRabinAndDelta(t *testing.T) {
	resetFlags()
	flagCodec = "zlib"
	flagDedupFixed = true
	flagDedupRabin = true
	if _, err := buildConfig("file.bin"); err == nil {
		t.Error("expected error combining -F with -D")
	}

	resetFlags()
	flagCodec = "zlib"
	flagDedupFixed = true
	flagDeltaSim = "60"
	if _, err := buildConfig("file.bin"); err == nil {
		t.Error("expected error combining -F with -E")
	}
}

func TestBuildConfigDeltaSimValidation(t *testing.T) {
	resetFlags()
	flagCodec = "zlib"
	flagDeltaSim = "50"
	if _, err := buildConfig("file.bin"); err == nil {
		t.Error("expected error for --delta value other than 60 or 40")
	}
}

func TestBuildConfigGlobalDedupIncompatibleWithPipe(t *testing.T) {
	resetFlags()
	flagCodec = "zlib"
	flagPipe = true
	flagDedupGlobal = true
	if _, err := buildConfig("file.bin"); err == nil {
		t.Error("expected error combining -G with -p")
	}
}

func TestBuildConfigPipeModeSkipsOutputDerivation(t *testing.T) {
	resetFlags()
	flagCodec = "zlib"
	flagPipe = true

	cfg, err := buildConfig("unused")
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.InputFile != "" || cfg.OutputFile != "" {
		t.Errorf("pipe mode should leave file paths empty, got InputFile=%q OutputFile=%q", cfg.InputFile, cfg.OutputFile)
	}
}

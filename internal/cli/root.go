// Package cli implements pcompress's flag-driven command surface: a single
// command (no encrypt/decrypt subcommands) whose flags build one
// config.PipelineConfig, handed to internal/controller.Run. Grounded on the
// teacher's cobra + signal-handling + Reporter shape in root.go/reporter.go,
// narrowed from two subcommands down to one since the flag surface here
// already carries the mode switch (-c/-d).
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"pcompress/internal/checksum"
	"pcompress/internal/codec"
	"pcompress/internal/config"
	"pcompress/internal/controller"
	"pcompress/internal/crypto"
	"pcompress/internal/util"

	"github.com/spf13/cobra"
)

// Version is set by main.go.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pcompress <file>",
	Short: "Parallel chunked compression and encryption",
	Long: `pcompress splits a file into fixed-size chunks, runs each through a
worker pool (optional dedup, optional preprocessing, compression, optional
encryption, authentication), and writes a framed container decodable by the
inverse pipeline.`,
	Version:       Version,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runPcompress,
}

// Flags, named after spec.md §6.1's CLI surface table.
var (
	flagCodec        string
	flagDecompress   bool
	flagChunkSize    string
	flagLevel        int
	flagPipe         bool
	flagThreads      int
	flagDedupRabin   bool
	flagDedupGlobal  bool
	flagDedupFixed   bool
	flagDeltaSim     string
	flagNoRabinSplit bool
	flagLZP          bool
	flagDelta2       int
	flagChecksum     string
	flagDedupBlock   int
	flagCryptoAlgo   string
	flagPasswordFile string
	flagKeyLen       int
	flagShowMem      bool
	flagShowCost     bool
	flagQuiet        bool
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVarP(&flagCodec, "compress", "c", "", fmt.Sprintf("compress mode; algorithm one of %s", strings.Join(codec.Names(), ", ")))
	rootCmd.Flags().BoolVarP(&flagDecompress, "decompress", "d", false, "decompress mode")
	rootCmd.Flags().StringVarP(&flagChunkSize, "chunk-size", "s", "16m", "chunk size, suffixes g/m/k")
	rootCmd.Flags().IntVarP(&flagLevel, "level", "l", 6, "compression level (0..14)")
	rootCmd.Flags().BoolVarP(&flagPipe, "pipe", "p", false, "pipe mode: read stdin, write stdout")
	rootCmd.Flags().IntVarP(&flagThreads, "threads", "t", 0, "worker thread count (1..256), default NumCPU")
	rootCmd.Flags().BoolVarP(&flagDedupRabin, "dedup", "D", false, "content-defined (rabin) deduplication")
	rootCmd.Flags().BoolVarP(&flagDedupGlobal, "dedup-global", "G", false, "global dedup index (incompatible with pipe, delta encoding)")
	rootCmd.Flags().BoolVarP(&flagDedupFixed, "dedup-fixed", "F", false, "fixed-block dedup (mutually exclusive with -D, -E)")
	rootCmd.Flags().StringVar(&flagDeltaSim, "delta", "", "delta encoding similarity: 60 or 40 (implies -D)")
	rootCmd.Flags().BoolVarP(&flagNoRabinSplit, "no-rabin-split", "r", false, "do not split chunk reads at rabin boundaries")
	rootCmd.Flags().BoolVarP(&flagLZP, "lzp", "L", false, "LZP preprocessing")
	rootCmd.Flags().IntVarP(&flagDelta2, "delta2", "P", 0, "delta2 preprocessing span in bytes, 0 disables")
	rootCmd.Flags().StringVarP(&flagChecksum, "checksum", "S", "crc32", "checksum kind: crc32, sha256, sha3-256, blake2b")
	rootCmd.Flags().IntVarP(&flagDedupBlock, "dedup-block", "B", 3, "average dedup block size index (1..5)")
	rootCmd.Flags().StringVarP(&flagCryptoAlgo, "encrypt", "e", "", "encrypt chunks: AES or SALSA20")
	rootCmd.Flags().StringVarP(&flagPasswordFile, "password-file", "w", "", "password file path, zeroed after read")
	rootCmd.Flags().IntVarP(&flagKeyLen, "key-len", "k", 32, "key length in bytes: 16 or 32")
	rootCmd.Flags().BoolVarP(&flagShowMem, "mem-stats", "M", false, "show memory statistics")
	rootCmd.Flags().BoolVarP(&flagShowCost, "cost-stats", "C", false, "show compression cost statistics")
	rootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")
}

var globalReporter *Reporter

// Execute parses os.Args and runs the single pcompress command, installing a
// SIGINT/SIGTERM handler that cancels the in-flight Controller run instead
// of killing the process outright, mirroring the teacher's signal wiring.
func Execute(version string) bool {
	Version = version
	rootCmd.Version = version

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if globalReporter != nil {
			globalReporter.Cancel()
			fmt.Fprintln(os.Stderr, "\ncancelling...")
		} else {
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		return false
	}
	return true
}

func runPcompress(cmd *cobra.Command, args []string) error {
	inputFile := args[0]

	cfg, err := buildConfig(inputFile)
	if err != nil {
		return err
	}

	reporter := NewReporter(flagQuiet)
	globalReporter = reporter

	if !flagQuiet {
		if cfg.Direction == config.DirCompress {
			fmt.Fprintf(os.Stderr, "Compressing %s -> %s (%s, level %d)\n", cfg.InputFile, cfg.OutputFile, cfg.Codec, cfg.Level)
		} else if !cfg.Pipe {
			fmt.Fprintf(os.Stderr, "Decompressing %s -> %s\n", cfg.InputFile, cfg.OutputFile)
		}
	}

	err = controller.Run(cfg, newReporterAdapter(reporter))
	reporter.Finish()

	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}

	if cfg.Direction == config.DirCompress {
		reporter.PrintSuccess("Compressed to %s", cfg.OutputFile)
	} else if !cfg.Pipe {
		reporter.PrintSuccess("Decompressed to %s", cfg.OutputFile)
	}
	return nil
}

// buildConfig resolves flags + the positional input path into a single
// config.PipelineConfig, the only thing passed on to internal/controller.
func buildConfig(inputFile string) (config.PipelineConfig, error) {
	var cfg config.PipelineConfig

	if flagCodec != "" && flagDecompress {
		return cfg, fmt.Errorf("-c and -d are mutually exclusive")
	}
	if flagCodec == "" && !flagDecompress {
		return cfg, fmt.Errorf("one of -c <algo> or -d is required")
	}

	cfg.Pipe = flagPipe
	if !flagPipe {
		cfg.InputFile = inputFile
	}

	if flagCodec != "" {
		cfg.Direction = config.DirCompress
		if _, err := codec.Resolve(flagCodec); err != nil {
			return cfg, err
		}
		cfg.Codec = flagCodec
		if !flagPipe {
			cfg.OutputFile = inputFile + ".pz"
			if _, err := os.Stat(cfg.OutputFile); err == nil {
				return cfg, fmt.Errorf("output file %s already exists", cfg.OutputFile)
			}
		}
	} else {
		cfg.Direction = config.DirDecompress
		if !flagPipe {
			cfg.OutputFile = strings.TrimSuffix(inputFile, ".pz")
			if cfg.OutputFile == inputFile {
				return cfg, fmt.Errorf("input file must have a .pz suffix to decompress")
			}
			if _, err := os.Stat(cfg.OutputFile); err == nil {
				return cfg, fmt.Errorf("output file %s already exists", cfg.OutputFile)
			}
		}
	}

	chunkSize, err := parseChunkSize(flagChunkSize)
	if err != nil {
		return cfg, err
	}
	cfg.ChunkSize = chunkSize

	cfg.Level = flagLevel
	cfg.Threads = flagThreads
	if cfg.Threads < 0 || cfg.Threads > 256 {
		return cfg, fmt.Errorf("-t must be between 1 and 256")
	}

	ckind, err := checksum.ParseKind(flagChecksum)
	if err != nil {
		return cfg, err
	}
	cfg.ChecksumKind = ckind

	if flagDedupBlock < 1 || flagDedupBlock > 5 {
		return cfg, fmt.Errorf("-B must be between 1 and 5")
	}

	cfg.DedupFixed = flagDedupFixed
	cfg.DedupGlobal = flagDedupGlobal
	cfg.DedupEnabled = flagDedupRabin || flagDedupFixed
	cfg.DedupBlockIndex = flagDedupBlock
	cfg.RabinSplit = !flagNoRabinSplit

	if flagDeltaSim != "" {
		if flagDeltaSim != "60" && flagDeltaSim != "40" {
			return cfg, fmt.Errorf("-E must be 60 or 40")
		}
		cfg.DedupEnabled = true
	}
	if flagDedupFixed && (flagDedupRabin || flagDeltaSim != "") {
		return cfg, fmt.Errorf("-F is mutually exclusive with -D and -E")
	}
	if flagDedupGlobal && flagPipe {
		return cfg, fmt.Errorf("-G is incompatible with pipe mode")
	}
	if flagDedupGlobal && flagDeltaSim != "" {
		return cfg, fmt.Errorf("-G is incompatible with delta encoding")
	}

	cfg.LZPEnabled = flagLZP
	cfg.Delta2Span = flagDelta2

	if flagCryptoAlgo != "" {
		algo, err := crypto.ParseAlgorithm(flagCryptoAlgo)
		if err != nil {
			return cfg, err
		}
		cfg.Crypto = algo
		cfg.KeyLen = flagKeyLen

		password, err := acquirePassword(cfg.Direction == config.DirCompress)
		if err != nil {
			return cfg, err
		}
		cfg.Password = password
	}

	cfg.ShowMemStats = flagShowMem
	cfg.ShowCostStats = flagShowCost

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// acquirePassword reads the password from -w's file when given (zeroing the
// file's buffer after use), else prompts interactively, confirming only on
// the compress direction per spec.md §6.1.
func acquirePassword(confirm bool) ([]byte, error) {
	if flagPasswordFile != "" {
		return readPasswordFile(flagPasswordFile)
	}
	pw, err := ReadPasswordInteractive(confirm)
	if err != nil {
		return nil, err
	}
	return []byte(pw), nil
}

func parseChunkSize(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("-s chunk size is required")
	}
	mult := uint64(1)
	suffix := s[len(s)-1]
	numPart := s
	switch suffix {
	case 'g', 'G':
		mult = util.GiB
		numPart = s[:len(s)-1]
	case 'm', 'M':
		mult = util.MiB
		numPart = s[:len(s)-1]
	case 'k', 'K':
		mult = util.KiB
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chunk size %q: %w", s, err)
	}
	return n * mult, nil
}

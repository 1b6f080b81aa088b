package controller

import (
	"fmt"
	"io"
	"os"
	"time"

	"pcompress/internal/checksum"
	"pcompress/internal/config"
	"pcompress/internal/container"
	"pcompress/internal/crypto"
	"pcompress/internal/errors"
	"pcompress/internal/log"
	"pcompress/internal/pipeline"
	"pcompress/internal/util"
	"pcompress/internal/worker"
	"pcompress/internal/writer"
)

// decompressCtx mirrors compressCtx for the reverse direction. out is always
// the final destination file opened directly (O_CREATE|O_TRUNC) rather than
// a scratch name, since spec.md §7 requires a failed decompression's partial
// target to survive under its real name for diagnosis, not be discarded
// along with a renamed-away temp file.
type decompressCtx struct {
	cfg      config.PipelineConfig
	reporter ProgressReporter

	in    io.ReadCloser
	total int64

	outFile *os.File // nil in pipe mode
	out     io.Writer
	header  *container.FileHeader

	keys *keyMaterial // nil in non-crypto mode

	pool   *worker.Pool
	writer *writer.Writer
}

func runDecompress(cfg config.PipelineConfig, reporter ProgressReporter) error {
	ctx := &decompressCtx{cfg: cfg, reporter: reporter}
	defer func() { ctx.keys.Close() }()

	if err := decompressSetup(ctx); err != nil {
		decompressCleanup(ctx)
		return err
	}
	if err := decompressSteadyState(ctx); err != nil {
		decompressCleanup(ctx)
		return err
	}
	if err := decompressShutdown(ctx); err != nil {
		decompressCleanup(ctx)
		return err
	}
	return nil
}

func decompressSetup(ctx *decompressCtx) error {
	cfg := ctx.cfg
	ctx.reporter.SetStatus("opening input")

	in, total, err := openInput(cfg)
	if err != nil {
		return err
	}
	ctx.in = in
	ctx.total = total

	ctx.reporter.SetStatus("reading header")
	hdr, err := container.ReadFileHeader(ctx.in, crypto.MACSize)
	if err != nil {
		return fmt.Errorf("controller: read file header: %w", err)
	}
	ctx.header = hdr

	if hdr.IsCrypto() {
		ctx.reporter.SetStatus("deriving key")
		keys, err := deriveSubkeys(cfg.Password, hdr.Salt, int(hdr.KeyLen))
		if err != nil {
			return err
		}
		ctx.keys = keys

		headerMAC := headerMACInstance(ctx.keys)
		if err := container.VerifyFileHeaderAuthOrErr(hdr, headerMAC); err != nil {
			return err
		}
	} else {
		if err := container.VerifyFileHeaderAuthOrErr(hdr, nil); err != nil {
			return err
		}
	}

	ctx.reporter.SetStatus("opening output")
	if cfg.Pipe {
		ctx.out = os.Stdout
	} else {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("controller: create output: %w", err)
		}
		ctx.outFile = f
		ctx.out = f
	}

	n := cfg.ResolvedThreads()
	chunkSubkeys := make([][]byte, n)
	var chunkSubkey []byte
	if ctx.keys != nil {
		chunkSubkey = ctx.keys.chunkSubkey
	}
	for i := range chunkSubkeys {
		chunkSubkeys[i] = chunkSubkey
	}

	// DedupGlobal, LZPEnabled and Delta2Span come from the file header, not
	// cfg: they're compression-time choices with no other trace on the
	// wire, so decompression must derive them from what the container
	// actually says rather than from whatever -G/-L/-P the user happens to
	// repeat at decode time. DedupBlock is the one exception: it only
	// steers where Compress cuts new block boundaries, Decompress resolves
	// every reference by index regardless of it, so it's harmless to leave
	// sourced from cfg.
	pipelineCfg := pipeline.Config{
		CodecName:    decodeAlgoTag(hdr.Algo),
		Level:        int(hdr.Level),
		ChunkSize:    hdr.ChunkSize,
		ChecksumKind: checksum.Kind(hdr.Flags.ChecksumKind),
		CryptoAlgo:   fromContainerCrypto(hdr.Flags.Crypto),
		Key:          rootKeyOf(ctx.keys),
		BaseNonce:    hdr.Nonce,
		DedupEnabled: hdr.Flags.Dedup,
		DedupFixed:   hdr.Flags.DedupFixed,
		DedupGlobal:  hdr.Flags.DedupGlobal,
		DedupBlock:   cfg.DedupBlockSize(),
		LZPEnabled:   hdr.Flags.LZP,
		Delta2Span:   int(hdr.Delta2Span),
	}

	pool, err := worker.New(n, pipelineCfg, chunkSubkeys)
	if err != nil {
		return fmt.Errorf("controller: worker pool setup: %w", err)
	}
	ctx.pool = pool

	ctx.pool.Start(worker.ModeDecompress)
	ctx.writer = writer.New(ctx.out, ctx.pool)

	return nil
}

// frameSizing mirrors pipeline.Pipeline's unexported cksumBytes/macBytes: in
// crypto mode the chunk checksum field is absent (the HMAC alone
// authenticates the chunk) and the authenticator is the full HMAC; otherwise
// the authenticator is a 4-byte CRC32 and the checksum field holds the
// configured plaintext checksum kind.
func frameSizing(hdr *container.FileHeader) (cksumBytes, macBytes int) {
	if hdr.IsCrypto() {
		return 0, crypto.MACSize
	}
	return checksum.Kind(hdr.Flags.ChecksumKind).Size(), 4
}

func decompressSteadyState(ctx *decompressCtx) error {
	n := len(ctx.pool.Slots)
	var dispatched, written uint64
	var consumed int64
	start := time.Now()
	cksumBytes, macBytes := frameSizing(ctx.header)
	frameOverhead := int64(8 + cksumBytes + macBytes + 1) // len_cmp + checksum + mac + flags

	for {
		if ctx.reporter.IsCancelled() {
			return errors.ErrCancelled
		}

		frame, isTrailer, err := container.ReadChunkFrame(ctx.in, cksumBytes, macBytes, ctx.header.ChunkSize)
		if err != nil {
			return fmt.Errorf("controller: read chunk frame: %w", err)
		}
		if isTrailer {
			break
		}
		consumed += frameOverhead + int64(frame.LenCmp)

		if dispatched >= uint64(n) {
			if err := drainOneDecompress(ctx, &written); err != nil {
				return err
			}
		}

		ctx.pool.Dispatch(int(dispatched%uint64(n)), worker.Job{ID: dispatched, Frame: frame})
		dispatched++

		if ctx.total > 0 {
			progress, speed, eta := util.Statify(consumed, ctx.total, start)
			ctx.reporter.SetProgress(progress, fmt.Sprintf("%.2f MiB/s ETA %s", speed, eta))
		}
	}

	for written < dispatched {
		if err := drainOneDecompress(ctx, &written); err != nil {
			return err
		}
	}

	return nil
}

func drainOneDecompress(ctx *decompressCtx, written *uint64) error {
	plain, cancelled, err := ctx.writer.WritePlain()
	*written++
	if cancelled || err != nil {
		if err == nil {
			err = errors.ErrCancelled
		}
		return err
	}
	if _, err := ctx.out.Write(plain); err != nil {
		return fmt.Errorf("controller: write plaintext: %w", err)
	}
	return nil
}

func decompressShutdown(ctx *decompressCtx) error {
	ctx.pool.Cancel()
	_ = ctx.in.Close()

	if ctx.cfg.Pipe {
		return nil
	}

	if err := ctx.outFile.Sync(); err != nil {
		return fmt.Errorf("controller: sync output: %w", err)
	}
	if err := ctx.outFile.Close(); err != nil {
		return fmt.Errorf("controller: close output: %w", err)
	}
	if err := matchOwnership(ctx.cfg.OutputFile, ctx.cfg.InputFile); err != nil {
		log.Warn("could not propagate mode/ownership", log.String("path", ctx.cfg.OutputFile), log.Err(err))
	}
	return nil
}

// decompressCleanup deliberately does NOT remove ctx.outFile: spec.md §7
// requires a failed decompression's partial target to survive under its
// real name so the user can diagnose it, unlike compression's always-unlink
// temp file. Only in-flight resources (pool goroutines, input handle) are
// torn down here.
func decompressCleanup(ctx *decompressCtx) {
	if ctx.pool != nil {
		ctx.pool.Cancel()
	}
	if ctx.in != nil {
		_ = ctx.in.Close()
	}
	if ctx.outFile != nil {
		_ = ctx.outFile.Close()
	}
}

package controller

import (
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"pcompress/internal/config"
	"pcompress/internal/container"
	"pcompress/internal/crypto"
	"pcompress/internal/errors"
	"pcompress/internal/pipeline"
	"pcompress/internal/producer"
	"pcompress/internal/util"
	"pcompress/internal/worker"
	"pcompress/internal/writer"
)

// compressCtx is the mutable state threaded through the compress phases,
// generalizing the teacher's OperationContext from a one-shot volume pass
// to a chunk-stream pass.
type compressCtx struct {
	cfg      config.PipelineConfig
	reporter ProgressReporter

	in    io.ReadCloser
	total int64

	out    io.Writer
	tmp    *os.File // nil in pipe mode
	header *container.FileHeader

	keys *keyMaterial // nil in non-crypto mode

	pool     *worker.Pool
	producer *producer.Producer
	writer   *writer.Writer
}

func runCompress(cfg config.PipelineConfig, reporter ProgressReporter) error {
	ctx := &compressCtx{cfg: cfg, reporter: reporter}
	defer func() { ctx.keys.Close() }()

	if err := compressSetup(ctx); err != nil {
		compressCleanup(ctx)
		return err
	}
	if err := compressSteadyState(ctx); err != nil {
		compressCleanup(ctx)
		return err
	}
	if err := compressShutdown(ctx); err != nil {
		compressCleanup(ctx)
		return err
	}
	return nil
}

func compressSetup(ctx *compressCtx) error {
	cfg := ctx.cfg
	ctx.reporter.SetStatus("opening input")

	in, total, err := openInput(cfg)
	if err != nil {
		return err
	}
	ctx.in = in
	ctx.total = total
	if !cfg.Pipe && total == 0 {
		return fmt.Errorf("controller: input file must be non-empty")
	}

	hdr := &container.FileHeader{
		Algo:       encodeAlgoTag(cfg.Codec),
		Version:    container.CurrentVersion,
		ChunkSize:  cfg.ChunkSize,
		Level:      uint32(cfg.Level),
		Delta2Span: uint32(cfg.Delta2Span),
		Flags: container.HeaderFlags{
			ChecksumKind: uint8(cfg.ChecksumKind),
			Dedup:        cfg.DedupEnabled,
			DedupFixed:   cfg.DedupFixed,
			SingleChunk:  !cfg.Pipe && uint64(total) <= cfg.ChunkSize,
			Crypto:       toContainerCrypto(cfg.Crypto),
			DedupGlobal:  cfg.DedupGlobal,
			LZP:          cfg.LZPEnabled,
		},
	}

	if cfg.Crypto != crypto.AlgoNone {
		ctx.reporter.SetStatus("deriving key")
		salt, err := crypto.RandomBytes(saltSize)
		if err != nil {
			return err
		}
		nonce, err := crypto.RandomBytes(cfg.Crypto.NonceLen())
		if err != nil {
			return err
		}
		keys, err := deriveSubkeys(cfg.Password, salt, cfg.KeyLen)
		if err != nil {
			return err
		}
		ctx.keys = keys
		hdr.Salt = salt
		hdr.Nonce = nonce
		hdr.KeyLen = uint32(cfg.KeyLen)
	}
	ctx.header = hdr

	ctx.reporter.SetStatus("opening output")
	if cfg.Pipe {
		ctx.out = os.Stdout
	} else {
		tmp, err := tempOutputPath(cfg.OutputFile)
		if err != nil {
			return err
		}
		ctx.tmp = tmp
		ctx.out = tmp
	}

	var headerMAC = headerMACInstance(ctx.keys)
	if err := container.WriteFileHeader(ctx.out, hdr, headerMAC); err != nil {
		return fmt.Errorf("controller: write file header: %w", err)
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

	pipelineCfg := pipeline.Config{
		CodecName:    cfg.Codec,
		Level:        cfg.Level,
		ChunkSize:    cfg.ChunkSize,
		ChecksumKind: cfg.ChecksumKind,
		CryptoAlgo:   cfg.Crypto,
		Key:          rootKeyOf(ctx.keys),
		BaseNonce:    hdr.Nonce,
		DedupEnabled: cfg.DedupEnabled,
		DedupFixed:   cfg.DedupFixed,
		DedupGlobal:  cfg.DedupGlobal,
		DedupBlock:   cfg.DedupBlockSize(),
		LZPEnabled:   cfg.LZPEnabled,
		Delta2Span:   cfg.Delta2Span,
	}

	pool, err := worker.New(n, pipelineCfg, chunkSubkeys)
	if err != nil {
		return fmt.Errorf("controller: worker pool setup: %w", err)
	}
	ctx.pool = pool

	prod, err := producer.New(ctx.in, int(cfg.ChunkSize), cfg.RabinSplit)
	if err != nil {
		return fmt.Errorf("controller: producer setup: %w", err)
	}
	ctx.producer = prod

	ctx.pool.Start(worker.ModeCompress)
	ctx.writer = writer.New(ctx.out, ctx.pool)

	return nil
}

// headerMACInstance returns a fresh HMAC keyed with the header subkey, or
// nil when running without crypto (forcing CRC32 authentication per
// spec.md §3's "if not crypto and version >= 5: CRC32").
func headerMACInstance(keys *keyMaterial) hash.Hash {
	if keys == nil {
		return nil
	}
	return crypto.NewMAC(keys.headerSubkey)
}

func rootKeyOf(keys *keyMaterial) []byte {
	if keys == nil {
		return nil
	}
	return keys.rootKey
}

// compressSteadyState drives the producer/pool/writer trio to EOF, keeping
// at most n chunks in flight (n = len(pool.Slots)): each newly dispatched
// chunk beyond the first n is preceded by draining the oldest still-open
// one, matching the bounded double-buffered pipeline spec.md §4.4/§4.5
// describe with semaphores, expressed here as plain call ordering over the
// channel-based worker.Pool.
func compressSteadyState(ctx *compressCtx) error {
	n := len(ctx.pool.Slots)
	var dispatched, written uint64
	start := time.Now()

	for {
		if ctx.reporter.IsCancelled() {
			return errors.ErrCancelled
		}

		chunk, id, done, err := ctx.producer.Next()
		if err != nil {
			return fmt.Errorf("controller: read input: %w", err)
		}
		if done {
			break
		}

		if dispatched >= uint64(n) {
			if err := drainOne(ctx, &written); err != nil {
				return err
			}
		}

		ctx.pool.Dispatch(int(dispatched%uint64(n)), worker.Job{ID: id, Raw: chunk})
		dispatched++

		if ctx.total > 0 {
			progress, speed, eta := util.Statify(int64(dispatched)*int64(ctx.cfg.ChunkSize), ctx.total, start)
			ctx.reporter.SetProgress(progress, fmt.Sprintf("%.2f MiB/s ETA %s", speed, eta))
		}
	}

	for written < dispatched {
		if err := drainOne(ctx, &written); err != nil {
			return err
		}
	}

	return nil
}

func drainOne(ctx *compressCtx, written *uint64) error {
	cancelled, err := ctx.writer.WriteNext()
	*written++
	if cancelled || err != nil {
		if err == nil {
			err = errors.ErrCancelled
		}
		return err
	}
	return nil
}

func compressShutdown(ctx *compressCtx) error {
	ctx.pool.Cancel()
	_ = ctx.in.Close()

	if err := container.WriteTrailer(ctx.out); err != nil {
		return fmt.Errorf("controller: write trailer: %w", err)
	}

	if ctx.cfg.Pipe {
		return nil
	}
	return finalizeOutput(ctx.tmp, ctx.cfg.OutputFile, ctx.cfg.InputFile)
}

// compressCleanup removes the in-progress temp output on any failure path,
// per spec.md §7 ("unlinked for compression").
func compressCleanup(ctx *compressCtx) {
	if ctx.pool != nil {
		ctx.pool.Cancel()
	}
	if ctx.in != nil {
		_ = ctx.in.Close()
	}
	if !ctx.cfg.Pipe {
		cleanupPartial(ctx.tmp)
	}
}

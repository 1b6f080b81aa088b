// Package controller implements the Controller (C7): it initializes codec,
// worker, dedup and crypto state, launches the worker pool and writer,
// drives the Producer loop to EOF, joins every task, writes the trailer,
// and renames the temporary output to its final name. Grounded on the
// teacher's volume.Encrypt/volume.Decrypt shape — a small ordered list of
// named phase functions sharing one mutable Context, first-error-wins,
// cleanup via defer — generalized from a single whole-volume pass to
// driving Producer/worker.Pool/Writer to completion for a whole file.
package controller

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pcompress/internal/config"
	"pcompress/internal/log"
)

// ProgressReporter mirrors the teacher's volume.ProgressReporter, narrowed
// to what a single-file chunked run needs: a status line, a fractional
// progress update, and a cooperative cancellation check. CLI wires
// internal/cli.Reporter's existing method set to this interface.
type ProgressReporter interface {
	SetStatus(text string)
	SetProgress(fraction float32, info string)
	IsCancelled() bool
}

// nullReporter discards everything; used when the caller passes no reporter.
type nullReporter struct{}

func (nullReporter) SetStatus(string)            {}
func (nullReporter) SetProgress(float32, string) {}
func (nullReporter) IsCancelled() bool           { return false }

// Run executes a complete compress or decompress pass per cfg.Direction.
// It is the single entry point internal/cli calls once flags are parsed
// into a config.PipelineConfig.
func Run(cfg config.PipelineConfig, reporter ProgressReporter) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reporter == nil {
		reporter = nullReporter{}
	}

	switch cfg.Direction {
	case config.DirCompress:
		return runCompress(cfg, reporter)
	case config.DirDecompress:
		return runDecompress(cfg, reporter)
	default:
		return fmt.Errorf("controller: unknown direction %v", cfg.Direction)
	}
}

// tempOutputPath builds the "<dir>/.pcompXXXXXX"-shaped scratch name
// spec.md §6.1 describes; os.CreateTemp fills in a random suffix after
// ".pcomp" in place of the mktemp-style X's.
func tempOutputPath(finalPath string) (*os.File, error) {
	dir := filepath.Dir(finalPath)
	f, err := os.CreateTemp(dir, ".pcomp")
	if err != nil {
		return nil, fmt.Errorf("controller: creating temp output in %s: %w", dir, err)
	}
	return f, nil
}

// finalizeOutput syncs and renames the temp file to its final name, then
// copies src's permission mode onto it. Ownership (uid/gid) is not changed.
func finalizeOutput(tmp *os.File, finalPath, srcPath string) error {
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("controller: sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("controller: close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return fmt.Errorf("controller: rename output: %w", err)
	}
	if err := matchOwnership(finalPath, srcPath); err != nil {
		log.Warn("could not propagate mode/ownership", log.String("path", finalPath), log.Err(err))
	}
	return nil
}

// matchOwnership sets finalPath's mode to match srcPath; it does not change
// uid/gid. Failure here is non-fatal: the run already succeeded, this is
// cosmetic parity with the source file.
func matchOwnership(finalPath, srcPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	return os.Chmod(finalPath, info.Mode())
}

// cleanupPartial removes a partially-written temp file after a failed or
// cancelled run. Decompression leaves the target file in place instead
// (spec.md §7: "left in place for decompression ... unlinked for
// compression"), so only compress.go's cleanup calls this.
func cleanupPartial(tmp *os.File) {
	if tmp == nil {
		return
	}
	name := tmp.Name()
	_ = tmp.Close()
	_ = os.Remove(name)
}

// openInput opens cfg.InputFile, or wraps os.Stdin in pipe mode.
func openInput(cfg config.PipelineConfig) (io.ReadCloser, int64, error) {
	if cfg.Pipe {
		return io.NopCloser(os.Stdin), 0, nil
	}
	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return nil, 0, fmt.Errorf("controller: open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("controller: stat input: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("controller: input must be a regular file")
	}
	return f, info.Size(), nil
}

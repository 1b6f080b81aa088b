// pcompress splits a file into fixed-size chunks, runs each through a
// parallel worker pool (optional deduplication, optional preprocessing,
// compression, optional encryption, authentication), and writes a framed
// container decodable by the inverse pipeline.
//
// Released under GPL-3.0-only
package main

import (
	"os"

	"pcompress/internal/cli"
)

// version is the application version reported by --version.
const version = "v0.1"

func main() {
	if !cli.Execute(version) {
		os.Exit(1)
	}
}

package corpus

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/index"
)

// Options configures Load.
type Options struct {
	Compression Compression

	// Checksum, when set, must match the corpus file. It is rejected for
	// directory corpora.
	Checksum string

	Logger *slog.Logger
}

// Stats summarizes a Load.
type Stats struct {
	Files  int
	Blocks int
	Docs   int
}

// Load indexes every block of the corpus at path into b and flushes it.
// Loading stops at the first bad record; blocks added before it stay in b.
func Load(ctx context.Context, path string, opts Options, b *index.Builder) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "corpus")

	var stats Stats
	files, err := Files(path)
	if err != nil {
		return stats, err
	}
	if opts.Checksum != "" {
		if len(files) != 1 || files[0] != path {
			return stats, errors.Newf("checksum given for corpus directory %s", path)
		}
		if err := VerifyChecksum(path, opts.Checksum); err != nil {
			return stats, err
		}
	}

	start := time.Now()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := loadFile(ctx, file, opts.Compression, b, &stats); err != nil {
			return stats, errors.Wrapf(err, "load %s", file)
		}
		stats.Files++
	}
	b.Flush()

	logger.Info("corpus loaded",
		"path", path,
		"files", stats.Files,
		"blocks", stats.Blocks,
		"docs", stats.Docs,
		"took_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

func loadFile(ctx context.Context, path string, c Compression, b *index.Builder, stats *Stats) error {
	rc, err := Open(path, c)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := NewDecoder(rc)
	for {
		rec, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		block := rec.Flatten()
		if err := b.AddBlock(block...); err != nil {
			return errors.Wrapf(err, "record %d", dec.Count())
		}
		stats.Blocks++
		stats.Docs += len(block)

		if dec.Count()%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

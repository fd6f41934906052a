package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how corpus files are decoded.
type Compression string

const (
	// CompressionAuto decompresses files ending in .zst.
	CompressionAuto Compression = "auto"
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

const zstdExt = ".zst"

// ChecksumPrefix prefixes hex-encoded SHA-256 corpus checksums.
const ChecksumPrefix = "sha256:"

// ParseCompression parses a compression name. The empty string means auto.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionAuto:
		return CompressionAuto, nil
	case CompressionNone, CompressionZstd:
		return c, nil
	default:
		return "", errors.Newf("unknown corpus compression %q", s)
	}
}

func (c Compression) compressed(path string) bool {
	switch c {
	case CompressionZstd:
		return true
	case CompressionNone:
		return false
	default:
		return strings.HasSuffix(path, zstdExt)
	}
}

// Files returns the corpus files at path. A regular file is returned as is;
// a directory yields its .jsonl and .jsonl.zst files in name order.
func Files(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat corpus %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "list corpus dir %s", path)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isCorpusFile(name) {
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoCorpusFiles, "dir %s", path)
	}
	slices.Sort(files)
	return files, nil
}

func isCorpusFile(name string) bool {
	name = strings.TrimSuffix(name, zstdExt)
	return strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".ndjson")
}

// Open opens a corpus file for decoding, decompressing it when c says so.
func Open(path string, c Compression) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open corpus %s", path)
	}
	if !c.compressed(path) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "zstd reader for %s", path)
	}
	return &zstdFile{Decoder: dec, file: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}

// FileChecksum returns the SHA-256 checksum of the raw bytes of path,
// formatted as "sha256:<hex>".
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "checksum %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "checksum %s", path)
	}
	return ChecksumPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum checks that path hashes to want.
func VerifyChecksum(path, want string) error {
	if err := validateChecksum(want); err != nil {
		return err
	}
	got, err := FileChecksum(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, want) {
		return errors.Wrapf(ErrChecksumMismatch, "%s: expected %s got %s", path, want, got)
	}
	return nil
}

func validateChecksum(c string) error {
	hexStr, ok := strings.CutPrefix(c, ChecksumPrefix)
	if !ok {
		return errors.Wrapf(ErrInvalidChecksum, "missing prefix %q", ChecksumPrefix)
	}
	if len(hexStr) != 2*sha256.Size {
		return errors.Wrapf(ErrInvalidChecksum, "expected %d hex chars, got %d", 2*sha256.Size, len(hexStr))
	}
	if _, err := hex.DecodeString(hexStr); err != nil {
		return errors.Wrapf(ErrInvalidChecksum, "invalid hex: %v", err)
	}
	return nil
}

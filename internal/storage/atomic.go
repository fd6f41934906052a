// Package storage writes result files durably.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// FilePerm is the permission of written result files.
const FilePerm os.FileMode = 0o644

// fsyncDir makes the directory entries of path durable.
func fsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fsync dir open %s", path)
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return errors.Wrapf(err, "fsync dir sync %s", path)
	}
	return errors.Wrapf(d.Close(), "fsync dir close %s", path)
}

// AtomicWriteFile writes data to a temporary file next to path, fsyncs it
// and renames it over path. Readers see either the old or the new file.
func AtomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "atomic write create temp in %s", dir)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write data")
	}
	if err := tmp.Chmod(FilePerm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write chmod")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write fsync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "atomic write close")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "atomic write rename %s to %s", tmpPath, path)
	}
	if err := fsyncDir(dir); err != nil {
		return errors.Wrap(err, "atomic write fsync parent dir")
	}

	success = true
	return nil
}

// WriteJSON atomically writes v to path as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json")
	}
	return AtomicWriteFile(path, append(data, '\n'))
}

// Package fileutil provides file system helpers shared by skillkit commands:
// atomic writes, bounded reads and content comparison.
package fileutil

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/skillkit/internal/errors"
)

// tempPattern is the name pattern for in-flight temp files.
const tempPattern = ".skillkit-*.tmp"

// AtomicWriteFile writes data to path through a temp file in the same
// directory followed by a rename, so readers never observe a partial file.
//
// The parent directory must exist. perm is applied to the final file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "setting file permissions")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "syncing temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "renaming temp file to %s", path)
	}
	return nil
}

// AtomicWriteJSON writes v as 2-space indented JSON with a trailing newline.
func AtomicWriteJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling JSON")
	}
	return AtomicWriteFile(path, append(data, '\n'), perm)
}

// AtomicWriteYAML writes v as YAML using 2-space indentation.
func AtomicWriteYAML(path string, v any, perm os.FileMode) (err error) {
	// yaml.v3 panics on some unsupported types
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	return AtomicWriteFile(path, buf.Bytes(), perm)
}

// Existing describes the state of a path before it is written.
type Existing struct {
	// Exists is true when a regular file is present at the path.
	Exists bool
	// Same is true when the present file's bytes equal the candidate content.
	Same bool
	// Content holds the present file's bytes when Exists is true.
	Content []byte
	// Mode is the present file's permission bits when Exists is true.
	Mode os.FileMode
}

// Compare inspects path and reports how it relates to want.
// A missing file is not an error. A directory at path is.
func Compare(path string, want []byte) (Existing, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Existing{}, nil
	}
	if err != nil {
		return Existing{}, errors.Wrapf(err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return Existing{}, errors.Newf("%s exists and is not a regular file", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		return Existing{}, errors.Wrapf(err, "reading %s", path)
	}
	return Existing{
		Exists:  true,
		Same:    bytes.Equal(got, want),
		Content: got,
		Mode:    info.Mode().Perm(),
	}, nil
}

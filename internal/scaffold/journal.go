package scaffold

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

const dirPerm fs.FileMode = 0o755

// writeFile is swapped in tests to inject write failures.
var writeFile = fileutil.AtomicWriteFile

// journal records filesystem changes made by one run so they can be undone.
type journal struct {
	dirs        []string
	created     []string
	overwritten []priorFile
}

type priorFile struct {
	path    string
	content []byte
	perm    fs.FileMode
}

// mkdirAll creates dir and any missing parents, journaling each directory
// it creates.
func (j *journal) mkdirAll(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.Newf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "stat %s", dir)
	}

	if parent := filepath.Dir(dir); parent != dir {
		if err := j.mkdirAll(parent); err != nil {
			return err
		}
	}
	if err := os.Mkdir(dir, dirPerm); err != nil {
		return errors.Wrapf(err, "creating directory %s", dir)
	}
	j.dirs = append(j.dirs, dir)
	return nil
}

// create writes a file that did not exist before.
func (j *journal) create(path string, data []byte, perm fs.FileMode) error {
	if err := writeFile(path, data, perm); err != nil {
		return err
	}
	j.created = append(j.created, path)
	return nil
}

// replace overwrites an existing file, keeping its previous content.
func (j *journal) replace(path string, data []byte, perm fs.FileMode, prev fileutil.Existing) error {
	if err := writeFile(path, data, perm); err != nil {
		return err
	}
	j.overwritten = append(j.overwritten, priorFile{path: path, content: prev.Content, perm: prev.Mode})
	return nil
}

// rollback undoes the journal in reverse order: overwritten files are
// restored, created files removed, then created directories removed
// deepest first. It keeps going after a failure and reports all of them.
func (j *journal) rollback() error {
	var result *multierror.Error

	for i := len(j.overwritten) - 1; i >= 0; i-- {
		p := j.overwritten[i]
		if err := fileutil.AtomicWriteFile(p.path, p.content, p.perm); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "restoring %s", p.path))
		}
	}
	for i := len(j.created) - 1; i >= 0; i-- {
		if err := os.Remove(j.created[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, errors.Wrapf(err, "removing %s", j.created[i]))
		}
	}
	for i := len(j.dirs) - 1; i >= 0; i-- {
		if err := os.Remove(j.dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, errors.Wrapf(err, "removing directory %s", j.dirs[i]))
		}
	}

	return result.ErrorOrNil()
}

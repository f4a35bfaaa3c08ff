package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/skillkit/cmd"
	"github.com/thoreinstein/skillkit/internal/paths"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

const idLayout = "20060102T150405"

// Manager creates, lists and restores backups for a single target directory.
type Manager struct {
	target string
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for backup ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager for the project rooted at target.
func NewManager(target string, opts ...Option) *Manager {
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	m := &Manager{target: target, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target returns the absolute project directory.
func (m *Manager) Target() string {
	return m.target
}

// Backup copies files, given relative to the target, into a new backup.
// Files that do not exist are skipped. When none of them exist no backup
// is written and a nil manifest is returned.
func (m *Manager) Backup(files []string) (*Manifest, error) {
	var sources []string
	for _, rel := range files {
		src, err := m.resolve(rel)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", rel)
		}
		if !info.Mode().IsRegular() {
			return nil, errors.Newf("%s is not a regular file", rel)
		}
		sources = append(sources, rel)
	}
	if len(sources) == 0 {
		return nil, nil
	}

	id, dir, err := m.reserve()
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Version:     ManifestVersion,
		CreatedAt:   m.now().UTC(),
		Target:      m.target,
		ToolVersion: cmd.Version,
		ID:          id,
	}
	for _, rel := range sources {
		f, err := copyIn(filepath.Join(m.target, filepath.FromSlash(rel)), filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, errors.Wrapf(err, "backing up %s", rel)
		}
		f.Path = filepath.ToSlash(filepath.Clean(rel))
		manifest.Files = append(manifest.Files, f)
	}

	if err := fileutil.AtomicWriteJSON(filepath.Join(dir, ManifestFile), manifest, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.Wrap(err, "writing manifest")
	}
	return manifest, nil
}

// Restore writes every file in backup id back to the target. All stored
// files are verified before anything is written.
func (m *Manager) Restore(id string) (*Manifest, error) {
	manifest, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	dir := Path(m.target, id)

	contents := make([][]byte, len(manifest.Files))
	for i, f := range manifest.Files {
		if _, err := m.resolve(f.Path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup copy of %s", f.Path)
		}
		if hashBytes(data) != f.SHA256 {
			return nil, errors.Wrapf(ErrBackupCorrupted, "%s hash mismatch", f.Path)
		}
		contents[i] = data
	}

	for i, f := range manifest.Files {
		dst := filepath.Join(m.target, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating directory for %s", f.Path)
		}
		if err := fileutil.AtomicWriteFile(dst, contents[i], f.Mode.Perm()); err != nil {
			return nil, errors.Wrapf(err, "restoring %s", f.Path)
		}
	}
	return manifest, nil
}

// List returns the target's backups, newest first.
func (m *Manager) List() ([]Manifest, error) {
	entries, err := os.ReadDir(Dir(m.target))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.Get(entry.Name())
		if err != nil {
			// Not a backup, or a half-written one.
			continue
		}
		manifests = append(manifests, *manifest)
	}
	if len(manifests) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})
	return manifests, nil
}

// Latest returns the most recent backup.
func (m *Manager) Latest() (*Manifest, error) {
	manifests, err := m.List()
	if err != nil {
		return nil, err
	}
	return &manifests[0], nil
}

// Get loads the manifest of backup id.
func (m *Manager) Get(id string) (*Manifest, error) {
	if id == "" {
		return nil, errors.New("backup ID is required")
	}
	if filepath.Base(id) != id || id == "." || id == ".." {
		return nil, errors.Wrapf(ErrNoBackupsFound, "invalid backup id %q", id)
	}

	data, err := os.ReadFile(filepath.Join(Path(m.target, id), ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	manifest.ID = id
	return &manifest, nil
}

// Prune removes all but the keep most recent backups.
func (m *Manager) Prune(keep int) error {
	if keep < 0 {
		return errors.New("keep must be non-negative")
	}
	manifests, err := m.List()
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil
		}
		return err
	}
	for i := keep; i < len(manifests); i++ {
		if err := os.RemoveAll(Path(m.target, manifests[i].ID)); err != nil {
			return errors.Wrapf(err, "removing backup %s", manifests[i].ID)
		}
	}
	return nil
}

// reserve creates a fresh backup directory and returns its id.
func (m *Manager) reserve() (string, string, error) {
	if err := os.MkdirAll(Dir(m.target), 0o755); err != nil {
		return "", "", errors.Wrap(err, "creating backup directory")
	}
	base := m.now().UTC().Format(idLayout)
	for n := 0; n < 100; n++ {
		id := base
		if n > 0 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		dir := Path(m.target, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", errors.Wrap(err, "creating backup directory")
		}
	}
	return "", "", errors.Newf("too many backups at %s", base)
}

func (m *Manager) resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", errors.Wrapf(ErrUnsafePath, "%q", rel)
	}
	full := filepath.Join(m.target, filepath.FromSlash(rel))
	if !paths.Within(m.target, full) || full == m.target {
		return "", errors.Wrapf(ErrUnsafePath, "%q", rel)
	}
	return full, nil
}

// copyIn copies src to dst and returns its manifest entry without Path.
func copyIn(src, dst string) (File, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return File{}, errors.Wrap(err, "reading source file")
	}
	info, err := os.Stat(src)
	if err != nil {
		return File{}, errors.Wrap(err, "stat source file")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return File{}, errors.Wrap(err, "creating parent directory")
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return File{}, errors.Wrap(err, "writing backup copy")
	}
	return File{
		SHA256: hashBytes(data),
		Size:   int64(len(data)),
		Mode:   info.Mode().Perm(),
	}, nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

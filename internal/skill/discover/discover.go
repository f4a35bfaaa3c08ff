// Package discover finds skill directories under a root and lints them
// concurrently.
package discover

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/paths"
)

// Entry is one discovered skill directory.
type Entry struct {
	// Name is the directory base name.
	Name string `json:"name"`
	// Dir is the skill directory.
	Dir string `json:"dir"`
	// File is the SKILL.md path.
	File string `json:"file"`
	// Rel is Dir relative to the discovery root, slash separated.
	Rel string `json:"rel"`
	// References, Scripts and Assets list supporting files relative to Dir.
	References []string `json:"references,omitempty"`
	Scripts    []string `json:"scripts,omitempty"`
	Assets     []string `json:"assets,omitempty"`
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// Discoverer walks a directory tree looking for SKILL.md files.
type Discoverer struct {
	include []string
	exclude []string
	logger  *slog.Logger
}

// New creates a Discoverer. Without include patterns every skill matches.
func New(opts ...Option) *Discoverer {
	d := &Discoverer{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithInclude keeps only skills whose root-relative directory matches one
// of the doublestar patterns.
func WithInclude(patterns ...string) Option {
	return func(d *Discoverer) {
		d.include = append(d.include, patterns...)
	}
}

// WithExclude drops skills whose root-relative directory matches one of
// the doublestar patterns. Exclusion wins over inclusion.
func WithExclude(patterns ...string) Option {
	return func(d *Discoverer) {
		d.exclude = append(d.exclude, patterns...)
	}
}

// WithLogger sets the logger used for skipped directories.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) {
		if l != nil {
			d.logger = l
		}
	}
}

// Find returns the skills under root sorted by directory. A root that is
// itself a skill yields a single entry. Hidden directories are skipped.
func (d *Discoverer) Find(root string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(errors.ErrNotFound, "skills directory %s", root)
		}
		return nil, errors.Wrapf(err, "reading skills directory %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", root)
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			d.logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if de != nil && de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !de.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(de.Name(), ".") {
			return filepath.SkipDir
		}

		skillFile := filepath.Join(path, paths.SkillFile)
		if fi, err := os.Stat(skillFile); err != nil || !fi.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.Wrapf(err, "relative path for %s", path)
		}
		rel = filepath.ToSlash(rel)
		if d.selected(rel) {
			entries = append(entries, d.entry(path, skillFile, rel))
		} else {
			d.logger.Debug("skill filtered out", "dir", rel)
		}
		// Skills do not nest.
		return filepath.SkipDir
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Dir < entries[j].Dir })
	return entries, nil
}

func (d *Discoverer) selected(rel string) bool {
	for _, p := range d.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(d.include) == 0 {
		return true
	}
	for _, p := range d.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (d *Discoverer) entry(dir, file, rel string) Entry {
	name := filepath.Base(dir)
	if rel == "." {
		rel = name
	}
	return Entry{
		Name:       name,
		Dir:        dir,
		File:       file,
		Rel:        rel,
		References: listFiles(dir, paths.ReferencesDir+"/**/*.md"),
		Scripts:    listFiles(dir, paths.ScriptsDir+"/**"),
		Assets:     listFiles(dir, paths.AssetsDir+"/**"),
	}
}

// listFiles returns regular files under dir matching pattern, slash separated.
func listFiles(dir, pattern string) []string {
	var out []string
	_ = doublestar.GlobWalk(os.DirFS(dir), pattern, func(p string, de fs.DirEntry) error {
		if de.Type().IsRegular() && !strings.HasPrefix(filepath.Base(p), ".") {
			out = append(out, p)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

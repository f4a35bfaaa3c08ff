package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/thoreinstein/skillkit/internal/backup"
	"github.com/thoreinstein/skillkit/internal/config"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

// Defaults for Options.
const (
	DefaultDir           = "."
	DefaultPythonVersion = config.DefaultPythonVersion
)

// Action is what a run did, or would do, to one file.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	// ActionConflict marks an existing file with different content that was
	// left alone because Force was not set.
	ActionConflict Action = "conflict"
	// ActionSkipped marks a secret file that already exists. It is never
	// overwritten, even with Force.
	ActionSkipped Action = "skipped"
)

// ErrConflict is returned when existing files differ and Force is not set.
// Run returns the planned Result alongside it and writes nothing.
var ErrConflict = errors.New("existing files differ from the skeleton")

// Options controls a scaffold run.
type Options struct {
	Dir           string
	PythonVersion string
	// ProjectName defaults to the base name of Dir.
	ProjectName string
	Force       bool
	DryRun      bool
}

// FileResult is the outcome for one skeleton file.
type FileResult struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
}

// Result is the outcome of a run.
type Result struct {
	Dir           string       `json:"dir"`
	ProjectName   string       `json:"project_name"`
	PythonVersion string       `json:"python_version"`
	DryRun        bool         `json:"dry_run,omitempty"`
	BackupID      string       `json:"backup_id,omitempty"`
	Files         []FileResult `json:"files"`
}

// Count returns the number of files with action a.
func (r *Result) Count(a Action) int {
	n := 0
	for _, f := range r.Files {
		if f.Action == a {
			n++
		}
	}
	return n
}

// Conflicts returns the files left alone because they differ.
func (r *Result) Conflicts() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Action == ActionConflict {
			out = append(out, f)
		}
	}
	return out
}

// withDefaults fills empty options and resolves Dir to an absolute path.
func (o Options) withDefaults() (Options, error) {
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if o.PythonVersion == "" {
		o.PythonVersion = DefaultPythonVersion
	}
	abs, err := filepath.Abs(o.Dir)
	if err != nil {
		return o, errors.Wrapf(err, "resolving %s", o.Dir)
	}
	o.Dir = abs
	if o.ProjectName == "" {
		o.ProjectName = filepath.Base(abs)
	}
	return o, nil
}

// planned pairs a rendered file with what will happen to it.
type planned struct {
	file   File
	action Action
	prev   fileutil.Existing
}

// Run renders the skeleton and writes it under opts.Dir. Conflicting files
// abort the run with ErrConflict before anything is written. On any write
// failure every change made by the run is undone before returning.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.FromContext(ctx)

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := checkTarget(opts.Dir); err != nil {
		return nil, err
	}

	data, err := NewData(opts.ProjectName, opts.PythonVersion)
	if err != nil {
		hint := "Use a version like 3.11 or 3.12.1"
		if errors.Is(err, ErrInvalidProjectName) {
			hint = "Pass --name using letters, digits, '.', '_' or '-'"
		}
		return nil, errors.NewUserError(err, hint)
	}
	files, err := Render(data)
	if err != nil {
		return nil, errors.NewSystemError(err, "")
	}

	plan, err := makePlan(opts, files)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Dir:           opts.Dir,
		ProjectName:   opts.ProjectName,
		PythonVersion: opts.PythonVersion,
		DryRun:        opts.DryRun,
	}
	for _, p := range plan {
		result.Files = append(result.Files, FileResult{Path: p.file.Path, Action: p.action})
	}
	if opts.DryRun {
		logger.Debug("dry run, nothing written", "dir", opts.Dir)
		return result, nil
	}
	// Any conflict stops the whole run so the target keeps its prior state.
	if conflicts := result.Conflicts(); len(conflicts) > 0 {
		logger.Debug("conflicting files, nothing written", "dir", opts.Dir, "conflicts", len(conflicts))
		return result, errors.Wrapf(ErrConflict, "%s", strings.Join(pathsWith(plan, ActionConflict), ", "))
	}

	if updates := pathsWith(plan, ActionUpdated); len(updates) > 0 {
		mgr := backup.NewManager(opts.Dir)
		m, err := mgr.Backup(updates)
		if err != nil {
			return nil, errors.Wrap(err, "backing up files before overwrite")
		}
		if m != nil {
			result.BackupID = m.ID
			logger.Info("backed up files", "id", m.ID, "files", len(m.Files))
		}
		if err := mgr.Prune(backup.DefaultRetentionCount); err != nil {
			logger.Warn("pruning old backups", "error", err)
		}
	}

	if err := apply(ctx, opts.Dir, plan); err != nil {
		return nil, err
	}
	logger.Debug("scaffold written", "dir", opts.Dir,
		"created", result.Count(ActionCreated), "updated", result.Count(ActionUpdated))
	return result, nil
}

// checkTarget rejects a target that exists but is not a directory.
func checkTarget(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.NewSystemError(errors.Wrapf(err, "stat %s", dir), "")
	}
	if !info.IsDir() {
		return errors.NewUserError(errors.Newf("%s is not a directory", dir), "Choose a directory to scaffold into")
	}
	return nil
}

func makePlan(opts Options, files []File) ([]planned, error) {
	plan := make([]planned, 0, len(files))
	for _, f := range files {
		full := filepath.Join(opts.Dir, filepath.FromSlash(f.Path))
		prev, err := fileutil.Compare(full, f.Content)
		if err != nil {
			return nil, errors.NewUserError(err, "Move the conflicting path out of the way")
		}

		p := planned{file: f, prev: prev}
		switch {
		case !prev.Exists:
			p.action = ActionCreated
		case prev.Same:
			p.action = ActionUnchanged
		case secretFiles[f.Path]:
			p.action = ActionSkipped
		case opts.Force:
			p.action = ActionUpdated
		default:
			p.action = ActionConflict
		}
		plan = append(plan, p)
	}
	return plan, nil
}

func apply(ctx context.Context, dir string, plan []planned) (err error) {
	logger := logging.FromContext(ctx)
	j := &journal{}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := j.rollback(); rbErr != nil {
			logger.Error("rollback incomplete", "error", rbErr)
			err = errors.CombineErrors(err, errors.Wrap(rbErr, "rolling back"))
			return
		}
		logger.Debug("rolled back partial scaffold", "dir", dir)
	}()

	if err := j.mkdirAll(dir); err != nil {
		return errors.NewSystemError(err, "Check that the parent directory is writable")
	}

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		full := filepath.Join(dir, filepath.FromSlash(p.file.Path))

		switch p.action {
		case ActionCreated:
			if err := j.mkdirAll(filepath.Dir(full)); err != nil {
				return errors.NewSystemError(err, "")
			}
			if err := j.create(full, p.file.Content, p.file.Perm); err != nil {
				return errors.NewSystemError(errors.Wrapf(err, "writing %s", p.file.Path), "")
			}
		case ActionUpdated:
			if err := j.replace(full, p.file.Content, p.file.Perm, p.prev); err != nil {
				return errors.NewSystemError(errors.Wrapf(err, "writing %s", p.file.Path), "")
			}
		default:
			continue
		}
		logger.Log(ctx, logging.LevelTrace, "wrote file", "path", p.file.Path, "action", string(p.action))
	}
	return nil
}

func pathsWith(plan []planned, a Action) []string {
	var out []string
	for _, p := range plan {
		if p.action == a {
			out = append(out, p.file.Path)
		}
	}
	return out
}

// NextSteps returns the instructions printed after a successful run.
func NextSteps(r *Result) string {
	var sb strings.Builder
	sb.WriteString("Next steps:\n")
	if rel, err := filepath.Rel(mustGetwd(), r.Dir); err == nil && rel != "." {
		fmt.Fprintf(&sb, "  cd %s\n", shellQuote(rel))
	}
	minor := r.PythonVersion
	if d, err := NewData(r.ProjectName, r.PythonVersion); err == nil {
		minor = d.PythonMinor
	}
	fmt.Fprintf(&sb, "  python%s -m venv .venv && source .venv/bin/activate\n", minor)
	sb.WriteString("  pip install -r requirements.txt\n")
	sb.WriteString("  uvicorn app.main:app --reload\n")
	sb.WriteString("  pytest\n")
	sb.WriteString("Or run it in Docker:\n")
	sb.WriteString("  docker compose up --build\n")
	return sb.String()
}

var shellSafeRe = regexp.MustCompile(`^[A-Za-z0-9_./@%+=:,-]+$`)

// shellQuote returns s as a single POSIX shell word.
func shellQuote(s string) string {
	if shellSafeRe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/semver/v3"

	"github.com/thoreinstein/skillkit/internal/config"
	"github.com/thoreinstein/skillkit/internal/errors"
)

//go:embed all:templates
var templateFS embed.FS

const (
	templateRoot = "templates"
	templateExt  = ".tmpl"
)

// projectNameRe limits names to what every template can embed unescaped:
// Python string literals, .env values and compose container names.
var projectNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ErrInvalidProjectName marks a name projectNameRe rejects.
var ErrInvalidProjectName = errors.New("invalid project name")

// secretFiles are written owner-only and never overwritten once present.
var secretFiles = map[string]bool{".env": true}

// File is one rendered skeleton file.
type File struct {
	// Path is slash separated and relative to the target directory.
	Path    string
	Content []byte
	Perm    fs.FileMode
}

// Data is the template input.
type Data struct {
	ProjectName   string
	PythonVersion string
	// PythonMinor is major.minor, used for interpreter names.
	PythonMinor string
}

// RenderError reports a template that failed to parse or execute.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return "rendering " + e.Template + ": " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewData validates the project name and Python version and builds template
// input.
func NewData(projectName, pythonVersion string) (Data, error) {
	if strings.TrimSpace(projectName) == "" {
		return Data{}, errors.New("project name is required")
	}
	if !projectNameRe.MatchString(projectName) {
		return Data{}, errors.Wrapf(ErrInvalidProjectName, "%q", projectName)
	}
	if err := config.ValidatePythonVersion(pythonVersion); err != nil {
		return Data{}, errors.Wrapf(err, "python version %q", pythonVersion)
	}
	v, err := semver.NewVersion(pythonVersion)
	if err != nil {
		return Data{}, errors.Wrapf(err, "python version %q", pythonVersion)
	}
	return Data{
		ProjectName:   projectName,
		PythonVersion: pythonVersion,
		PythonMinor:   fmt.Sprintf("%d.%d", v.Major(), v.Minor()),
	}, nil
}

// Templates returns the relative paths of every file the skeleton contains.
func Templates() []string {
	var out []string
	_ = fs.WalkDir(templateFS, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		out = append(out, outputPath(p))
		return nil
	})
	sort.Strings(out)
	return out
}

// Render executes every embedded template with data. The result is sorted
// by path and each file is non-empty.
func Render(data Data) ([]File, error) {
	var files []File
	err := fs.WalkDir(templateFS, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := renderOne(p, data)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func renderOne(name string, data Data) (File, error) {
	src, err := fs.ReadFile(templateFS, name)
	if err != nil {
		return File{}, &RenderError{Template: name, Err: err}
	}
	tmpl, err := template.New(path.Base(name)).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return File{}, &RenderError{Template: name, Err: err}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return File{}, &RenderError{Template: name, Err: err}
	}
	if buf.Len() == 0 {
		return File{}, &RenderError{Template: name, Err: errors.New("template produced no output")}
	}

	out := outputPath(name)
	perm := fs.FileMode(0o644)
	if secretFiles[out] {
		perm = 0o600
	}
	return File{Path: out, Content: buf.Bytes(), Perm: perm}, nil
}

func outputPath(templatePath string) string {
	return strings.TrimSuffix(strings.TrimPrefix(templatePath, templateRoot+"/"), templateExt)
}

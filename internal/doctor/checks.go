package doctor

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/skillkit/internal/config"
	"github.com/thoreinstein/skillkit/internal/paths"
)

// ConfigCheck validates the skillkit configuration file: syntax first,
// then the values themselves.
type ConfigCheck struct {
	path string
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck checks the config file at path. An empty path means the
// default location.
func NewConfigCheck(path string) *ConfigCheck {
	if path == "" {
		path = paths.ConfigFile()
	}
	return &ConfigCheck{path: path}
}

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string {
	return "config"
}

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string {
	return "config"
}

// Run executes the check.
func (c *ConfigCheck) Run() *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.path},
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Status = SeverityInfo
			result.Message = "no config file, using defaults"
			result.FixHint = "skillkit config set <key> <value> creates one"
			return result
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot read config file: %v", err)
		return result
	}

	raw, err := decodeAny(c.path, data)
	if err != nil {
		result.Status = SeverityError
		result.Message = err.Error()
		result.FixHint = "fix the syntax in " + c.path
		return result
	}

	// Round trip through YAML so every format decodes with the same tags.
	cfg := config.Default()
	normalized, err := yaml.Marshal(raw)
	if err == nil {
		err = yaml.Unmarshal(normalized, cfg)
	}
	if err != nil {
		result.Status = SeverityError
		result.Message = formatYAMLError(err)
		return result
	}

	var unknown []string
	known := map[string]bool{}
	for _, k := range config.Keys() {
		known[k] = true
	}
	for k := range raw {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	if errs := config.Validate(cfg); len(errs) > 0 {
		problems := make([]string, 0, len(errs))
		for _, e := range errs {
			problems = append(problems, e.Error())
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d invalid config value(s)", len(errs))
		result.Details["problems"] = problems
		result.FixHint = "skillkit config set <key> <value>"
		return result
	}

	if len(unknown) > 0 {
		result.Status = SeverityWarning
		result.Message = "unknown config keys: " + strings.Join(unknown, ", ")
		result.Details["unknown_keys"] = unknown
		result.FixHint = "valid keys: " + strings.Join(config.Keys(), ", ")
		return result
	}

	result.Status = SeverityPass
	result.Message = "config file is valid"
	return result
}

// SkillsDirCheck reports whether the skill roots exist and how many skills
// each holds.
type SkillsDirCheck struct {
	roots []string
}

var _ Check = (*SkillsDirCheck)(nil)

// NewSkillsDirCheck checks the given roots.
func NewSkillsDirCheck(roots ...string) *SkillsDirCheck {
	return &SkillsDirCheck{roots: roots}
}

// Name returns the unique identifier for this check.
func (c *SkillsDirCheck) Name() string {
	return "skills-dir"
}

// Category returns the grouping for this check.
func (c *SkillsDirCheck) Category() string {
	return "skills"
}

// Run executes the check.
func (c *SkillsDirCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category(), Details: map[string]any{}}

	var statuses []Severity
	var total, found int
	var problems []string
	counts := map[string]int{}

	for _, root := range c.roots {
		info, err := os.Stat(root)
		if err != nil {
			if !os.IsNotExist(err) {
				statuses = append(statuses, SeverityError)
				problems = append(problems, fmt.Sprintf("%s: %v", root, err))
			}
			continue
		}
		if !info.IsDir() {
			statuses = append(statuses, SeverityError)
			problems = append(problems, root+" is not a directory")
			continue
		}
		n, err := countSkills(root)
		if err != nil {
			statuses = append(statuses, SeverityError)
			problems = append(problems, fmt.Sprintf("%s: %v", root, err))
			continue
		}
		found++
		counts[root] = n
		total += n
	}

	result.Details["roots"] = counts
	if len(problems) > 0 {
		result.Details["problems"] = problems
	}

	switch status := worst(statuses...); {
	case status >= SeverityWarning:
		result.Status = status
		result.Message = strings.Join(problems, "; ")
	case found == 0:
		result.Status = SeverityInfo
		result.Message = "no skills directory found"
		result.FixHint = "skillkit skill init <name> creates one"
	case total == 0:
		result.Status = SeverityWarning
		result.Message = "skills directory contains no skills"
		result.FixHint = "each skill is a directory with a " + paths.SkillFile
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d skill(s) in %d director%s", total, found, plural(found, "y", "ies"))
	}
	return result
}

// countSkills counts directories under root that hold a skill file.
func countSkills(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if _, err := os.Stat(filepath.Join(p, paths.SkillFile)); err == nil {
			n++
			return filepath.SkipDir
		}
		return nil
	})
	return n, err
}

// ToolCheck looks up external programs on PATH. Missing tools are
// informational: skillkit itself does not need them.
type ToolCheck struct {
	tools    []string
	lookPath func(string) (string, error)
}

var _ Check = (*ToolCheck)(nil)

// DefaultTools are the programs the scaffolded project is run with.
var DefaultTools = []string{"python3", "docker"}

// NewToolCheck checks for tools, defaulting to DefaultTools.
func NewToolCheck(tools ...string) *ToolCheck {
	if len(tools) == 0 {
		tools = DefaultTools
	}
	return &ToolCheck{tools: tools, lookPath: exec.LookPath}
}

// Name returns the unique identifier for this check.
func (c *ToolCheck) Name() string {
	return "tools"
}

// Category returns the grouping for this check.
func (c *ToolCheck) Category() string {
	return "tools"
}

// Run executes the check.
func (c *ToolCheck) Run() *CheckResult {
	found := map[string]string{}
	var missing []string
	for _, tool := range c.tools {
		p, err := c.lookPath(tool)
		if err != nil {
			missing = append(missing, tool)
			continue
		}
		found[tool] = p
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"found": found},
	}
	if len(missing) == 0 {
		result.Status = SeverityPass
		result.Message = "found " + strings.Join(c.tools, ", ")
		return result
	}
	result.Status = SeverityInfo
	result.Details["missing"] = missing
	result.Message = "not on PATH: " + strings.Join(missing, ", ")
	result.FixHint = "scaffolded projects run with python3, or with docker compose"
	return result
}

// envFilePerm is the mode .env files are tightened to.
const envFilePerm os.FileMode = 0o600

// EnvFileCheck inspects .env files in a project for loose permissions and
// lists their keys with secret values masked.
type EnvFileCheck struct {
	PermissionFixer
	dir string
}

var (
	_ Check = (*EnvFileCheck)(nil)
	_ Fixer = (*EnvFileCheck)(nil)
)

// NewEnvFileCheck checks .env files directly inside dir.
func NewEnvFileCheck(dir string) *EnvFileCheck {
	return &EnvFileCheck{dir: dir}
}

// Name returns the unique identifier for this check.
func (c *EnvFileCheck) Name() string {
	return "env-files"
}

// Category returns the grouping for this check.
func (c *EnvFileCheck) Category() string {
	return "filesystem"
}

// Run executes the check.
func (c *EnvFileCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category(), Details: map[string]any{}}

	files, err := envFiles(c.dir)
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list %s: %v", c.dir, err)
		return result
	}
	if len(files) == 0 {
		c.setIssues(nil)
		result.Status = SeverityPass
		result.Message = "no .env files"
		return result
	}

	var issues []pathIssue
	values := map[string]map[string]string{}
	for _, p := range files {
		info, err := os.Stat(p)
		if err != nil {
			issues = append(issues, pathIssue{Path: p, Problem: err.Error(), Severity: SeverityError})
			continue
		}
		if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			issues = append(issues, pathIssue{
				Path:     p,
				Problem:  fmt.Sprintf("accessible by group or other users (mode %s)", formatPermissions(info.Mode())),
				Severity: SeverityWarning,
				Mode:     info.Mode().Perm(),
				Want:     envFilePerm,
			})
		}
		if env, err := readEnvFile(p); err == nil {
			values[filepath.Base(p)] = RedactEnv(env)
		}
	}
	c.setIssues(issues)
	result.Details["files"] = values

	if len(issues) == 0 {
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d .env file(s) are private", len(files))
		return result
	}

	statuses := make([]Severity, 0, len(issues))
	details := make([]map[string]any, 0, len(issues))
	var hints []string
	for _, issue := range issues {
		statuses = append(statuses, issue.Severity)
		d := map[string]any{"path": issue.Path, "problem": issue.Problem, "severity": issue.Severity.String()}
		if issue.Mode != 0 {
			d["permissions"] = formatPermissions(issue.Mode)
		}
		details = append(details, d)
		if issue.Fixable() {
			hints = append(hints, fmt.Sprintf("chmod %o %s", issue.Want, issue.Path))
		}
	}
	result.Details["issues"] = details
	result.Status = worst(statuses...)
	result.Message = fmt.Sprintf("found %d issue(s) in .env files", len(issues))
	result.Fixable = c.CanFix()
	result.FixHint = strings.Join(hints, "; ")
	return result
}

// envFiles lists .env and .env.* in dir, excluding .env.example.
func envFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || name == ".env.example" {
			continue
		}
		if name == ".env" || strings.HasPrefix(name, ".env.") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	return out, nil
}

// readEnvFile parses KEY=VALUE lines, ignoring comments and blank lines.
func readEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	env := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		env[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return env, sc.Err()
}

// formatPermissions returns a human-readable permission string (e.g., "0644").
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

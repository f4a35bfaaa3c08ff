// Package validator checks skills for structural problems: frontmatter
// schema, naming, length limits, required sections and broken links.
package validator

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/paths"
	"github.com/thoreinstein/skillkit/internal/skill"
	"github.com/thoreinstein/skillkit/internal/skill/parser"
	"github.com/thoreinstein/skillkit/internal/skill/toolperm"
	"github.com/thoreinstein/skillkit/internal/validator"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
	"github.com/thoreinstein/skillkit/pkg/frontmatter"
)

const (
	maxNameLength        = 64
	maxDescriptionLength = 1024
	minDescriptionLength = 20

	// DefaultMaxLines is the SKILL.md line guideline.
	DefaultMaxLines = 500
	// DefaultMaxReferenceLines is the guideline for files under references/.
	DefaultMaxReferenceLines = 1000
)

// DefaultKnownModels are the model aliases accepted without a warning.
var DefaultKnownModels = []string{"inherit", "sonnet", "opus", "haiku"}

// knownKeys are the frontmatter keys the validator understands.
var knownKeys = map[string]bool{
	"name": true, "description": true, "allowed-tools": true, "model": true,
	"license": true, "compatibility": true, "metadata": true,
}

// reservedWords may not appear in skill names.
var reservedWords = []string{"anthropic", "claude"}

var (
	nameRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	xmlTagRe  = regexp.MustCompile(`<[A-Za-z/][^>]*>`)
)

// Option configures a Validator.
type Option func(*Validator)

// Validator checks skills against the configured rules.
type Validator struct {
	toolParser        *toolperm.Parser
	parser            *parser.Parser
	strict            bool
	maxLines          int
	maxReferenceLines int
	requiredSections  []string
	knownModels       map[string]bool
}

// New creates a Validator with default limits.
func New(opts ...Option) *Validator {
	v := &Validator{
		toolParser:        toolperm.New(),
		parser:            parser.New(),
		maxLines:          DefaultMaxLines,
		maxReferenceLines: DefaultMaxReferenceLines,
	}
	WithKnownModels(DefaultKnownModels)(v)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithStrict checks allowed-tools syntax and turns the line guideline into
// an error.
func WithStrict(strict bool) Option {
	return func(v *Validator) {
		v.strict = strict
	}
}

// WithMaxLines sets the SKILL.md line guideline. Values <= 0 are ignored.
func WithMaxLines(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxLines = n
		}
	}
}

// WithMaxReferenceLines sets the guideline for reference documents.
// Values <= 0 are ignored.
func WithMaxReferenceLines(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxReferenceLines = n
		}
	}
}

// WithRequiredSections lists H1/H2 headings every skill body must contain.
// Matching is case-insensitive.
func WithRequiredSections(sections []string) Option {
	return func(v *Validator) {
		v.requiredSections = append([]string(nil), sections...)
	}
}

// WithKnownModels replaces the accepted model aliases. An empty list keeps
// the current set.
func WithKnownModels(models []string) Option {
	return func(v *Validator) {
		if len(models) == 0 {
			return
		}
		v.knownModels = make(map[string]bool, len(models))
		for _, m := range models {
			v.knownModels[strings.ToLower(m)] = true
		}
	}
}

// Validate checks a parsed skill. Checks that need the filesystem run only
// when s.Path is set.
func (v *Validator) Validate(s *skill.Skill) *validator.Result {
	result := validator.NewResult(s.Path)
	v.checkFields(s, result, nil, nil)
	v.checkDocument(s, result)
	return result
}

// ValidateFile runs every check against the skill file at path. path may also
// name the skill directory. Problems with the file itself are reported as
// issues; the error is reserved for failures of the validator.
func (v *Validator) ValidateFile(path string) (*validator.Result, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, paths.SkillFile)
	}
	result := validator.NewResult(path)

	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		msg := "cannot read skill file"
		switch {
		case errors.Is(err, os.ErrNotExist):
			msg = paths.SkillFile + " not found"
		case errors.Is(err, fileutil.ErrFileTooLarge):
			msg = "skill file is too large"
		}
		result.AddError("file", msg, nil)
		return result, nil
	}

	doc, err := frontmatter.Split(data)
	if err != nil {
		result.Add(validator.Issue{Severity: validator.SeverityError, Field: "frontmatter", Message: frontmatterMessage(err), Line: 1})
		return result, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(doc.Header, &root); err != nil {
		result.Add(validator.Issue{
			Severity: validator.SeverityError,
			Field:    "frontmatter",
			Message:  "invalid YAML: " + strings.TrimPrefix(err.Error(), "yaml: "),
			Line:     yamlErrorLine(err),
		})
		return result, nil
	}
	keyLines := topLevelKeyLines(&root)

	var raw any
	if root.Kind != 0 {
		if err := root.Decode(&raw); err != nil {
			result.AddError("frontmatter", "invalid YAML: "+err.Error(), nil)
			return result, nil
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	schemaIssues, err := checkSchema(raw)
	if err != nil {
		return nil, errors.Wrap(err, "schema validation")
	}
	failed := map[string]bool{}
	for _, si := range schemaIssues {
		failed[si.Field] = true
		result.Add(validator.Issue{
			Severity: validator.SeverityError,
			Field:    fieldOrDocument(si.Field),
			Message:  si.Message,
			Line:     keyLines[si.Field],
			Context:  schemaContext(si),
		})
	}

	if m, ok := raw.(map[string]any); ok {
		for key := range m {
			if !knownKeys[key] {
				result.Add(validator.Issue{
					Severity: validator.SeverityInfo,
					Field:    key,
					Message:  "unrecognised frontmatter key",
					Line:     keyLines[key],
				})
			}
		}
	}

	s, err := v.parser.ParseBytes(data, path)
	if err != nil {
		if len(schemaIssues) == 0 {
			result.AddError("frontmatter", err.Error(), nil)
		}
		result.Sort()
		return result, nil
	}

	v.checkFields(s, result, failed, keyLines)
	v.checkDocument(s, result)
	v.checkReferences(s.Dir(), result)

	result.Sort()
	return result, nil
}

// checkFields applies the frontmatter rules. Fields in skip already failed
// the schema and are not checked again.
func (v *Validator) checkFields(s *skill.Skill, result *validator.Result, skip map[string]bool, lines map[string]int) {
	add := func(sev validator.Severity, field, msg string, value any) {
		key, _, _ := strings.Cut(field, ".")
		result.Add(validator.Issue{Severity: sev, Field: field, Message: msg, Value: value, Line: lines[key]})
	}

	if !skip["name"] {
		v.checkName(s, add)
	}
	if !skip["description"] {
		v.checkDescription(s.Description, add)
	}
	if !skip["allowed-tools"] && v.strict && len(s.AllowedTools) > 0 {
		if _, err := v.toolParser.ParseTokens(s.AllowedTools); err != nil {
			add(validator.SeverityError, "allowed-tools", err.Error(), s.AllowedTools.String())
		}
	}
	if !skip["model"] && s.Model != "" && !v.knownModels[strings.ToLower(s.Model)] {
		add(validator.SeverityWarning, "model", "unknown model alias; expected one of "+v.modelList(), s.Model)
	}
	if !skip["metadata"] {
		if ver := s.Version(); ver != "" {
			if _, err := semver.NewVersion(ver); err != nil {
				add(validator.SeverityError, "metadata.version", "must be a semantic version such as 1.0.0", ver)
			}
		}
	}
}

func (v *Validator) checkName(s *skill.Skill, add func(validator.Severity, string, string, any)) {
	name := s.Name
	if name == "" {
		add(validator.SeverityError, "name", "name is required", nil)
		return
	}
	if len(name) > maxNameLength {
		add(validator.SeverityError, "name", fmt.Sprintf("name exceeds maximum length of %d characters", maxNameLength), name)
	}
	if !nameRegex.MatchString(name) {
		msg := "name must be lowercase alphanumeric with single hyphens between segments"
		switch {
		case strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-"):
			msg = "name cannot start or end with a hyphen"
		case strings.Contains(name, "--"):
			msg = "name cannot contain consecutive hyphens"
		case strings.ToLower(name) != name:
			msg = "name must be lowercase"
		}
		add(validator.SeverityError, "name", msg, name)
	}
	for _, word := range reservedWords {
		if strings.Contains(name, word) {
			add(validator.SeverityWarning, "name", fmt.Sprintf("name should not contain the reserved word %q", word), name)
		}
	}

	if dir := s.Dir(); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		base := filepath.Base(dir)
		if base != name {
			add(validator.SeverityError, "name", "skill name must match directory name "+base, name)
		}
	}
}

func (v *Validator) checkDescription(desc string, add func(validator.Severity, string, string, any)) {
	trimmed := strings.TrimSpace(desc)
	switch {
	case desc == "":
		add(validator.SeverityError, "description", "description is required", nil)
		return
	case trimmed == "":
		add(validator.SeverityError, "description", "description cannot be only whitespace", nil)
		return
	}
	if n := len([]rune(desc)); n > maxDescriptionLength {
		add(validator.SeverityError, "description", fmt.Sprintf("description exceeds maximum length of %d characters", maxDescriptionLength), n)
	}
	if len([]rune(trimmed)) < minDescriptionLength {
		add(validator.SeverityWarning, "description", "description is too short to tell an agent when to use the skill", trimmed)
	}
	if xmlTagRe.MatchString(desc) {
		add(validator.SeverityWarning, "description", "description should not contain XML tags", nil)
	}
}

// checkDocument applies body rules: emptiness, length, sections and links.
func (v *Validator) checkDocument(s *skill.Skill, result *validator.Result) {
	if s.Instructions == "" {
		result.Add(validator.Issue{
			Severity: validator.SeverityWarning,
			Field:    "body",
			Message:  "skill has no instructions after the frontmatter",
			Line:     s.BodyLine,
		})
	}

	if s.Lines > v.maxLines {
		sev := validator.SeverityWarning
		if v.strict {
			sev = validator.SeverityError
		}
		result.Add(validator.Issue{
			Severity: sev,
			Field:    "lines",
			Message:  fmt.Sprintf("SKILL.md has %d lines, above the %d line guideline; move detail into %s/", s.Lines, v.maxLines, paths.ReferencesDir),
			Value:    s.Lines,
		})
	}

	if len(v.requiredSections) == 0 && s.Dir() == "" {
		return
	}

	body, offset := s.Body, s.BodyLine
	if body == "" {
		body = s.Instructions
	}
	if offset < 1 {
		offset = 1
	}
	outline := scanBody([]byte(body), offset)

	v.checkSections(outline, result)
	if dir := s.Dir(); dir != "" {
		checkLinks(dir, outline, result)
	}
}

func (v *Validator) checkSections(o outline, result *validator.Result) {
	present := map[string]bool{}
	for _, h := range o.Headings {
		if h.Level <= 2 {
			present[strings.ToLower(h.Text)] = true
		}
	}
	for _, want := range v.requiredSections {
		if !present[strings.ToLower(strings.TrimSpace(want))] {
			result.AddError("sections", "missing required section", want)
		}
	}
}

// checkLinks verifies relative link targets exist inside dir.
func checkLinks(dir string, o outline, result *validator.Result) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		realDir = absDir
	}

	for _, l := range o.Links {
		target, ok := localTarget(l.Dest)
		if !ok {
			continue
		}
		full := filepath.Join(absDir, filepath.FromSlash(target))
		outside := filepath.IsAbs(filepath.FromSlash(target)) || !paths.Within(absDir, full)
		// A symlink inside the skill can still point out of it.
		if resolved, err := filepath.EvalSymlinks(full); !outside && err == nil {
			outside = !paths.Within(realDir, resolved)
		}
		if outside {
			result.Add(validator.Issue{
				Severity: validator.SeverityError,
				Field:    "links",
				Message:  "link points outside the skill directory",
				Value:    l.Dest,
				Line:     l.Line,
			})
			continue
		}
		if _, err := os.Stat(full); err != nil {
			result.Add(validator.Issue{
				Severity: validator.SeverityError,
				Field:    "links",
				Message:  "linked file does not exist",
				Value:    l.Dest,
				Line:     l.Line,
			})
		}
	}
}

// localTarget returns the file path of a relative link, or false for
// URLs, anchors and empty destinations.
func localTarget(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil {
		return dest, true
	}
	if u.Scheme != "" || u.Host != "" {
		return "", false
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		p = u.Path
	}
	if p == "" {
		return "", false
	}
	return p, true
}

// checkReferences warns about oversized documents under references/.
func (v *Validator) checkReferences(dir string, result *validator.Result) {
	if dir == "" {
		return
	}
	matches, err := doublestar.Glob(os.DirFS(dir), paths.ReferencesDir+"/**/*.md")
	if err != nil {
		return
	}
	for _, rel := range matches {
		data, err := fileutil.ReadFileWithLimit(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			result.Add(validator.Issue{
				Severity: validator.SeverityWarning,
				Field:    "references",
				Message:  "cannot read reference file",
				Context:  map[string]string{"file": rel},
			})
			continue
		}
		if n := fileutil.CountLines(data); n > v.maxReferenceLines {
			result.Add(validator.Issue{
				Severity: validator.SeverityWarning,
				Field:    "references",
				Message:  fmt.Sprintf("reference file has %d lines, above the %d line guideline", n, v.maxReferenceLines),
				Value:    n,
				Context:  map[string]string{"file": rel},
			})
		}
	}
}

func (v *Validator) modelList() string {
	names := make([]string, 0, len(v.knownModels))
	for m := range v.knownModels {
		names = append(names, m)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func frontmatterMessage(err error) string {
	switch {
	case errors.Is(err, frontmatter.ErrMissingFrontmatter):
		return "file must start with YAML frontmatter delimited by ---"
	case errors.Is(err, frontmatter.ErrUnclosedFrontmatter):
		return "frontmatter is missing its closing --- line"
	default:
		return err.Error()
	}
}

func fieldOrDocument(field string) string {
	if field == "" {
		return "frontmatter"
	}
	return field
}

func schemaContext(si SchemaIssue) map[string]string {
	if si.Pointer == "" || si.Pointer == "/"+si.Field {
		return map[string]string{"rule": si.Keyword}
	}
	return map[string]string{"rule": si.Keyword, "at": si.Pointer}
}

// topLevelKeyLines maps each top-level key to its file line. Header line 1
// is file line 2.
func topLevelKeyLines(root *yaml.Node) map[string]int {
	lines := map[string]int{}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return lines
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return lines
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		lines[m.Content[i].Value] = m.Content[i].Line + 1
	}
	return lines
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func yamlErrorLine(err error) int {
	m := yamlLineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n + 1
}

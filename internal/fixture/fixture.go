package fixture

import (
	"bytes"
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/thoreinstein/skillkit/internal/errors"
)

// Kind is a fixture pattern.
type Kind string

const (
	KindFactory      Kind = "factory"
	KindDatabase     Kind = "database"
	KindMock         Kind = "mock"
	KindData         Kind = "data"
	KindAsync        Kind = "async"
	KindAutouse      Kind = "autouse"
	KindParametrized Kind = "parametrized"
	KindScoped       Kind = "scoped"
)

// DefaultScope is used by scoped fixtures when no scope is given.
const DefaultScope = "function"

// DefaultParams are used by parametrized fixtures when no params are given.
var DefaultParams = []string{"value1", "value2"}

var (
	ErrUnknownKind   = errors.New("unknown fixture type")
	ErrInvalidName   = errors.New("invalid fixture name")
	ErrInvalidScope  = errors.New("invalid fixture scope")
	ErrDuplicateName = errors.New("duplicate fixture")
	ErrNoFixtures    = errors.New("no fixtures defined")
	ErrUnknownFormat = errors.New("unsupported definitions format")
)

// Scopes are the pytest fixture scopes, narrowest first.
var Scopes = []string{"function", "class", "module", "package", "session"}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true,
	"finally": true, "for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true, "nonlocal": true,
	"not": true, "or": true, "pass": true, "raise": true, "return": true,
	"try": true, "while": true, "with": true, "yield": true,
}

// Spec describes one fixture. Scope is read by scoped fixtures and Params
// by parametrized ones; other kinds ignore both.
type Spec struct {
	Kind   Kind     `yaml:"type" toml:"type" json:"type"`
	Name   string   `yaml:"name" toml:"name" json:"name"`
	Scope  string   `yaml:"scope,omitempty" toml:"scope,omitempty" json:"scope,omitempty"`
	Params []string `yaml:"params,omitempty" toml:"params,omitempty" json:"params,omitempty"`
}

// kinds holds the templates in the order they are listed to users. fn
// renders the generated function's name.
var kinds = []struct {
	kind    Kind
	summary string
	fn      string
	tmpl    string
}{
	{KindFactory, "callable that builds objects with overridable fields", "{{.Name}}_factory", `@pytest.fixture
def {{.Name}}_factory():
    """Factory for creating {{.Name}} objects with customizable data"""
    def _make_{{.Name}}(**kwargs) -> dict:
        return {
            # Add fields here
            **kwargs,
        }
    return _make_{{.Name}}
`},
	{KindDatabase, "connection opened before and closed after the test", "{{.Name}}_connection", `@pytest.fixture
def {{.Name}}_connection(test_config):
    """Create {{.Name}} connection for testing"""
    connection = connect_to_{{.Name}}(test_config)
    yield connection
    connection.close()
`},
	{KindMock, "patched service with a canned return value", "mock_{{.Name}}", `@pytest.fixture
def mock_{{.Name}}():
    """Mock {{.Name}} service"""
    from unittest.mock import patch

    with patch("app.{{.Name}}") as mock:
        mock.some_method.return_value = {"status": "mocked"}
        yield mock
`},
	{KindData, "static sample data", "{{.Name}}_data", `@pytest.fixture
def {{.Name}}_data():
    """Sample {{.Name}} data for tests"""
    return {
        "id": 1,
        "name": "{{.Name}}_test",
    }
`},
	{KindAsync, "async setup and cleanup", "{{.Name}}_async", `@pytest.fixture
async def {{.Name}}_async():
    """Async fixture for {{.Name}}"""
    resource = await setup_{{.Name}}()
    yield resource
    await cleanup_{{.Name}}(resource)
`},
	{KindAutouse, "setup and teardown around every test", "{{.Name}}_autouse", `@pytest.fixture(autouse=True)
def {{.Name}}_autouse():
    """Auto-run fixture for {{.Name}} setup/teardown"""
    # Setup runs before each test
    yield
    # Cleanup runs after each test
`},
	{KindParametrized, "runs dependent tests once per param", "{{.Name}}_parametrized", `@pytest.fixture(params={{.ParamList}})
def {{.Name}}_parametrized(request):
    """Parametrized fixture for {{.Name}} with multiple values"""
    return request.param
`},
	{KindScoped, "shared at function, class, module, package or session level", "{{.Name}}_{{.Scope}}", `@pytest.fixture(scope="{{.Scope}}")
def {{.Name}}_{{.Scope}}():
    """Scoped fixture for {{.Name}} ({{.Scope}} level)"""
    yield {}
`},
}

var (
	bodyTemplates = map[Kind]*template.Template{}
	nameTemplates = map[Kind]*template.Template{}
)

func init() {
	for _, k := range kinds {
		bodyTemplates[k.kind] = template.Must(template.New(string(k.kind)).Parse(k.tmpl))
		nameTemplates[k.kind] = template.Must(template.New(string(k.kind) + "-name").Parse(k.fn))
	}
}

// Info describes a fixture kind for listings.
type Info struct {
	Kind    Kind   `json:"type"`
	Summary string `json:"summary"`
}

// Kinds returns every fixture kind in listing order.
func Kinds() []Info {
	out := make([]Info, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, Info{Kind: k.kind, Summary: k.summary})
	}
	return out
}

func kindNames() string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k.kind))
	}
	return strings.Join(names, ", ")
}

type renderData struct {
	Name      string
	Scope     string
	ParamList string
}

// Normalize fills kind-specific defaults and validates s.
func (s Spec) Normalize() (Spec, error) {
	s.Kind = Kind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	s.Name = strings.TrimSpace(s.Name)

	if _, ok := bodyTemplates[s.Kind]; !ok {
		return s, errors.Wrapf(ErrUnknownKind, "%q (available: %s)", s.Kind, kindNames())
	}
	if err := ValidateName(s.Name); err != nil {
		return s, err
	}

	switch s.Kind {
	case KindScoped:
		if s.Scope == "" {
			s.Scope = DefaultScope
		}
		if !validScope(s.Scope) {
			return s, errors.Wrapf(ErrInvalidScope, "%q (valid: %s)", s.Scope, strings.Join(Scopes, ", "))
		}
	case KindParametrized:
		if len(s.Params) == 0 {
			s.Params = append([]string(nil), DefaultParams...)
		}
	}
	return s, nil
}

// FunctionName returns the name of the Python function s generates.
func (s Spec) FunctionName() (string, error) {
	s, err := s.Normalize()
	if err != nil {
		return "", err
	}
	return execute(nameTemplates[s.Kind], s)
}

// ValidateName reports whether name can be used as a Python identifier.
func ValidateName(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidName, "name is required")
	}
	if !identRe.MatchString(name) {
		return errors.Wrapf(ErrInvalidName, "%q is not a Python identifier", name)
	}
	if pythonKeywords[name] {
		return errors.Wrapf(ErrInvalidName, "%q is a Python keyword", name)
	}
	return nil
}

func validScope(scope string) bool {
	for _, s := range Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Generate renders the code for one fixture.
func Generate(s Spec) (string, error) {
	s, err := s.Normalize()
	if err != nil {
		return "", err
	}
	return execute(bodyTemplates[s.Kind], s)
}

// ConftestHeader starts every generated conftest.py.
const ConftestHeader = `"""Auto-generated conftest.py with pytest fixtures"""

import pytest
`

// GenerateConftest renders a conftest.py holding every fixture in specs,
// in order. Two specs that produce the same function name are rejected.
func GenerateConftest(specs []Spec) (string, error) {
	if len(specs) == 0 {
		return "", ErrNoFixtures
	}

	var sb strings.Builder
	sb.WriteString(ConftestHeader)

	seen := make(map[string]int, len(specs))
	for i, s := range specs {
		fn, err := s.FunctionName()
		if err != nil {
			return "", errors.Wrapf(err, "fixture %d", i+1)
		}
		if prev, ok := seen[fn]; ok {
			return "", errors.Wrapf(ErrDuplicateName, "%s is defined by fixtures %d and %d", fn, prev, i+1)
		}
		seen[fn] = i + 1

		code, err := Generate(s)
		if err != nil {
			return "", errors.Wrapf(err, "fixture %d", i+1)
		}
		sb.WriteString("\n\n")
		sb.WriteString(code)
	}
	return sb.String(), nil
}

func execute(t *template.Template, s Spec) (string, error) {
	var buf bytes.Buffer
	data := renderData{Name: s.Name, Scope: s.Scope, ParamList: pythonList(s.Params)}
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s fixture", s.Kind)
	}
	return buf.String(), nil
}

// pythonList renders values as a Python list of string literals.
func pythonList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

//go:embed templates/conftest_template.py
var conftestTemplate []byte

// Template returns a reference conftest.py demonstrating common fixture
// patterns, meant to be copied and trimmed.
func Template() []byte {
	return append([]byte(nil), conftestTemplate...)
}

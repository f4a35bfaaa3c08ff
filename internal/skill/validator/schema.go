package validator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/skill.schema.json
var schemaBytes []byte

const schemaURL = "skill.schema.json"

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// SchemaIssue is one frontmatter schema violation.
type SchemaIssue struct {
	// Field is the top-level frontmatter key at fault, or "" for the document.
	Field string
	// Pointer is the JSON pointer of the failing value, e.g. "/metadata/version".
	Pointer string
	Message string
	Keyword string
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = errors.Wrap(err, "unmarshaling schema JSON")
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = errors.Wrap(err, "adding schema resource")
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = errors.Wrap(compileErr, "compiling schema")
		}
	})
	return compiledSchema, compileErr
}

// SchemaJSON returns the embedded frontmatter schema.
func SchemaJSON() []byte {
	return bytes.Clone(schemaBytes)
}

// checkSchema validates decoded frontmatter against the embedded schema.
// raw is the value produced by yaml.v3 for the header.
func checkSchema(raw any) ([]SchemaIssue, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	// Round-trip through encoding/json so numbers reach the validator as
	// json.Number and YAML-only types are flattened.
	data, err := json.Marshal(normalize(raw))
	if err != nil {
		return nil, errors.Wrap(err, "converting frontmatter to JSON")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "preparing frontmatter for validation")
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, errors.Wrap(err, "validating frontmatter")
	}
	return flattenIssues(ve), nil
}

// flattenIssues collects leaf causes. oneOf branches repeat each other, so
// a failed oneOf is reported once at its own location.
func flattenIssues(ve *jsonschema.ValidationError) []SchemaIssue {
	var out []SchemaIssue
	seen := map[string]bool{}

	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		keyword := lastKeyword(e)
		if len(e.Causes) > 0 && keyword != "oneOf" {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if keyword == "" || keyword == "allOf" || keyword == "$ref" {
			return
		}

		issue := SchemaIssue{
			Pointer: pointer(e.InstanceLocation),
			Keyword: keyword,
		}
		if len(e.InstanceLocation) > 0 {
			issue.Field = e.InstanceLocation[0]
		}
		if e.ErrorKind != nil {
			issue.Message = e.ErrorKind.LocalizedString(printer)
		}
		if keyword == "oneOf" {
			issue.Message = "must be a string or a list of strings"
		}

		add := func(issue SchemaIssue) {
			key := issue.Pointer + "|" + issue.Field + "|" + issue.Keyword + "|" + issue.Message
			if !seen[key] {
				seen[key] = true
				out = append(out, issue)
			}
		}

		if req, ok := e.ErrorKind.(*kind.Required); ok {
			for _, name := range req.Missing {
				missing := issue
				missing.Field = name
				missing.Pointer = pointer(append(append([]string(nil), e.InstanceLocation...), name))
				missing.Message = "is required"
				add(missing)
			}
			return
		}
		add(issue)
	}
	walk(ve)

	if len(out) == 0 {
		out = append(out, SchemaIssue{Message: ve.Error()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pointer < out[j].Pointer })
	return out
}

func lastKeyword(e *jsonschema.ValidationError) string {
	if e.ErrorKind == nil {
		return ""
	}
	path := e.ErrorKind.KeywordPath()
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func pointer(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	return "/" + strings.Join(loc, "/")
}

// normalize converts yaml.v3 output into values encoding/json accepts.
// Non-string map keys are stringified.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[k] = normalize(v)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[toString(k)] = normalize(v)
		}
		return m
	case []any:
		a := make([]any, len(val))
		for i, v := range val {
			a[i] = normalize(v)
		}
		return a
	default:
		return val
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

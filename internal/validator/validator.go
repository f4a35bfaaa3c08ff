package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Severity represents the impact of a validation issue.
type Severity int

const (
	// SeverityError indicates a blocking validation failure.
	SeverityError Severity = iota
	// SeverityWarning indicates a recommended but non-blocking issue.
	SeverityWarning
	// SeverityInfo indicates an informational note.
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, "decoding severity")
	}
	switch name {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return errors.Newf("unknown severity %q", name)
	}
	return nil
}

// Issue is a single validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	// Field names the frontmatter key or document part at fault.
	Field string `json:"field,omitempty"`
	// Message is a human-readable description of the problem.
	Message string `json:"message"`
	// Value is the offending value, when there is one.
	Value any `json:"value,omitempty"`
	// Line is the 1-based line in the source file, or 0 when unknown.
	Line int `json:"line,omitempty"`
	// Context carries extra key/value detail such as a link target.
	Context map[string]string `json:"context,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	var sb strings.Builder
	sb.WriteString(i.Severity.String())
	sb.WriteString(": ")
	if i.Field != "" {
		sb.WriteString("field \"")
		sb.WriteString(i.Field)
		sb.WriteString("\": ")
	}
	sb.WriteString(i.Message)
	if i.Value != nil {
		fmt.Fprintf(&sb, " (got %v)", i.Value)
	}
	return sb.String()
}

// Result aggregates the issues found for one subject, usually a file.
type Result struct {
	// Path identifies what was validated. It may be empty.
	Path   string  `json:"path,omitempty"`
	Issues []Issue `json:"issues"`
}

// NewResult returns an empty result for path.
func NewResult(path string) *Result {
	return &Result{Path: path, Issues: []Issue{}}
}

// Add appends a fully specified issue.
func (r *Result) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// AddError adds an error issue to the result.
func (r *Result) AddError(field, message string, value any) {
	r.Add(Issue{Severity: SeverityError, Field: field, Message: message, Value: value})
}

// AddWarning adds a warning issue to the result.
func (r *Result) AddWarning(field, message string, value any) {
	r.Add(Issue{Severity: SeverityWarning, Field: field, Message: message, Value: value})
}

// AddInfo adds an info issue to the result.
func (r *Result) AddInfo(field, message string, value any) {
	r.Add(Issue{Severity: SeverityInfo, Field: field, Message: message, Value: value})
}

// Merge appends the issues of other. Nil results are ignored.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// HasErrors returns true if any issue has SeverityError.
func (r *Result) HasErrors() bool {
	return r.count(SeverityError) > 0
}

// HasWarnings returns true if any issue has SeverityWarning.
func (r *Result) HasWarnings() bool {
	return r.count(SeverityWarning) > 0
}

// Errors returns the issues with SeverityError.
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the issues with SeverityWarning.
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// Infos returns the issues with SeverityInfo.
func (r *Result) Infos() []Issue {
	return r.filter(SeverityInfo)
}

// Sort orders issues by severity, then line, then field. The order within
// equal keys is preserved.
func (r *Result) Sort() {
	if r == nil {
		return
	}
	sort.SliceStable(r.Issues, func(a, b int) bool {
		x, y := r.Issues[a], r.Issues[b]
		if x.Severity != y.Severity {
			return x.Severity < y.Severity
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		return x.Field < y.Field
	})
}

func (r *Result) count(s Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

func (r *Result) filter(s Severity) []Issue {
	if r == nil {
		return nil
	}
	var res []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			res = append(res, i)
		}
	}
	return res
}

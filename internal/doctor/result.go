// Package doctor runs diagnostic checks against a skillkit installation and
// the project it is pointed at.
package doctor

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Severity indicates the importance level of a check result.
type Severity int

const (
	// SeverityPass indicates the check passed without issues.
	SeverityPass Severity = iota

	// SeverityInfo indicates informational output, not a problem.
	SeverityInfo

	// SeverityWarning indicates a potential issue that doesn't prevent operation.
	SeverityWarning

	// SeverityError indicates a problem that prevents proper operation.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "pass"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, candidate := range []Severity{SeverityPass, SeverityInfo, SeverityWarning, SeverityError} {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return errors.Newf("unknown severity %q", name)
}

// CheckResult represents the outcome of a single diagnostic check.
type CheckResult struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Status   Severity `json:"status"`
	Message  string   `json:"message"`

	// Details holds check-specific context. Values that look like secrets
	// are masked before they are stored here.
	Details map[string]any `json:"details,omitempty"`

	// Fixable indicates whether doctor --fix can resolve the issue.
	Fixable bool   `json:"fixable,omitempty"`
	FixHint string `json:"fix_hint,omitempty"`
}

// Summary aggregates counts of check results by severity.
type Summary struct {
	Passed   int `json:"passed"`
	Info     int `json:"info"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// worst returns the highest severity in list, or SeverityPass.
func worst(list ...Severity) Severity {
	out := SeverityPass
	for _, s := range list {
		if s > out {
			out = s
		}
	}
	return out
}

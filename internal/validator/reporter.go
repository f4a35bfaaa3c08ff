package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

// Format specifies the output format for validation reports.
type Format string

const (
	// FormatText produces human-readable text output.
	FormatText Format = "text"
	// FormatJSON produces machine-readable JSON output.
	FormatJSON Format = "json"
)

// maxValueWidth caps how much of an offending value is echoed in text mode.
const maxValueWidth = 50

// Reporter formats and writes validation results.
type Reporter struct {
	out      io.Writer
	format   Format
	showInfo bool
}

// NewReporter creates a new Reporter.
func NewReporter(out io.Writer, format Format) *Reporter {
	return &Reporter{out: out, format: format}
}

// WithInfo makes text reports include info-level issues.
func (r *Reporter) WithInfo(show bool) *Reporter {
	r.showInfo = show
	return r
}

// Report writes a single result.
func (r *Reporter) Report(result *Result) error {
	if result == nil {
		return nil
	}
	if r.format == FormatJSON {
		return r.encode(result)
	}
	r.writeText(result)
	return nil
}

// Summary totals a set of results.
type Summary struct {
	Files    int `json:"files"`
	Failed   int `json:"failed"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Summarize counts files, failures and issues across results.
func Summarize(results []*Result) Summary {
	var s Summary
	for _, res := range results {
		if res == nil {
			continue
		}
		s.Files++
		s.Errors += res.count(SeverityError)
		s.Warnings += res.count(SeverityWarning)
		if res.HasErrors() {
			s.Failed++
		}
	}
	return s
}

// ReportAll writes many results followed by a summary line. JSON output is a
// single object carrying both.
func (r *Reporter) ReportAll(results []*Result) error {
	summary := Summarize(results)

	if r.format == FormatJSON {
		return r.encode(struct {
			Results []*Result `json:"results"`
			Summary Summary   `json:"summary"`
		}{Results: results, Summary: summary})
	}

	for _, res := range results {
		r.writeText(res)
	}

	line := fmt.Sprintf("%d file(s) checked", summary.Files)
	switch {
	case summary.Failed > 0:
		fmt.Fprintln(r.out, color.RedString("%s, %d failed, %d error(s), %d warning(s)",
			line, summary.Failed, summary.Errors, summary.Warnings))
	case summary.Warnings > 0:
		fmt.Fprintln(r.out, color.YellowString("%s, %d warning(s)", line, summary.Warnings))
	default:
		fmt.Fprintln(r.out, color.GreenString("%s, all passed", line))
	}
	return nil
}

func (r *Reporter) encode(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding JSON report")
}

func (r *Reporter) writeText(result *Result) {
	if result == nil {
		return
	}

	errs := result.Errors()
	warnings := result.Warnings()
	var infos []Issue
	if r.showInfo {
		infos = result.Infos()
	}

	subject := ""
	if result.Path != "" {
		subject = result.Path + ": "
	}

	if len(errs) == 0 && len(warnings) == 0 {
		fmt.Fprintln(r.out, color.GreenString("✓ %sValidation passed", subject))
		r.writeGroup("Info:", infos, color.FgCyan)
		return
	}

	var summary []string
	if len(errs) > 0 {
		summary = append(summary, color.RedString("%d error(s)", len(errs)))
	}
	if len(warnings) > 0 {
		summary = append(summary, color.YellowString("%d warning(s)", len(warnings)))
	}
	verdict := "Validation failed"
	if len(errs) == 0 {
		verdict = "Validation passed with warnings"
	}
	fmt.Fprintf(r.out, "%s%s: %s\n\n", subject, verdict, strings.Join(summary, ", "))

	r.writeGroup("Errors:", errs, color.FgRed)
	r.writeGroup("Warnings:", warnings, color.FgYellow)
	r.writeGroup("Info:", infos, color.FgCyan)
}

func (r *Reporter) writeGroup(title string, issues []Issue, c color.Attribute) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintln(r.out, title)
	for _, i := range issues {
		r.writeIssue(i, c)
	}
	fmt.Fprintln(r.out)
}

// writeIssue renders "  • [line N] field: message (k=v) [value]".
func (r *Reporter) writeIssue(i Issue, c color.Attribute) {
	dim := color.New(color.FgHiBlack)

	var sb strings.Builder
	sb.WriteString("  • ")
	if i.Line > 0 {
		sb.WriteString(dim.Sprintf("line %d ", i.Line))
	}
	if i.Field != "" {
		sb.WriteString(color.New(c).Sprint(i.Field))
		sb.WriteString(": ")
	}
	sb.WriteString(i.Message)

	if len(i.Context) > 0 {
		parts := make([]string, 0, len(i.Context))
		for k, v := range i.Context {
			parts = append(parts, k+"="+v)
		}
		sort.Strings(parts)
		sb.WriteString(" ")
		sb.WriteString(dim.Sprintf("(%s)", strings.Join(parts, ", ")))
	}

	if i.Value != nil {
		val := fmt.Sprintf("%v", i.Value)
		if len(val) > maxValueWidth {
			val = val[:maxValueWidth-3] + "..."
		}
		sb.WriteString(dim.Sprintf(" [%s]", val))
	}

	fmt.Fprintln(r.out, sb.String())
}

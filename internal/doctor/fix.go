package doctor

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
)

// Fixer is an optional interface for checks that can remediate what they
// found. CanFix and Fix are only meaningful after Run.
type Fixer interface {
	CanFix() bool
	Fix() []FixResult
}

// FixResult describes the outcome of an attempted fix operation.
type FixResult struct {
	Path        string `json:"path"`
	Fixed       bool   `json:"fixed"`
	Description string `json:"description"`
	Error       error  `json:"-"`
}

// pathIssue is a permission problem on one path. Want is the mode that
// fixes it; zero means it cannot be fixed by chmod.
type pathIssue struct {
	Path     string
	Problem  string
	Severity Severity
	Mode     os.FileMode
	Want     os.FileMode
}

// Fixable reports whether chmod can resolve the issue.
func (i pathIssue) Fixable() bool {
	return i.Want != 0
}

// PermissionFixer chmods paths to the mode recorded with each issue.
// Checks embed it and record their findings with setIssues.
type PermissionFixer struct {
	issues []pathIssue
}

// CanFix returns true if there are any fixable permission issues.
func (f *PermissionFixer) CanFix() bool {
	return f.CountFixable() > 0
}

// CountFixable returns the number of fixable issues.
func (f *PermissionFixer) CountFixable() int {
	count := 0
	for _, issue := range f.issues {
		if issue.Fixable() {
			count++
		}
	}
	return count
}

// Fix applies every fixable issue and reports each attempt.
func (f *PermissionFixer) Fix() []FixResult {
	results := make([]FixResult, 0, f.CountFixable())
	for _, issue := range f.issues {
		if !issue.Fixable() {
			continue
		}
		results = append(results, fixPermission(issue))
	}
	return results
}

func fixPermission(issue pathIssue) FixResult {
	result := FixResult{Path: issue.Path}
	if err := os.Chmod(issue.Path, issue.Want); err != nil {
		result.Description = fmt.Sprintf("failed to chmod %04o: %v", issue.Want, err)
		result.Error = errors.Wrapf(err, "chmod %04o %s", issue.Want, issue.Path)
		return result
	}
	result.Fixed = true
	result.Description = fmt.Sprintf("chmod %04o", issue.Want)
	return result
}

func (f *PermissionFixer) setIssues(issues []pathIssue) {
	f.issues = issues
}

// Package validator holds the issue and result types shared by every
// skillkit check, plus a [Reporter] that renders results as text or JSON.
//
//	result := validator.NewResult("skills/pytest-testing/SKILL.md")
//	if name == "" {
//		result.AddError("name", "is required", nil)
//	}
//	if result.HasErrors() {
//		// fail the command
//	}
//
// Severity decides the exit status: only [SeverityError] fails a run.
// Warnings and info notes are reported but never block.
package validator

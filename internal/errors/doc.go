// Package errors holds the error conventions shared by skillkit commands.
//
// It re-exports the wrapping helpers of github.com/cockroachdb/errors, so a
// package needs a single import for both wrapping and the sentinels below.
//
// # Exit codes
//
//   - ExitSuccess (0)
//   - ExitUser (1): bad input, a failed lint or validation, scaffold conflicts
//   - ExitSystem (2): I/O and anything not classified
//
// Commands attach a code and an optional hint with [ExitError]:
//
//	if len(matches) == 0 {
//		return errors.NewUserError(
//			errors.Wrapf(errors.ErrNotFound, "skill %q", name),
//			"Run: skillkit skill list",
//		)
//	}
//
// A command that has already printed its report returns a wrap of
// [ErrValidationFailed]; the top level then exits 1 without repeating it.
// [ExitCode] resolves the code for any error in one place.
package errors

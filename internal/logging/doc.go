// Package logging builds the slog loggers skillkit writes diagnostics with.
//
// Diagnostics go to stderr so that command output on stdout stays
// pipeable. The default level is Warn; each -v lowers it one step through
// Info and Debug down to [LevelTrace]. SKILLKIT_DEBUG=1 behaves like -vv
// when no -v is given.
//
// The text [Handler] prints "3:04PM INFO  message key=value", colors it on
// terminals and masks values under secret-looking keys (SECRET_KEY,
// api_token, ...) as well as passwords embedded in URLs. --log-format json
// switches to slog's JSON handler, and --log-file tees records to a file
// through [MultiHandler].
//
//	logger := logging.FromContext(cmd.Context())
//	logger.Debug("scaffold plan", "dir", dir, "files", len(plan))
//
// Tests use [ForTest], which routes every record to t.Log.
package logging

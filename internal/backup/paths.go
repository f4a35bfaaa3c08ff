package backup

import (
	"path/filepath"

	"github.com/thoreinstein/skillkit/internal/paths"
)

// StateDir is the per-project directory skillkit keeps its own state in.
const StateDir = "." + paths.AppName

// Dir returns the backup root for target: <target>/.skillkit/backups.
func Dir(target string) string {
	return filepath.Join(target, StateDir, "backups")
}

// Path returns the directory of backup id under target.
func Path(target, id string) string {
	return filepath.Join(Dir(target), id)
}

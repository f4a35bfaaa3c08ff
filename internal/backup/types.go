package backup

import (
	"io/fs"
	"time"

	"github.com/cockroachdb/errors"
)

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// DefaultRetentionCount is the number of backups Prune keeps by default.
const DefaultRetentionCount = 5

// ManifestFile is the manifest name inside each backup directory.
const ManifestFile = "manifest.json"

var (
	// ErrNoBackupsFound indicates the target has no backups, or not the requested one.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a stored file no longer matches its manifest hash.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrUnsafePath indicates a path that would resolve outside the target.
	ErrUnsafePath = errors.New("path escapes the target directory")
)

// Manifest describes one backup. It is stored as manifest.json.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	// Target is the absolute project directory the files were copied from.
	Target string `json:"target"`

	Files []File `json:"files"`

	// ToolVersion is the skillkit version that wrote the backup.
	ToolVersion string `json:"skillkit_version"`

	// ID is the backup directory name. It is filled in when loading.
	ID string `json:"-"`
}

// File is a single backed up file.
type File struct {
	// Path is slash separated and relative to the target.
	Path   string      `json:"path"`
	SHA256 string      `json:"sha256"`
	Size   int64       `json:"size"`
	Mode   fs.FileMode `json:"mode"`
}

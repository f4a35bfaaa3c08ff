package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName names the configuration directory.
const AppName = "skillkit"

// Well-known names inside a skill directory.
const (
	// SkillFile is the entry-point document of every skill.
	SkillFile = "SKILL.md"
	// ReferencesDir holds optional reference documents.
	ReferencesDir = "references"
	// ScriptsDir holds optional template or helper scripts.
	ScriptsDir = "scripts"
	// AssetsDir holds optional static assets.
	AssetsDir = "assets"
)

// skillRootRel is the skills directory relative to a project or home directory.
var skillRootRel = filepath.Join(".claude", "skills")

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for directories skillkit creates
// for its own state.
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used. It is a no-op when the directory exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// Home returns the user's home directory, or "" when it cannot be determined.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ConfigHome returns the XDG config home directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigDir returns the skillkit configuration directory.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// ConfigFile returns the default configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ProjectSkillRoot returns the project-scoped skills directory for projectRoot.
func ProjectSkillRoot(projectRoot string) string {
	if projectRoot == "" {
		return ""
	}
	return filepath.Join(projectRoot, skillRootRel)
}

// UserSkillRoot returns the user-scoped skills directory (~/.claude/skills).
func UserSkillRoot() string {
	home := Home()
	if home == "" {
		return ""
	}
	return filepath.Join(home, skillRootRel)
}

// SkillRoots returns the existing skill roots for projectRoot, project first.
// A root configured explicitly (override) replaces both defaults.
func SkillRoots(projectRoot, override string) []string {
	if override != "" {
		return []string{ExpandHome(override)}
	}

	var roots []string
	for _, candidate := range []string{ProjectSkillRoot(projectRoot), UserSkillRoot()} {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			roots = append(roots, candidate)
		}
	}
	return roots
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := Home()
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Within reports whether target is base or lies inside base after cleaning.
// Both paths should be absolute or both relative.
func Within(base, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

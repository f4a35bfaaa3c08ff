// Package paths resolves the filesystem locations skillkit reads and writes.
//
// The package wraps github.com/adrg/xdg for XDG Base Directory compliance.
// On Linux and macOS the skillkit configuration lives under
// $XDG_CONFIG_HOME/skillkit (normally ~/.config/skillkit).
//
// # Skill Roots
//
// Skills are looked up in two conventional roots:
//
//	| Scope   | Location               |
//	|---------|------------------------|
//	| Project | <project>/.claude/skills |
//	| User    | ~/.claude/skills       |
//
// [SkillRoots] returns the roots that exist, project first. Each skill is a
// directory holding a [SkillFile] plus optional references/, scripts/ and
// assets/ subdirectories.
package paths

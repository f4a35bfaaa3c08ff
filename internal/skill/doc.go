// Package skill defines the in-memory model of a skill document.
//
// A skill is a directory containing a SKILL.md file. The file opens with YAML
// frontmatter (name, description and optional allowed-tools, model, license,
// compatibility and metadata keys) followed by Markdown instructions. Optional
// references/, scripts/ and assets/ subdirectories carry supporting material.
//
// Subpackages parse ([parser]), check ([validator]) and find ([discover])
// skills. Tool permission tokens are handled by [toolperm].
package skill

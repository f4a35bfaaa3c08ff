// Package config loads and validates the skillkit configuration file.
//
// The file is YAML and is searched for in the current directory and then in
// $XDG_CONFIG_HOME/skillkit. SKILLKIT_CONFIG_DIR replaces the search path
// with a single directory. Every key can also be supplied through the
// environment with the SKILLKIT_ prefix, for example SKILLKIT_MAX_LINES=300.
//
//	version: 1
//	skills_dir: .claude/skills
//	max_lines: 500
//	max_reference_lines: 1000
//	required_sections: []
//	known_models: [inherit, sonnet, opus, haiku]
//	strict: false
//	python_version: "3.11"
//	include: ["**"]
//	exclude: []
//
// [Load] validates what it reads. [Config.Set] and [Save] back the
// `skillkit config set` command.
package config

// Package flags holds state shared by the root command and the noun
// subpackages (skill, ...), which cannot import the root without a cycle.
package flags

import "github.com/thoreinstein/skillkit/internal/config"

// cfg holds the configuration loaded by the root command.
var cfg *config.Config

// Config returns the loaded configuration, or the defaults when none was
// loaded.
func Config() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// SetConfig replaces the loaded configuration. The root command calls it after
// parsing flags; tests call it to inject settings.
func SetConfig(c *config.Config) {
	cfg = c
}

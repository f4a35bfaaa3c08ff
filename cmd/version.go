// Package cmd holds the skillkit build stamp. Release builds set it with
//
//	-ldflags "-X github.com/thoreinstein/skillkit/cmd.Version=v1.2.0 ..."
package cmd

var (
	// Version is recorded in backup manifests and printed by `skillkit version`.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Package frontmatter splits and decodes YAML frontmatter in Markdown files.
//
// Frontmatter is the block between an opening "---" on the first line and
// the next line consisting only of "---". The block is decoded with
// gopkg.in/yaml.v3 and the remaining bytes are returned as the body.
// LF and CRLF files are both accepted. CRLF is normalized to LF in
// everything this package returns.
//
//	var meta struct {
//		Name        string `yaml:"name"`
//		Description string `yaml:"description"`
//	}
//	body, err := frontmatter.MustParse(f, &meta)
//	if errors.Is(err, frontmatter.ErrMissingFrontmatter) {
//		// the file does not start with "---"
//	}
//
// [Split] exposes the raw header bytes for callers that need to run their own
// checks over the YAML, such as schema validation or line accounting.
package frontmatter

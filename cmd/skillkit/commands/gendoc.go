package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/skillkit/cmd"
	"github.com/thoreinstein/skillkit/internal/errors"
)

var (
	genDocDir    string
	genDocFormat string
)

func init() {
	genDocCmd.Flags().StringVarP(&genDocDir, "dir", "d", "", "output directory for the generated files")
	genDocCmd.Flags().StringVar(&genDocFormat, "format", "markdown", "output format: markdown, man")
	_ = genDocCmd.MarkFlagRequired("dir")

	// Generated files stay stable between runs.
	rootCmd.DisableAutoGenTag = true
	rootCmd.AddCommand(genDocCmd)
}

var genDocCmd = &cobra.Command{
	Use:         "gen-doc",
	Short:       "Generate reference documentation for the CLI",
	Hidden:      true,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigCheck: "true"},
	RunE: func(c *cobra.Command, _ []string) error {
		if err := os.MkdirAll(genDocDir, 0o755); err != nil {
			return errors.NewSystemError(errors.Wrap(err, "creating output directory"), "")
		}

		var err error
		switch genDocFormat {
		case "markdown":
			err = doc.GenMarkdownTreeCustom(rootCmd, genDocDir, docFrontmatter, docLink)
		case "man":
			err = doc.GenManTree(rootCmd, &doc.GenManHeader{
				Title:   "SKILLKIT",
				Section: "1",
				Source:  "skillkit " + cmd.Version,
			}, genDocDir)
		default:
			return errors.NewUserError(errors.Newf("unknown doc format %q", genDocFormat), "Use --format markdown or --format man")
		}
		if err != nil {
			return errors.NewSystemError(errors.Wrapf(err, "generating %s docs", genDocFormat), "")
		}

		fmt.Fprintf(c.OutOrStdout(), "Documentation written to %s\n", genDocDir)
		return nil
	},
}

// docFrontmatter titles each page after its command path:
// skillkit_skill_lint.md becomes "skillkit skill lint".
func docFrontmatter(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	title := strings.ReplaceAll(base, "_", " ")
	return fmt.Sprintf("---\ntitle: %q\ndescription: %q\n---\n\n", title, "Reference for "+title)
}

func docLink(name string) string {
	return strings.ToLower(name)
}

package skill

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	"github.com/thoreinstein/skillkit/internal/skill/discover"
	"github.com/thoreinstein/skillkit/internal/skill/parser"
)

// maxListDescription caps the description column in table output.
const maxListDescription = 60

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [root]",
	Short: "List skills",
	Long: `List the skills under root, or under the default skill roots.

Only the frontmatter of each skill is read. Skills whose frontmatter does not
parse are listed with the parse error as their description.`,
	Example: `  # List skills in the default roots
  skillkit skill list

  # List skills in a directory as JSON
  skillkit skill list ./skills --json

  See Also:
    skillkit skill show  - Show skill details
    skillkit skill lint  - Validate every skill`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

// listItem is one row of skill list output.
type listItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	Dir         string `json:"dir"`
	References  int    `json:"references"`
	Scripts     int    `json:"scripts"`
	Error       string `json:"error,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	var explicit string
	if len(args) > 0 {
		explicit = args[0]
	}
	roots, err := resolveRoots(explicit)
	if err != nil {
		return err
	}
	entries, err := findAll(cmd.Context(), roots)
	if err != nil {
		return err
	}

	items := listItems(cmd, entries)
	if listJSON {
		return outputListJSON(cmd.OutOrStdout(), items)
	}
	return outputListTabular(cmd.OutOrStdout(), items)
}

func listItems(cmd *cobra.Command, entries []discover.Entry) []listItem {
	logger := logging.FromContext(cmd.Context())
	p := parser.New()

	items := make([]listItem, 0, len(entries))
	for _, e := range entries {
		item := listItem{
			Name:       e.Name,
			Dir:        e.Dir,
			References: len(e.References),
			Scripts:    len(e.Scripts),
		}
		s, err := p.ParseHeader(e.File)
		if err != nil {
			logger.Debug("unreadable skill header", "file", e.File, "error", err)
			item.Error = parseErrorMessage(err)
		} else {
			item.Description = s.Description
			item.Version = s.Version()
		}
		items = append(items, item)
	}
	return items
}

func outputListJSON(w io.Writer, items []listItem) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}

func outputListTabular(w io.Writer, items []listItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No skills found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tDESCRIPTION")
	for _, item := range items {
		desc := item.Description
		if item.Error != "" {
			desc = "(invalid: " + item.Error + ")"
		}
		version := item.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.Name, version, truncate(desc, maxListDescription))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "writing table")
	}
	fmt.Fprintf(w, "\n%d skill(s)\n", len(items))
	return nil
}

// parseErrorMessage returns the cause of a parse error without the path.
func parseErrorMessage(err error) string {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) && parseErr.Err != nil {
		return parseErr.Err.Error()
	}
	return err.Error()
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

package skill

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	"github.com/thoreinstein/skillkit/internal/skill/discover"
	"github.com/thoreinstein/skillkit/internal/skill/parser"
	"github.com/thoreinstein/skillkit/internal/skill/toolperm"
)

const defaultInstructionsPreviewLength = 200

var (
	showJSON bool
	showFull bool
	showRoot string
)

// isTerminal reports whether the picker can run. Tests replace it.
var isTerminal = func() bool {
	return logging.IsInteractive(os.Stdin, os.Stdout)
}

// pick chooses one entry interactively. Tests replace it.
var pick = pickEntry

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&showFull, "full", false, "Show complete instructions (default truncated)")
	showCmd.Flags().StringVar(&showRoot, "root", "", "skills directory to search (default: configured roots)")
	Cmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Display detailed skill information",
	Long: `Display metadata, allowed tools, supporting files and an instructions
preview for one skill.

Without a name, and when run in a terminal, an interactive fuzzy finder lists
every skill in the searched roots.`,
	Example: `  # Show details for the 'fastapi' skill
  skillkit skill show fastapi

  # Pick a skill interactively
  skillkit skill show

  # Show full instructions as JSON
  skillkit skill show fastapi --full --json

  See Also:
    skillkit skill list  - List skills
    skillkit skill edit  - Edit a skill`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

// showDetail holds skill information for display.
type showDetail struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	License       string            `json:"license,omitempty"`
	Version       string            `json:"version,omitempty"`
	Model         string            `json:"model,omitempty"`
	Compatibility []string          `json:"compatibility,omitempty"`
	AllowedTools  []string          `json:"allowed_tools,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Path          string            `json:"path"`
	Lines         int               `json:"lines"`
	References    []string          `json:"references,omitempty"`
	Scripts       []string          `json:"scripts,omitempty"`
	Assets        []string          `json:"assets,omitempty"`
	Instructions  string            `json:"instructions,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	roots, err := resolveRoots(showRoot)
	if err != nil {
		return err
	}

	var entry discover.Entry
	if len(args) == 1 {
		if entry, err = findSkill(cmd, roots, args[0]); err != nil {
			return err
		}
	} else {
		if !isTerminal() {
			return errors.NewUserError(errors.New("skill name required"), "Pass a name, or run in a terminal to pick one")
		}
		entries, err := findAll(ctx, roots)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No skills found.")
			return nil
		}
		idx, err := pick(entries)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				return nil
			}
			return errors.Wrap(err, "picking a skill")
		}
		entry = entries[idx]
	}

	detail, err := buildDetail(entry)
	if err != nil {
		return err
	}
	truncated := false
	if !showFull {
		detail.Instructions, truncated = preview(detail.Instructions, defaultInstructionsPreviewLength)
	}

	if showJSON {
		return outputShowJSON(cmd.OutOrStdout(), detail)
	}
	outputShowText(cmd.OutOrStdout(), detail, truncated)
	return nil
}

func pickEntry(entries []discover.Entry) (int, error) {
	p := parser.New()
	return fuzzyfinder.Find(
		entries,
		func(i int) string {
			return entries[i].Rel
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			s, err := p.ParseHeader(entries[i].File)
			if err != nil {
				return "Invalid frontmatter:\n" + parseErrorMessage(err)
			}
			return fmt.Sprintf("Name: %s\nPath: %s\n\nDescription:\n%s", s.Name, entries[i].File, s.Description)
		}),
	)
}

func buildDetail(e discover.Entry) (*showDetail, error) {
	s, err := parser.New().ParseFile(e.File)
	if err != nil {
		return nil, errors.NewUserError(err, "Run: skillkit skill validate "+e.Dir)
	}

	tools := []string(s.AllowedTools)
	if perms, err := toolperm.New().ParseTokens(s.AllowedTools); err == nil {
		tools = make([]string, len(perms))
		for i, p := range perms {
			tools[i] = p.String()
		}
	}

	var metadata map[string]string
	for k, v := range s.Metadata {
		if k == "version" {
			continue
		}
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata[k] = v
	}

	return &showDetail{
		Name:          s.Name,
		Description:   s.Description,
		License:       s.License,
		Version:       s.Version(),
		Model:         s.Model,
		Compatibility: s.Compatibility,
		AllowedTools:  tools,
		Metadata:      metadata,
		Path:          e.File,
		Lines:         s.Lines,
		References:    e.References,
		Scripts:       e.Scripts,
		Assets:        e.Assets,
		Instructions:  s.Instructions,
	}, nil
}

// preview cuts s to at most n runes and reports whether it cut anything.
func preview(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

func outputShowJSON(w io.Writer, d *showDetail) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}

func outputShowText(w io.Writer, d *showDetail, truncated bool) {
	fmt.Fprintf(w, "Skill: %s\n", d.Name)
	fmt.Fprintf(w, "Description: %s\n", d.Description)
	if d.Version != "" {
		fmt.Fprintf(w, "Version: %s\n", d.Version)
	}
	if d.License != "" {
		fmt.Fprintf(w, "License: %s\n", d.License)
	}
	if d.Model != "" {
		fmt.Fprintf(w, "Model: %s\n", d.Model)
	}
	if len(d.Compatibility) > 0 {
		fmt.Fprintf(w, "Compatibility: %s\n", strings.Join(d.Compatibility, ", "))
	}
	fmt.Fprintf(w, "Path: %s (%d lines)\n", d.Path, d.Lines)

	if len(d.AllowedTools) > 0 {
		fmt.Fprintln(w, "\nAllowed Tools:")
		for _, t := range d.AllowedTools {
			fmt.Fprintf(w, "  - %s\n", t)
		}
	}

	if len(d.Metadata) > 0 {
		fmt.Fprintln(w, "\nMetadata:")
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, d.Metadata[k])
		}
	}

	writeFileGroup(w, "References", d.References)
	writeFileGroup(w, "Scripts", d.Scripts)
	writeFileGroup(w, "Assets", d.Assets)

	if d.Instructions != "" {
		fmt.Fprintln(w, "\nInstructions:")
		fmt.Fprintln(w, d.Instructions)
		if truncated {
			fmt.Fprintln(w, "\n(use --full to see the complete instructions)")
		}
	}
}

func writeFileGroup(w io.Writer, title string, files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, f := range files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

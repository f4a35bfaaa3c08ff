// Package skill implements the skill subcommands: validate, lint, list,
// show, init and edit.
package skill

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
	"github.com/thoreinstein/skillkit/internal/cli/prompt"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	"github.com/thoreinstein/skillkit/internal/paths"
	"github.com/thoreinstein/skillkit/internal/skill/discover"
	skillvalidator "github.com/thoreinstein/skillkit/internal/skill/validator"
)

// Cmd is the skill noun command. The root command registers it.
var Cmd = &cobra.Command{
	Use:   "skill",
	Short: "Validate, lint and author skills",
	Long: `Work with agent skills: directories holding a SKILL.md file made of YAML
frontmatter (name, description, allowed-tools, model) and Markdown
instructions, optionally with references/, scripts/ and assets/.

Without an explicit root, skills are looked up in the configured skills_dir,
or in .claude/skills of the current directory and of your home directory.`,
}

// resolveRoots returns the roots to search: explicit when given, otherwise
// the configured or default skill roots that exist.
func resolveRoots(explicit string) ([]string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(paths.ExpandHome(explicit))
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", explicit)
		}
		return []string{abs}, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}
	roots := paths.SkillRoots(wd, flags.Config().SkillsDir)
	if len(roots) == 0 {
		return nil, errors.NewUserError(
			errors.Wrap(errors.ErrNotFound, "no skills directory"),
			"Pass a directory, or run: skillkit config set skills_dir <path>",
		)
	}
	return roots, nil
}

// newValidator builds a skill validator from the loaded configuration.
// strict adds to, and never relaxes, the configured strictness.
func newValidator(strict bool) *skillvalidator.Validator {
	cfg := flags.Config()
	return skillvalidator.New(
		skillvalidator.WithStrict(strict || cfg.Strict),
		skillvalidator.WithMaxLines(cfg.MaxLines),
		skillvalidator.WithMaxReferenceLines(cfg.MaxReferenceLines),
		skillvalidator.WithRequiredSections(cfg.RequiredSections),
		skillvalidator.WithKnownModels(cfg.KnownModels),
	)
}

// newDiscoverer builds a discoverer from the configured filters plus extra.
func newDiscoverer(ctx context.Context, include, exclude []string) *discover.Discoverer {
	cfg := flags.Config()
	return discover.New(
		discover.WithInclude(append(append([]string(nil), cfg.Include...), include...)...),
		discover.WithExclude(append(append([]string(nil), cfg.Exclude...), exclude...)...),
		discover.WithLogger(logging.FromContext(ctx)),
	)
}

// findAll discovers the skills under every root. A root that holds no skills
// is not an error.
func findAll(ctx context.Context, roots []string) ([]discover.Entry, error) {
	d := newDiscoverer(ctx, nil, nil)
	var all []discover.Entry
	for _, root := range roots {
		entries, err := d.Find(root)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.NewUserError(err, "Check the path, or run: skillkit doctor")
			}
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

// findSkill returns the skill named name across roots. When several roots
// hold a skill of that name, the user picks one on a terminal; otherwise the
// first, from the project root, wins.
func findSkill(cmd *cobra.Command, roots []string, name string) (discover.Entry, error) {
	ctx := cmd.Context()
	entries, err := findAll(ctx, roots)
	if err != nil {
		return discover.Entry{}, err
	}
	var matches []discover.Entry
	for _, e := range entries {
		if e.Name == name {
			matches = append(matches, e)
		}
	}
	switch {
	case len(matches) == 0:
		return discover.Entry{}, errors.NewUserError(
			errors.Wrapf(errors.ErrNotFound, "skill %q", name),
			"Run: skillkit skill list",
		)
	case len(matches) == 1 || !isTerminal():
		if len(matches) > 1 {
			logging.FromContext(ctx).Debug("skill name is ambiguous, using the first", "name", name, "dir", matches[0].Dir)
		}
		return matches[0], nil
	}

	chosen, err := prompt.NewSelectorWithIO(cmd.InOrStdin(), cmd.OutOrStdout()).SelectSkill(name, matches)
	if err != nil {
		return discover.Entry{}, errors.NewUserError(err, "Pass --root to pick the skills directory")
	}
	return *chosen, nil
}

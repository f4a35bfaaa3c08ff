package skill

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/paths"
	"github.com/thoreinstein/skillkit/internal/skill"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
	"github.com/thoreinstein/skillkit/pkg/frontmatter"
)

// maxNameLength is the longest accepted skill name.
const maxNameLength = 64

var (
	initName         string
	initDescription  string
	initLicense      string
	initVersion      string
	initAuthor       string
	initModel        string
	initAllowedTools string
	initDirs         string
	initForce        bool
)

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "skill name (default: directory name)")
	initCmd.Flags().StringVarP(&initDescription, "description", "d", "", "when an agent should use the skill")
	initCmd.Flags().StringVar(&initLicense, "license", "", "license (e.g. MIT)")
	initCmd.Flags().StringVar(&initVersion, "version", "", "skill version")
	initCmd.Flags().StringVar(&initAuthor, "author", "", "skill author")
	initCmd.Flags().StringVar(&initModel, "model", "", "model alias (e.g. inherit, sonnet)")
	initCmd.Flags().StringVar(&initAllowedTools, "allowed-tools", "", "space or comma separated allowed tools")
	initCmd.Flags().StringVar(&initDirs, "dirs", "", "comma-separated optional directories to create (references, scripts, assets)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing SKILL.md")
	Cmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a new skill",
	Long: `Create a skill directory with a SKILL.md template.

If [path] is provided, the skill is created in that directory. Otherwise a
directory named after the skill is created in the current directory.

Values not given as flags are prompted for. When standard input is not
interactive the defaults are used.`,
	Example: `  # Prompt for everything
  skillkit skill init

  # Non-interactive creation with supporting directories
  skillkit skill init ./skills/fastapi --name fastapi \
    --description "Build FastAPI services. Use when creating REST APIs." \
    --allowed-tools "Read Write Bash(pytest:*)" --dirs references,scripts

  See Also:
    skillkit skill validate - Validate a skill
    skillkit skill edit     - Edit a skill`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// nameRegex matches lowercase alphanumeric names with single hyphens.
var nameRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// nameSanitizer matches characters that are not allowed in a skill name.
var nameSanitizer = regexp.MustCompile(`[^a-z0-9-]+`)

// knownDirs are the optional directories a skill may carry.
var knownDirs = []string{paths.ReferencesDir, paths.ScriptsDir, paths.AssetsDir}

const skillBody = `# %s

## Instructions

Describe, step by step, what the agent should do when this skill applies.

## Guidelines

- Guideline 1
- Guideline 2

## Examples

When the user asks to [do something], you should...
`

func sanitizeDefaultName(name string) string {
	sanitized := strings.ToLower(name)
	sanitized = nameSanitizer.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	for strings.Contains(sanitized, "--") {
		sanitized = strings.ReplaceAll(sanitized, "--", "-")
	}
	if sanitized == "" || !nameRegex.MatchString(sanitized) {
		return "new-skill"
	}
	return sanitized
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	defaultName := "my-skill"
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return errors.Wrap(err, "resolving path")
		}
		defaultName = sanitizeDefaultName(filepath.Base(abs))
	}

	name := initName
	if name == "" {
		name = askLine(out, scanner, "Skill Name", defaultName)
	}
	if err := validateName(name); err != nil {
		return errors.NewUserError(err, "Use lowercase letters, digits and single hyphens, e.g. fastapi-testing")
	}

	target := name
	if len(args) > 0 {
		target = args[0]
	}
	dir, err := filepath.Abs(target)
	if err != nil {
		return errors.Wrap(err, "resolving path")
	}
	if filepath.Base(dir) != name {
		fmt.Fprintf(out, "Note: directory %q differs from skill name %q; validation will flag it.\n",
			filepath.Base(dir), name)
	}

	skillFile := filepath.Join(dir, paths.SkillFile)
	if _, err := os.Stat(skillFile); err == nil && !initForce {
		return errors.NewUserError(errors.Newf("%s already exists", skillFile), "Use --force to overwrite it")
	}

	s := skill.Skill{Name: name, Description: initDescription, License: initLicense, Model: initModel}
	if s.Description == "" {
		s.Description = askLine(out, scanner, "Description", "Describe what the skill does. Use when ...")
	}
	if s.License == "" {
		s.License = askLine(out, scanner, "License", "MIT")
	}
	version := initVersion
	if version == "" {
		version = askLine(out, scanner, "Version", "1.0.0")
	}
	author := initAuthor
	if author == "" {
		author = askLine(out, scanner, "Author", "")
	}
	tools := initAllowedTools
	if tools == "" {
		tools = askLine(out, scanner, "Allowed Tools", "Read Grep Glob")
	}
	s.AllowedTools = skill.ToolList(splitTools(tools))

	if version != "" || author != "" {
		s.Metadata = map[string]string{}
		if version != "" {
			s.Metadata["version"] = version
		}
		if author != "" {
			s.Metadata["author"] = author
		}
	}

	dirs, err := selectedDirs(out, scanner)
	if err != nil {
		return err
	}

	content, err := frontmatter.Format(&s, fmt.Sprintf(skillBody, titleCase(name)))
	if err != nil {
		return errors.Wrap(err, "generating template")
	}

	if err := paths.EnsureDir(dir, 0o755); err != nil {
		return errors.NewSystemError(errors.Wrap(err, "creating skill directory"), "")
	}
	if err := fileutil.AtomicWriteFile(skillFile, content, 0o644); err != nil {
		return errors.NewSystemError(errors.Wrap(err, "writing SKILL.md"), "")
	}
	for _, d := range dirs {
		full := filepath.Join(dir, d)
		if err := paths.EnsureDir(full, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", d)
		}
		if err := os.WriteFile(filepath.Join(full, ".keep"), nil, 0o644); err != nil {
			return errors.Wrapf(err, "creating .keep in %s", d)
		}
	}

	fmt.Fprintf(out, "✓ Skill '%s' created at %s\n", name, skillFile)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Next steps:")
	fmt.Fprintf(out, "    1. Edit %s with your skill's instructions\n", skillFile)
	fmt.Fprintf(out, "    2. Run: skillkit skill validate %s\n", dir)
	return nil
}

// selectedDirs returns the optional directories from --dirs, or asks for
// each known one.
func selectedDirs(out io.Writer, scanner *bufio.Scanner) ([]string, error) {
	if initDirs == "" {
		fmt.Fprintln(out, "\nOptional Directories:")
		var dirs []string
		for _, d := range knownDirs {
			if askBool(out, scanner, fmt.Sprintf("Create '%s' directory?", d), false) {
				dirs = append(dirs, d)
			}
		}
		return dirs, nil
	}

	var dirs []string
	for _, d := range strings.Split(initDirs, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !isKnownDir(d) {
			return nil, errors.NewUserError(errors.Newf("unknown directory %q", d),
				"Choose from: "+strings.Join(knownDirs, ", "))
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}

func isKnownDir(d string) bool {
	for _, k := range knownDirs {
		if d == k {
			return true
		}
	}
	return false
}

// splitTools accepts the same separators as the allowed-tools field.
func splitTools(s string) []string {
	var out []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func titleCase(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func askLine(out io.Writer, scanner *bufio.Scanner, label, def string) string {
	fmt.Fprintf(out, "%s", label)
	if def != "" {
		fmt.Fprintf(out, " [%s]", def)
	}
	fmt.Fprint(out, ": ")

	if !scanner.Scan() {
		fmt.Fprintln(out)
		return def
	}
	input := strings.TrimSpace(scanner.Text())
	if input == "" {
		return def
	}
	return input
}

func askBool(out io.Writer, scanner *bufio.Scanner, label string, def bool) bool {
	defStr := "y/N"
	if def {
		defStr = "Y/n"
	}
	fmt.Fprintf(out, "%s [%s]: ", label, defStr)

	if !scanner.Scan() {
		fmt.Fprintln(out)
		return def
	}
	input := strings.TrimSpace(strings.ToLower(scanner.Text()))
	if input == "" {
		return def
	}
	return input == "y" || input == "yes"
}

// validateName checks that name is usable as a skill name.
func validateName(name string) error {
	if name == "" {
		return errors.ErrMissingName
	}
	if len(name) > maxNameLength {
		return errors.Newf("skill name must be at most %d characters (got %d)", maxNameLength, len(name))
	}
	if !nameRegex.MatchString(name) {
		return errors.Newf("invalid skill name %q: must be lowercase alphanumeric with single hyphens", name)
	}
	return nil
}

// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/skill/discover"
)

// Sentinel errors for skill selection.
var (
	ErrNoSkills           = errors.New("no skills to select from")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Selector asks the user to choose between skills that share a name.
type Selector struct {
	reader io.Reader
	writer io.Writer
}

// NewSelector creates a new Selector using stdin and stdout.
func NewSelector() *Selector {
	return &Selector{
		reader: os.Stdin,
		writer: os.Stdout,
	}
}

// NewSelectorWithIO creates a Selector with custom reader and writer.
func NewSelectorWithIO(r io.Reader, w io.Writer) *Selector {
	return &Selector{
		reader: r,
		writer: w,
	}
}

// SelectSkill prompts the user to choose from entries found for name.
//
// Returns:
//   - ErrNoSkills if the list is empty
//   - The entry if only one exists (auto-selects without prompting)
//   - The selected entry based on user input, the first on empty input
//   - ErrInvalidSelection if the selection is out of range
//   - ErrSelectionCancelled if input is EOF (e.g., Ctrl+D)
func (s *Selector) SelectSkill(name string, entries []discover.Entry) (*discover.Entry, error) {
	if len(entries) == 0 {
		return nil, ErrNoSkills
	}
	if len(entries) == 1 {
		return &entries[0], nil
	}

	fmt.Fprintf(s.writer, "Multiple skills named %q:\n", name)
	for i, e := range entries {
		fmt.Fprintf(s.writer, "  [%d] %s\n", i+1, e.Dir)
	}
	fmt.Fprintf(s.writer, "Select [1]: ")

	reader := bufio.NewReader(s.reader)
	input, err := reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "reading selection")
		}
		// A final line without a newline still counts.
		if strings.TrimSpace(input) == "" {
			return nil, ErrSelectionCancelled
		}
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return &entries[0], nil
	}

	selection, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}
	if selection < 1 || selection > len(entries) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", selection, len(entries))
	}
	return &entries[selection-1], nil
}

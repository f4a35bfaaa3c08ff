package frontmatter

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Sentinel errors.
var (
	// ErrMissingFrontmatter means the content does not open with "---".
	ErrMissingFrontmatter = errors.New("missing frontmatter")
	// ErrUnclosedFrontmatter means no closing "---" line was found.
	ErrUnclosedFrontmatter = errors.New("missing closing frontmatter delimiter")
	// ErrInvalidYAML wraps decoder failures on the frontmatter block.
	ErrInvalidYAML = errors.New("invalid YAML in frontmatter")
)

const delimiter = "---"

var bom = []byte{0xEF, 0xBB, 0xBF}

// Document is content split at its frontmatter delimiters.
type Document struct {
	// Header is the YAML between the delimiters, without them.
	Header []byte
	// Body is everything after the closing delimiter line.
	Body []byte
	// BodyLine is the 1-based line number on which Body starts.
	BodyLine int
}

// Split separates content into header and body.
// It returns ErrMissingFrontmatter when the first line is not "---" and
// ErrUnclosedFrontmatter when the block never closes.
func Split(content []byte) (Document, error) {
	content = bytes.TrimPrefix(content, bom)
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	first, rest, found := bytes.Cut(content, []byte("\n"))
	if strings.TrimRight(string(first), " \t") != delimiter {
		return Document{Body: content, BodyLine: 1}, ErrMissingFrontmatter
	}
	if !found {
		return Document{}, ErrUnclosedFrontmatter
	}

	line := 2
	offset := 0
	for offset <= len(rest) {
		end := bytes.IndexByte(rest[offset:], '\n')
		var current []byte
		next := len(rest)
		if end < 0 {
			current = rest[offset:]
		} else {
			current = rest[offset : offset+end]
			next = offset + end + 1
		}

		if strings.TrimRight(string(current), " \t") == delimiter {
			return Document{
				Header:   rest[:offset],
				Body:     rest[next:],
				BodyLine: line + 1,
			}, nil
		}
		if end < 0 {
			break
		}
		offset = next
		line++
	}
	return Document{}, ErrUnclosedFrontmatter
}

// Parse decodes optional frontmatter into matter and returns the body.
// Content without a complete frontmatter block is returned whole and matter
// is left untouched.
func Parse[T any](r io.Reader, matter *T) ([]byte, error) {
	return parse(r, matter, false)
}

// MustParse is Parse for files where frontmatter is required.
func MustParse[T any](r io.Reader, matter *T) ([]byte, error) {
	return parse(r, matter, true)
}

// ParseFile reads path and decodes its required frontmatter.
func ParseFile[T any](path string) (T, []byte, error) {
	var matter T
	f, err := os.Open(path)
	if err != nil {
		return matter, nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	body, err := MustParse(f, &matter)
	return matter, body, err
}

func parse[T any](r io.Reader, matter *T, required bool) ([]byte, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading content")
	}

	doc, err := Split(content)
	switch {
	case errors.Is(err, ErrMissingFrontmatter) && !required:
		return doc.Body, nil
	case errors.Is(err, ErrUnclosedFrontmatter) && !required:
		return content, nil
	case err != nil:
		return nil, err
	}

	if err := Decode(doc.Header, matter); err != nil {
		return nil, err
	}
	return doc.Body, nil
}

// Decode unmarshals a raw header into matter, wrapping failures in
// ErrInvalidYAML. An empty header leaves matter untouched.
func Decode(header []byte, matter any) error {
	if len(bytes.TrimSpace(header)) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(header, matter); err != nil {
		return &yamlError{err: err}
	}
	return nil
}

// yamlError matches ErrInvalidYAML and unwraps to the decoder error, so both
// errors.Is(err, ErrInvalidYAML) and errors.As with a *yaml.TypeError work.
type yamlError struct {
	err error
}

func (e *yamlError) Error() string {
	return ErrInvalidYAML.Error() + ": " + e.err.Error()
}

func (e *yamlError) Unwrap() error { return e.err }

func (e *yamlError) Is(target error) bool { return target == ErrInvalidYAML }

// ParseHeader decodes frontmatter without reading past the closing
// delimiter. Content without frontmatter is not an error.
func ParseHeader(r io.Reader, matter any) error {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return scanner.Err()
	}
	first := strings.TrimPrefix(scanner.Text(), string(bom))
	if strings.TrimSpace(first) != delimiter {
		return nil
	}

	var buf bytes.Buffer
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimRight(line, " \t") == delimiter {
			return Decode(buf.Bytes(), matter)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scanning frontmatter")
	}
	return ErrUnclosedFrontmatter
}

// Format renders matter as YAML between delimiters, followed by a blank line
// and body. Body gets a trailing newline when it lacks one.
func Format(matter any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(matter); err != nil {
		return nil, errors.Wrap(err, "encoding frontmatter")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding frontmatter")
	}

	buf.WriteString(delimiter + "\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

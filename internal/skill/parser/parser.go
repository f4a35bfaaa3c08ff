// Package parser reads SKILL.md files into [skill.Skill] values.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thoreinstein/skillkit/internal/skill"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
	"github.com/thoreinstein/skillkit/pkg/frontmatter"
)

// ParseError is returned for any SKILL.md that cannot be read or decoded.
// Err is the underlying cause, such as frontmatter.ErrMissingFrontmatter.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "parsing skill: " + e.Err.Error()
	}
	return fmt.Sprintf("parsing skill %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser handles SKILL.md parsing.
type Parser struct{}

// New creates a new Parser instance.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses the skill file at path.
func (p *Parser) ParseFile(path string) (*skill.Skill, error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return p.ParseBytes(data, path)
}

// Parse reads r fully and parses it. path is recorded on the result and
// used in errors.
func (p *Parser) Parse(r io.Reader, path string) (*skill.Skill, error) {
	data, err := io.ReadAll(io.LimitReader(r, fileutil.MaxFileSize+1))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if len(data) > fileutil.MaxFileSize {
		return nil, &ParseError{Path: path, Err: fileutil.ErrFileTooLarge}
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses SKILL.md content. Frontmatter is required.
func (p *Parser) ParseBytes(data []byte, path string) (*skill.Skill, error) {
	doc, err := frontmatter.Split(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var s skill.Skill
	if err := frontmatter.Decode(doc.Header, &s); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	s.Body = string(doc.Body)
	s.Instructions = strings.TrimSpace(s.Body)
	s.Path = path
	s.Lines = fileutil.CountLines(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	s.BodyLine = doc.BodyLine
	return &s, nil
}

// ParseHeader decodes only the frontmatter of the file at path, which is
// enough for listings.
func (p *Parser) ParseHeader(path string) (*skill.Skill, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	var s skill.Skill
	if err := frontmatter.ParseHeader(f, &s); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	s.Path = path
	return &s, nil
}

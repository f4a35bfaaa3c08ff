// Package toolperm parses allowed-tools permission tokens such as
// "Read", "Bash(git:*)" and "mcp__github__create_issue".
package toolperm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Permission is one parsed allowed-tools token.
type Permission struct {
	// Name is the tool name, e.g. "Read" or "Bash".
	Name string `json:"name"`

	// Scope is the text between parentheses, e.g. "git:*". Empty when absent.
	Scope string `json:"scope,omitempty"`
}

// String returns the token form of the permission.
func (p Permission) String() string {
	if p.Scope == "" {
		return p.Name
	}
	return p.Name + "(" + p.Scope + ")"
}

// IsMCP reports whether the permission names an MCP server tool.
func (p Permission) IsMCP() bool {
	return strings.HasPrefix(p.Name, mcpPrefix)
}

const mcpPrefix = "mcp__"

// ToolPermError describes a malformed allowed-tools token. Token is empty
// when the token itself was blank.
type ToolPermError struct {
	Token   string
	Message string
}

func (e *ToolPermError) Error() string {
	if e.Token == "" {
		return "tool permission error: " + e.Message
	}
	return fmt.Sprintf("invalid tool permission %q: %s", e.Token, e.Message)
}

var (
	// builtinRe matches PascalCase tool names with an optional scope.
	builtinRe = regexp.MustCompile(`^([A-Z][a-zA-Z0-9]*)(?:\(([^()]+)\))?$`)
	// mcpRe matches mcp__<server>__<tool> names, which take no scope.
	mcpRe = regexp.MustCompile(`^mcp__[A-Za-z0-9_-]+$`)
)

// Split breaks an allowed-tools string into tokens. Spaces and commas
// separate tokens except inside parentheses, so "Bash(git add:*)" stays
// whole. Unbalanced parentheses are kept in the token for Parse to reject.
func Split(s string) []string {
	var (
		tokens []string
		cur    strings.Builder
		depth  int
	)
	flush := func() {
		if tok := strings.TrimSpace(cur.String()); tok != "" {
			tokens = append(tokens, tok)
		}
		cur.Reset()
	}

	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return tokens
}

// Parser parses allowed-tools values.
type Parser struct{}

// New creates a new Parser instance.
func New() *Parser {
	return &Parser{}
}

// Parse splits allowedTools and parses every token. Empty input yields an
// empty slice.
func (p *Parser) Parse(allowedTools string) ([]Permission, error) {
	return p.ParseTokens(Split(allowedTools))
}

// ParseTokens parses pre-split tokens, stopping at the first bad one.
func (p *Parser) ParseTokens(tokens []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(tokens))
	for _, token := range tokens {
		perm, err := p.ParseSingle(token)
		if err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

// ParseSingle parses one token.
func (p *Parser) ParseSingle(token string) (Permission, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Permission{}, &ToolPermError{Message: "empty tool permission"}
	}

	if strings.HasPrefix(token, mcpPrefix) {
		if !mcpRe.MatchString(token) {
			return Permission{}, &ToolPermError{
				Token:   token,
				Message: "MCP tool names must look like mcp__server__tool and take no scope",
			}
		}
		return Permission{Name: token}, nil
	}

	m := builtinRe.FindStringSubmatch(token)
	if m == nil {
		msg := "tool name must be PascalCase (e.g. Read, Write, Bash) with an optional (scope)"
		if strings.Count(token, "(") != strings.Count(token, ")") {
			msg = "unbalanced parentheses in scope"
		} else if strings.HasSuffix(token, "()") {
			msg = "scope cannot be empty"
		}
		return Permission{}, &ToolPermError{Token: token, Message: msg}
	}

	return Permission{Name: m[1], Scope: strings.TrimSpace(m[2])}, nil
}

// Format joins permissions back into a space-delimited string.
func (p *Parser) Format(perms []Permission) string {
	parts := make([]string, len(perms))
	for i, perm := range perms {
		parts[i] = perm.String()
	}
	return strings.Join(parts, " ")
}

package validator

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// heading is an ATX or setext heading found in a skill body.
type heading struct {
	Level int
	Text  string
	Line  int
}

// link is a link or image destination found in a skill body.
type link struct {
	Dest string
	Line int
}

// outline holds what the validator needs from a parsed body.
type outline struct {
	Headings []heading
	Links    []link
}

// scanBody parses body as CommonMark. lineOffset is added to every line
// number so issues point into the original file.
func scanBody(body []byte, lineOffset int) outline {
	doc := markdown.Parser().Parse(text.NewReader(body))

	var out outline
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			out.Headings = append(out.Headings, heading{
				Level: node.Level,
				Text:  strings.TrimSpace(plainText(node, body)),
				Line:  blockLine(node, body) + lineOffset,
			})
		case *ast.Link:
			out.Links = append(out.Links, link{Dest: string(node.Destination), Line: blockLine(node, body) + lineOffset})
		case *ast.Image:
			out.Links = append(out.Links, link{Dest: string(node.Destination), Line: blockLine(node, body) + lineOffset})
		}
		return ast.WalkContinue, nil
	})
	return out
}

// plainText concatenates the text segments under n.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.CodeSpan:
			sb.WriteString(plainText(t, src))
		default:
			sb.WriteString(plainText(c, src))
		}
	}
	return sb.String()
}

// blockLine returns the 0-based line of the nearest enclosing block with
// source lines. Inline nodes carry no position of their own.
func blockLine(n ast.Node, src []byte) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() != ast.TypeBlock {
			continue
		}
		if lines := cur.Lines(); lines != nil && lines.Len() > 0 {
			return bytes.Count(src[:lines.At(0).Start], []byte("\n"))
		}
	}
	return 0
}

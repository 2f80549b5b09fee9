package schema

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Summary returns the first paragraph of a markdown description as a single
// line of plain text, suitable for one-line help output.
func Summary(description string) string {
	content := []byte(description)
	doc := goldmark.New().Parser().Parse(text.NewReader(content))

	var summary string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if summary == "" {
				summary = plainText(node, content)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			summary = plainText(node, content)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(summary), " ")
}

func plainText(node ast.Node, content []byte) string {
	var sb strings.Builder
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if textNode, ok := n.(*ast.Text); ok {
			sb.Write(textNode.Segment.Value(content))
			if textNode.SoftLineBreak() || textNode.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			walk(child)
		}
	}
	walk(node)
	return sb.String()
}

package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	markdown   = goldmark.New()
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// PlainText renders markdown as readable text: emphasis, code spans, headings
// and links keep only their text, code blocks keep their contents, and list
// items keep a simple marker.
func PlainText(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				value := node.Segment.Value(source)
				if node.IsRaw() {
					b.Write(value)
				} else {
					b.Write(resolve(value))
				}
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.CodeSpan:
			if entering {
				for c := node.FirstChild(); c != nil; c = c.NextSibling() {
					switch child := c.(type) {
					case *ast.Text:
						b.Write(child.Segment.Value(source))
					case *ast.String:
						b.Write(child.Value)
					}
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
			} else {
				endBlock(&b)
			}
		case *ast.ListItem:
			if entering {
				b.WriteString(listMarker(node))
			}
		case *ast.TextBlock:
			if !entering {
				endLine(&b)
			}
		case *ast.Paragraph, *ast.Heading, *ast.List:
			if !entering {
				endBlock(&b)
			}
		case *ast.ThematicBreak:
			if entering {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})

	out := blankLines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

// resolve drops backslash escapes and decodes character references.
func resolve(value []byte) []byte {
	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	return util.ResolveEntityNames(value)
}

func endLine(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

// endBlock leaves one blank line after a block.
func endBlock(b *strings.Builder) {
	endLine(b)
	b.WriteByte('\n')
}

func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	idx := list.Start
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		idx++
	}
	return strconv.Itoa(idx) + ". "
}

package persona

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// FlattenMarkdown renders markdown to plain text for voice playback and
// chat bubbles: emphasis markers, headings, code fences, and link syntax
// are dropped while the visible text and paragraph breaks survive. Text
// without markdown syntax is returned unchanged.
func FlattenMarkdown(src string) string {
	if !strings.ContainsAny(src, "*_#`[>") {
		return src
	}

	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}

		case *ast.AutoLink:
			if entering {
				sb.Write(node.URL(source))
			}

		case *ast.FencedCodeBlock:
			if entering {
				writeBlockLines(&sb, source, node.Lines())
			}
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			if entering {
				writeBlockLines(&sb, source, node.Lines())
			}
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			if entering {
				sb.WriteString("- ")
			}
		}

		if !entering {
			// Paragraph breaks survive as blank lines; other blocks end
			// with a single newline. ListItem adds nothing — its inner
			// block already terminated the line.
			switch n.Kind() {
			case ast.KindParagraph:
				sb.WriteString("\n\n")
			case ast.KindHeading, ast.KindTextBlock, ast.KindList,
				ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindBlockquote:
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	out := strings.ReplaceAll(sb.String(), "\n\n\n", "\n\n")
	return strings.TrimSpace(out)
}

func writeBlockLines(sb *strings.Builder, source []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
}

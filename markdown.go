package pdfconvert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bmharper/pdfconvert/internal/docx"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownRequest describes a markdown to DOCX run.
type MarkdownRequest struct {
	Options
	MarkdownPath string
	OutputPath   string
	Title        string // Document title, also written as the first paragraph
	Author       string
	Page         docx.PageSetup // docx.Letter() when zero
	TOCLevels    int            // Heading levels in the table of contents, DefaultTOCLevels when 0, none when negative
}

// DefaultTOCLevels lists level 1 and 2 headings in the table of contents.
const DefaultTOCLevels = 2

// ConvertMarkdown renders a markdown file into a DOCX document.
func ConvertMarkdown(ctx context.Context, req MarkdownRequest) Result {
	log := req.log().WithField("markdown", req.MarkdownPath)
	src, err := os.ReadFile(req.MarkdownPath)
	if err != nil {
		return FailedResult(0, eris.Wrapf(err, "read %s", req.MarkdownPath))
	}
	page := req.Page
	if page.Width <= 0 || page.Height <= 0 {
		page = docx.Letter()
	}
	out := docx.New(page)
	out.Title = req.Title
	out.Author = req.Author
	if req.Title != "" {
		out.AddStyledParagraph(req.Title, "Title")
	}
	levels := req.TOCLevels
	if levels == 0 {
		levels = DefaultTOCLevels
	}
	if levels > 0 {
		if entries := MarkdownHeadings(src, levels); len(entries) != 0 {
			out.AddTOC(levels, entries)
		}
	}
	RenderMarkdown(src, out)
	if err := ctx.Err(); err != nil {
		return CancelledResult(0, err)
	}
	req.progress().Progress(1, 1, "Rendered markdown")
	if err := out.Save(req.OutputPath); err != nil {
		return FailedResult(0, err)
	}
	log.Infof("Saved %v", req.OutputPath)
	return succeeded(1, req.OutputPath)
}

// RenderMarkdown appends the blocks of a markdown document to out.
func RenderMarkdown(source []byte, out *docx.Document) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	w := &markdownWriter{src: source, out: out}
	w.blocks(doc, 0)
}

// MarkdownHeadings lists the headings of a markdown document down to
// maxLevel, in document order.
func MarkdownHeadings(source []byte, maxLevel int) []docx.TOCEntry {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	w := &markdownWriter{src: source}
	var entries []docx.TOCEntry
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		if h.Level <= maxLevel {
			entries = append(entries, docx.TOCEntry{Text: w.inline(h), Level: h.Level})
		}
		return ast.WalkSkipChildren, nil
	})
	return entries
}

type markdownWriter struct {
	src []byte
	out *docx.Document
}

func (w *markdownWriter) blocks(node ast.Node, depth int) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		w.block(child, depth)
	}
}

func (w *markdownWriter) block(node ast.Node, depth int) {
	switch n := node.(type) {
	case *ast.Heading:
		level := min(max(n.Level, 1), 3)
		w.out.AddStyledParagraph(w.inline(n), fmt.Sprintf("Heading%d", level))
	case *ast.Paragraph, *ast.TextBlock:
		w.out.AddParagraph(w.inline(n))
	case *ast.List:
		w.list(n, depth)
	case *ast.FencedCodeBlock:
		w.code(n)
	case *ast.CodeBlock:
		w.code(n)
	case *ast.Blockquote:
		w.blocks(n, depth)
	case *ast.ThematicBreak:
		w.out.AddPageBreak()
	}
}

func (w *markdownWriter) list(n *ast.List, depth int) {
	number := n.Start
	indent := strings.Repeat("    ", depth)
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", number)
			number++
		}
		first := true
		for block := item.FirstChild(); block != nil; block = block.NextSibling() {
			switch b := block.(type) {
			case *ast.List:
				w.list(b, depth+1)
			case *ast.Paragraph, *ast.TextBlock:
				prefix := indent + "  "
				if first {
					prefix = indent + marker
				}
				w.out.AddStyledParagraph(prefix+w.inline(b), "ListBullet")
			default:
				w.block(b, depth+1)
			}
			first = false
		}
	}
}

func (w *markdownWriter) code(n ast.Node) {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(w.src))
	}
	w.out.AddStyledParagraph(strings.TrimRight(buf.String(), "\n"), "Code")
}

// inline flattens the inline children of n to plain text. Hard line breaks
// become '\n', soft ones a space.
func (w *markdownWriter) inline(n ast.Node) string {
	var sb strings.Builder
	w.inlineTo(&sb, n)
	return strings.TrimSpace(sb.String())
}

func (w *markdownWriter) inlineTo(sb *strings.Builder, n ast.Node) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(w.src))
			if c.HardLineBreak() {
				sb.WriteByte('\n')
			} else if c.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(c.Value)
		case *ast.AutoLink:
			sb.Write(c.Label(w.src))
		case *ast.Link:
			w.inlineTo(sb, c)
			if dest := string(c.Destination); dest != "" {
				fmt.Fprintf(sb, " (%s)", dest)
			}
		case *ast.RawHTML:
		default:
			w.inlineTo(sb, c)
		}
	}
}

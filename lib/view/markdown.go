// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func markdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParserInstance
}

// RenderMarkdown renders a module or script description for the
// terminal. Paragraphs are reflowed to width; fenced code is
// highlighted. Unsupported constructs fall back to their text.
func RenderMarkdown(input string, styles *Styles, width int) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if styles == nil {
		styles = DefaultStyles()
	}
	if width < 10 {
		width = 10
	}
	source := []byte(input)
	document := markdownParser().Parser().Parse(text.NewReader(source))

	renderer := &markdownRenderer{source: source, styles: styles, width: width}
	ast.Walk(document, renderer.walk)
	renderer.flushParagraph()
	return strings.TrimRight(strings.Join(renderer.blocks, "\n\n"), "\n")
}

// markdownRenderer collects inline content per block and wraps it as a
// unit when the block closes.
type markdownRenderer struct {
	source []byte
	styles *Styles
	width  int

	blocks []string
	inline strings.Builder

	bold   int
	italic int

	// list holds the counter of each open list; -1 marks a bullet list.
	list []int

	// listBlock is true when the last block is list content, so the
	// next list line joins it without a blank line.
	listBlock bool
}

func (r *markdownRenderer) appendBlock(content string) {
	r.blocks = append(r.blocks, content)
	r.listBlock = false
}

func (r *markdownRenderer) prefix() string {
	return strings.Repeat("  ", max(len(r.list)-1, 0))
}

func (r *markdownRenderer) flushParagraph() {
	content := strings.TrimSpace(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}
	prefix := r.prefix()
	wrapped := ansi.Wrap(content, r.width-ansi.StringWidth(prefix), " ,.;-+|")
	lines := strings.Split(wrapped, "\n")
	for index := range lines {
		lines[index] = prefix + lines[index]
	}
	content = strings.Join(lines, "\n")
	if len(r.list) > 0 && r.listBlock {
		r.blocks[len(r.blocks)-1] += "\n" + content
		return
	}
	r.blocks = append(r.blocks, content)
	r.listBlock = len(r.list) > 0
}

func (r *markdownRenderer) styledText(content string) string {
	style := r.styles.normal()
	if r.bold > 0 {
		style = style.Bold(true)
	}
	if r.italic > 0 {
		style = style.Italic(true)
	}
	return style.Render(content)
}

func (r *markdownRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			r.flushParagraph()
		}
	case *ast.Heading:
		if entering {
			return ast.WalkContinue, nil
		}
		content := strings.TrimSpace(r.inline.String())
		r.inline.Reset()
		r.appendBlock(r.styles.foreground(r.styles.Theme.HeaderForeground).Bold(true).Render(content))
	case *ast.Text:
		if !entering {
			return ast.WalkContinue, nil
		}
		r.inline.WriteString(r.styledText(string(node.Segment.Value(r.source))))
		if node.SoftLineBreak() || node.HardLineBreak() {
			r.inline.WriteString(" ")
		}
	case *ast.String:
		if entering {
			r.inline.WriteString(r.styledText(string(node.Value)))
		}
	case *ast.Emphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if node.Level >= 2 {
			r.bold += delta
		} else {
			r.italic += delta
		}
	case *ast.CodeSpan:
		if !entering {
			return ast.WalkContinue, nil
		}
		var code strings.Builder
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if textNode, ok := child.(*ast.Text); ok {
				code.Write(textNode.Segment.Value(r.source))
			}
		}
		r.inline.WriteString(r.styles.foreground(r.styles.Theme.MatchHighlight).Render(code.String()))
		return ast.WalkSkipChildren, nil
	case *ast.Link:
		if !entering {
			destination := string(node.Destination)
			r.inline.WriteString(r.styles.faint().Render(" (" + destination + ")"))
		}
	case *ast.AutoLink:
		if entering {
			r.inline.WriteString(r.styles.faint().Render(string(node.URL(r.source))))
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			r.flushParagraph()
			r.appendBlock(r.highlight(node.Lines(), string(node.Language(r.source))))
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			r.flushParagraph()
			r.appendBlock(r.highlight(node.Lines(), ""))
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			counter := -1
			if node.IsOrdered() {
				counter = node.Start
			}
			r.list = append(r.list, counter)
		} else {
			r.list = r.list[:len(r.list)-1]
		}
	case *ast.ListItem:
		if !entering {
			return ast.WalkContinue, nil
		}
		r.flushParagraph()
		depth := len(r.list) - 1
		if depth < 0 {
			return ast.WalkContinue, nil
		}
		marker := "• "
		if r.list[depth] >= 0 {
			marker = strconv.Itoa(r.list[depth]) + ". "
			r.list[depth]++
		}
		r.inline.WriteString(r.styles.faint().Render(marker))
	case *ast.ThematicBreak:
		if entering {
			r.flushParagraph()
			r.appendBlock(r.styles.foreground(r.styles.Theme.BorderColor).Render(strings.Repeat("─", r.width)))
		}
	}
	return ast.WalkContinue, nil
}

func (r *markdownRenderer) highlight(lines *text.Segments, language string) string {
	var code strings.Builder
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		code.Write(segment.Value(r.source))
	}
	content := strings.TrimRight(code.String(), "\n")
	if language == "" || r.styles.Plain() {
		return r.styles.faint().Render(content)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, content, language, "terminal256", "monokai"); err != nil {
		return r.styles.faint().Render(content)
	}
	return strings.TrimRight(buffer.String(), "\n")
}

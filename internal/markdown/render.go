// Package markdown turns message text and markdown email templates into HTML.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

// Renderer is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Linkify,
				extension.Strikethrough,
				extension.Typographer,
				&frontmatter.Extender{},
			),
			goldmark.WithRendererOptions(
				goldmarkhtml.WithHardWraps(),
				goldmarkhtml.WithXHTML(),
			),
		),
	}
}

// Message renders a plain accountability message. Raw HTML in text is dropped.
func (r *Renderer) Message(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return buf.String(), nil
}

// Document is a rendered template with its front matter.
type Document struct {
	HTML string
	Meta map[string]any
}

// String returns a front matter value, or "" when it is missing or not a string.
func (d *Document) String(key string) string {
	s, _ := d.Meta[key].(string)
	return s
}

// Document renders a markdown source that may start with YAML front matter.
func (r *Renderer) Document(source []byte) (*Document, error) {
	pc := parser.NewContext()
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	doc := &Document{HTML: buf.String(), Meta: map[string]any{}}
	if data := frontmatter.Get(pc); data != nil {
		if err := data.Decode(&doc.Meta); err != nil {
			return nil, fmt.Errorf("decode front matter: %w", err)
		}
	}
	return doc, nil
}

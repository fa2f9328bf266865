// Package render converts note markdown to HTML.
//
// Rendering is a pure, total function of the input text: it never returns an
// error. Before the text reaches goldmark, TeX expressions are swapped for
// opaque tokens (so the markdown parser cannot mangle them) and wiki links are
// rewritten to ordinary markdown links pointing at the note viewer. After
// rendering the TeX is restored for client-side typesetting.
//
//	md := render.NewMarkdown(render.WithResolver(resolver))
//	html := md.Render("# Channels\n\nSee [[Select#Timeouts]].")
package render

import (
	"bytes"
	"fmt"
	"html"
	"log"
	"os"
	"sync/atomic"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Renderer renders markdown text to HTML. Implementations must be safe for
// concurrent use and must never fail; on internal errors they return a
// diagnostic fallback page instead.
type Renderer interface {
	Render(markdown string) string
}

// Markdown is the goldmark-backed Renderer.
type Markdown struct {
	md       goldmark.Markdown
	resolver atomic.Pointer[resolverHolder]
	logger   *log.Logger
}

type resolverHolder struct{ r Resolver }

// Option configures a Markdown renderer.
type Option func(*Markdown)

// WithResolver sets the resolver used for wiki link URLs.
func WithResolver(r Resolver) Option {
	return func(m *Markdown) { m.SetResolver(r) }
}

// WithLogger sets the logger used to report render failures.
func WithLogger(l *log.Logger) Option {
	return func(m *Markdown) { m.logger = l }
}

// NewMarkdown creates a renderer with GFM tables, task lists and
// strikethrough, typographic punctuation, and class-based syntax
// highlighting.
func NewMarkdown(opts ...Option) *Markdown {
	m := &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
				highlighting.NewHighlighting(
					highlighting.WithFormatOptions(
						chromahtml.WithClasses(true),
					),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithASTTransformers(
					util.Prioritized(tableClassTransformer{}, 500),
				),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithUnsafe(),
			),
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.New(os.Stderr, "[render] ", log.LstdFlags)
	}
	return m
}

// SetResolver replaces the wiki link resolver. Safe to call while rendering.
func (m *Markdown) SetResolver(r Resolver) {
	m.resolver.Store(&resolverHolder{r: r})
}

func (m *Markdown) currentResolver() Resolver {
	if h := m.resolver.Load(); h != nil && h.r != nil {
		return h.r
	}
	return DefaultResolver{}
}

// Render converts markdown to HTML.
func (m *Markdown) Render(markdown string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			m.logger.Printf("ERROR: Failed to render markdown: %v", err)
			out = Fallback(markdown, err)
		}
	}()

	protected, tex := protectTeX(markdown)
	linked := rewriteLinks(protected, m.currentResolver())

	var buf bytes.Buffer
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	if err := m.md.Convert([]byte(linked), &buf, parser.WithContext(ctx)); err != nil {
		m.logger.Printf("ERROR: Failed to render markdown: %v", err)
		return Fallback(markdown, err)
	}

	return tex.restore(buf.String())
}

// Fallback is the page returned when rendering fails: an error banner
// followed by the escaped source.
func Fallback(markdown string, err error) string {
	return "<div class='alert alert-danger'>Failed to render markdown: " +
		html.EscapeString(err.Error()) + "</div><pre>" + html.EscapeString(markdown) + "</pre>"
}

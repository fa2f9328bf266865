package render

import (
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph/internal/pathcode"
)

func newTestRenderer(r Resolver) *Markdown {
	opts := []Option{WithLogger(log.New(io.Discard, "", 0))}
	if r != nil {
		opts = append(opts, WithResolver(r))
	}
	return NewMarkdown(opts...)
}

func TestRender_Basics(t *testing.T) {
	md := newTestRenderer(nil)

	html := md.Render("# Title\n\nSome *emphasis* and `code`.")
	assert.Contains(t, html, `<h1 id="title">Title</h1>`)
	assert.Contains(t, html, "<em>emphasis</em>")
	assert.Contains(t, html, "<code>code</code>")
}

func TestRender_TablesAndTaskLists(t *testing.T) {
	md := newTestRenderer(nil)

	html := md.Render("| a | b |\n|---|---|\n| 1 | 2 |\n\n- [x] done\n- [ ] todo\n")
	assert.Contains(t, html, `<table class="table table-bordered">`)
	assert.Contains(t, html, `disabled=""`)
	assert.Equal(t, 2, strings.Count(html, `type="checkbox"`))
}

func TestRender_CodeHighlightingUsesClasses(t *testing.T) {
	md := newTestRenderer(nil)

	html := md.Render("```go\nfunc main() {}\n```\n")
	assert.Contains(t, html, `class="chroma"`)
}

func TestRender_WikiLinks(t *testing.T) {
	resolver := ResolverFunc(func(name string) string {
		return "/study/view/" + name
	})
	md := newTestRenderer(resolver)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "[[Channels]]", `<a href="/study/view/Channels">Channels</a>`},
		{"alias", "[[Channels|chans]]", `<a href="/study/view/Channels">chans</a>`},
		{"header", "[[Channels#Buffered Channels]]", `<a href="/study/view/Channels#buffered-channels">Channels#Buffered Channels</a>`},
		{"same page header", "[[#Setup Steps|setup]]", `<a href="#setup-steps">setup</a>`},
		{"block", "[[Channels^abc123]]", `<a href="/study/view/Channels#^abc123">Channels^abc123</a>`},
		{"same page block", "[[^abc123]]", `<a href="#abc123">^abc123</a>`},
		{"markdown note link", "[see](Select.md)", `<a href="/study/view/Select">see</a>`},
		{"external link untouched", "[site](https://example.com)", `<a href="https://example.com">site</a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, md.Render(tt.in), tt.want)
		})
	}
}

func TestRender_DefaultResolverEncodesName(t *testing.T) {
	md := newTestRenderer(nil)

	html := md.Render("[[Missing Note]]")
	assert.Contains(t, html, `href="/study/view/`+pathcode.Encode("Missing Note.md")+`"`)
}

func TestRender_SetResolverTakesEffect(t *testing.T) {
	md := newTestRenderer(nil)
	md.SetResolver(ResolverFunc(func(name string) string { return "/x/" + name }))

	assert.Contains(t, md.Render("[[A]]"), `href="/x/A"`)
}

func TestRender_HeadingIDsMatchHeaderLinks(t *testing.T) {
	md := newTestRenderer(nil)

	html := md.Render("## Setup Steps\n\n## Setup Steps\n\n[[#Setup Steps]]")
	assert.Contains(t, html, `<h2 id="setup-steps">`)
	assert.Contains(t, html, `<h2 id="setup-steps-1">`)
	assert.Contains(t, html, `href="#setup-steps"`)
}

func TestRender_PreservesTeX(t *testing.T) {
	md := newTestRenderer(nil)

	html := md.Render("Inline $a_1 * b_2 < c$ and\n\n$$\n\\sum_{i=1}^n [[x]]_i\n$$\n")
	assert.Contains(t, html, "$a_1 * b_2 &lt; c$")
	assert.Contains(t, html, "\\sum_{i=1}^n [[x]]_i")
	assert.NotContains(t, html, "NGTEX")
	assert.NotContains(t, html, "<em>")
}

func TestRender_ConcurrentCallsDoNotShareTeXState(t *testing.T) {
	md := newTestRenderer(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			html := md.Render("value $x$ end")
			assert.Contains(t, html, "$x$")
		}()
	}
	wg.Wait()
}

func TestFallback(t *testing.T) {
	out := Fallback("<b>raw</b>", assert.AnError)
	assert.True(t, strings.HasPrefix(out, "<div class='alert alert-danger'>"))
	assert.Contains(t, out, "<pre>&lt;b&gt;raw&lt;/b&gt;</pre>")
}

func TestHeaderID(t *testing.T) {
	tests := map[string]string{
		"Setup Steps":       "setup-steps",
		"  Go  & Rust ":     "-go-rust-",
		"Already-dashed--x": "already-dashed-x",
		"CamelCase_ok":      "camelcase_ok",
	}
	for in, want := range tests {
		assert.Equal(t, want, HeaderID(in), in)
	}
}

func TestHighlightCSS(t *testing.T) {
	css, err := HighlightCSS("")
	require.NoError(t, err)
	assert.Contains(t, css, ".chroma")
}

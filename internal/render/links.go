package render

import (
	"regexp"
	"strings"

	"github.com/notegraph/notegraph/internal/pathcode"
)

// ViewPrefix is the route under which notes are served.
const ViewPrefix = "/study/view/"

// Resolver maps a note name (without extension) to its viewer URL.
type Resolver interface {
	NoteURL(name string) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) string

func (f ResolverFunc) NoteURL(name string) string { return f(name) }

// DefaultResolver links every name to "<name>.md" without checking that the
// note exists.
type DefaultResolver struct{}

func (DefaultResolver) NoteURL(name string) string {
	return ViewURL(name + ".md")
}

// ViewURL returns the viewer URL of a note path.
func ViewURL(path string) string {
	return ViewPrefix + pathcode.Encode(path)
}

var (
	wikiLink     = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\.md\)`)

	headerSpaces  = regexp.MustCompile(`\s+`)
	headerInvalid = regexp.MustCompile(`[^\w\-]`)
	headerDashes  = regexp.MustCompile(`-+`)
)

// rewriteLinks turns wiki links and markdown links to notes into markdown
// links to the note viewer.
func rewriteLinks(markdown string, r Resolver) string {
	out := wikiLink.ReplaceAllStringFunc(markdown, func(m string) string {
		return wikiReplacement(wikiLink.FindStringSubmatch(m)[1], r)
	})
	return markdownLink.ReplaceAllStringFunc(out, func(m string) string {
		sub := markdownLink.FindStringSubmatch(m)
		return "[" + sub[1] + "](" + r.NoteURL(sub[2]) + ")"
	})
}

// wikiReplacement handles the forms
//
//	[[Note]]  [[Note|alias]]  [[Note#Header]]  [[#Header]]  [[Note^block]]  [[^block]]
func wikiReplacement(content string, r Resolver) string {
	text, target := content, content
	if t, alias, ok := strings.Cut(content, "|"); ok {
		target = strings.TrimSpace(t)
		text = strings.TrimSpace(alias)
	}

	var url string
	switch {
	case strings.Contains(target, "#"):
		file, header, _ := strings.Cut(target, "#")
		file, header = strings.TrimSpace(file), strings.TrimSpace(header)
		if file == "" {
			url = "#" + HeaderID(header)
		} else {
			url = r.NoteURL(file) + "#" + HeaderID(header)
		}
	case strings.Contains(target, "^"):
		file, block, _ := strings.Cut(target, "^")
		file, block = strings.TrimSpace(file), strings.TrimSpace(block)
		if file == "" {
			url = "#" + block
		} else {
			url = r.NoteURL(file) + "#^" + block
		}
	default:
		url = r.NoteURL(strings.TrimSpace(target))
	}

	return "[" + text + "](" + url + ")"
}

// HeaderID converts heading text to the anchor id used for header links:
// lower case, whitespace runs become "-", characters outside [A-Za-z0-9_-]
// are dropped and repeated dashes collapse.
func HeaderID(text string) string {
	id := strings.ToLower(text)
	id = headerSpaces.ReplaceAllString(id, "-")
	id = headerInvalid.ReplaceAllString(id, "")
	return headerDashes.ReplaceAllString(id, "-")
}

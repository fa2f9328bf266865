package notes

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// linkPattern matches [[target]] / [[target|alias]] (group 1) and
// [label](target.md) with an optional #section suffix (groups 2 and 3).
var linkPattern = regexp.MustCompile(`\[\[([^\]]+)\]\]|\[[^\]]*\]\(([^)#]+\.md)(#[^)]*)?\)`)

// ExtractLinks returns the link targets referenced by a note, in order of
// appearance and with duplicates preserved.
//
// Wiki link aliases are dropped and markdown link targets lose their .md
// extension; header (#) and block (^) suffixes are kept. Malformed syntax is
// not an error, it simply produces no link.
func ExtractLinks(text string) []string {
	matches := linkPattern.FindAllStringSubmatch(text, -1)
	links := make([]string, 0, len(matches))

	for _, m := range matches {
		var target string
		if m[1] != "" {
			target, _, _ = strings.Cut(m[1], "|")
		} else {
			target = strings.TrimSuffix(m[2], MarkdownExt) + m[3]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		links = append(links, target)
	}

	return links
}

// BareName reduces a link target to the note name it refers to: header and
// block-reference suffixes, URL escapes, the .md extension and any folder
// components are removed.
//
//	BareName("Go/Channels.md#select") == "Channels"
//	BareName("Deep%20Dive^abc")       == "Deep Dive"
func BareName(target string) string {
	if i := strings.IndexAny(target, "#^"); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	target = strings.TrimSpace(strings.ReplaceAll(target, `\`, "/"))
	if target == "" {
		return ""
	}
	target = strings.TrimSuffix(path.Base(target), MarkdownExt)
	if target == "." || target == "/" {
		return ""
	}
	return strings.TrimSpace(target)
}

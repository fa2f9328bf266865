package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var displayMath = regexp.MustCompile(`(?s)\$\$(.*?)\$\$`)

// texTokens maps placeholder tokens back to the TeX they replaced. A fresh
// value is used for every Render call.
type texTokens struct {
	pairs []string // token, expression, token, expression, ...
}

func (t *texTokens) add(kind, expr string) string {
	token := fmt.Sprintf("NGTEX%s%dEND", kind, len(t.pairs)/2)
	t.pairs = append(t.pairs, token, expr)
	return token
}

// restore puts the TeX expressions back into rendered HTML, escaped so the
// browser shows them verbatim to the typesetter.
func (t *texTokens) restore(rendered string) string {
	if len(t.pairs) == 0 {
		return rendered
	}
	escaped := make([]string, len(t.pairs))
	for i := 0; i < len(t.pairs); i += 2 {
		escaped[i] = t.pairs[i]
		escaped[i+1] = html.EscapeString(t.pairs[i+1])
	}
	return strings.NewReplacer(escaped...).Replace(rendered)
}

// protectTeX replaces $$display$$ and non-empty $inline$ math with tokens.
// A dollar sign escaped with a backslash never opens or closes inline math.
func protectTeX(markdown string) (string, *texTokens) {
	tokens := &texTokens{}

	out := displayMath.ReplaceAllStringFunc(markdown, func(m string) string {
		return tokens.add("D", m)
	})

	return protectInline(out, tokens), tokens
}

func protectInline(s string, tokens *texTokens) string {
	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		if !isInlineDelimiter(s, i) {
			b.WriteByte(s[i])
			i++
			continue
		}

		end := -1
		for j := i + 1; j < len(s); j++ {
			if isInlineDelimiter(s, j) {
				end = j
				break
			}
		}
		if end < 0 {
			b.WriteString(s[i:])
			break
		}

		expr := s[i : end+1]
		if strings.TrimSpace(s[i+1:end]) == "" {
			b.WriteString(expr)
		} else {
			b.WriteString(tokens.add("I", expr))
		}
		i = end + 1
	}

	return b.String()
}

// isInlineDelimiter reports whether s[i] is a lone, unescaped "$".
func isInlineDelimiter(s string, i int) bool {
	if s[i] != '$' {
		return false
	}
	if i > 0 && (s[i-1] == '\\' || s[i-1] == '$') {
		return false
	}
	if i+1 < len(s) && s[i+1] == '$' {
		return false
	}
	return true
}

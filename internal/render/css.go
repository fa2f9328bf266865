package render

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used for code highlighting.
const DefaultStyle = "github"

// HighlightCSS returns the stylesheet for the classes emitted by the code
// highlighter. Unknown styles fall back to chroma's default.
func HighlightCSS(style string) (string, error) {
	if style == "" {
		style = DefaultStyle
	}
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(style)); err != nil {
		return "", fmt.Errorf("writing %s stylesheet: %w", style, err)
	}
	return buf.String(), nil
}

package activity

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var markupHints = []string{"<pre", "<code", "<p>", "<br", "<div"}

// hasMarkup reports whether text looks like an HTML rendering of the answer,
// as some chat front ends and proxies return.
func hasMarkup(text string) bool {
	lower := strings.ToLower(text)
	for _, hint := range markupHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// htmlToMarkdown converts an HTML answer to markdown so that <pre><code>
// blocks become code fences and entities such as &quot; are decoded.
func htmlToMarkdown(text string) (string, error) {
	return htmltomarkdown.ConvertString(text)
}

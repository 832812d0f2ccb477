package excerpt

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var shortcodePattern = regexp.MustCompile(`\[/?[a-zA-Z][^\]]*\]`)

// skipped elements never contribute readable text.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
}

// Plain reduces stored HTML content to a single line of readable text: tags and
// shortcodes are removed, entities decoded and whitespace collapsed.
func Plain(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	content = shortcodePattern.ReplaceAllString(content, " ")

	var b strings.Builder
	depth := 0
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF and malformed input both end the scan with what was read.
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipped[string(name)] {
				depth++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipped[string(name)] && depth > 0 {
				depth--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if depth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

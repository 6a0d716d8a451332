package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var richText = newRichTextPolicy()

func newRichTextPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "b", "em", "i", "u",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "div", "span", "pre", "code",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("class", "id", "title").Globally()
	p.AllowStyles("color", "background-color", "text-align", "font-weight", "font-style", "text-decoration").Globally()

	p.AllowStandardURLs()
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowDataURIImages()
	return p
}

// SanitizeHTML 保留排版标签，去掉 script/object/embed/form 及 on* 事件属性
func SanitizeHTML(html string) string {
	if html == "" {
		return ""
	}
	return richText.Sanitize(html)
}

// SanitizeFileName 防目录穿越
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.Trim(s, ".")
	if len(s) > 255 {
		s = s[:255]
	}
	return s
}

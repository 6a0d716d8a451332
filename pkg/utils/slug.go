package utils

import (
	"regexp"
	"strings"
)

const maxSlugLen = 100

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_-]+`)
	slugEdges    = regexp.MustCompile(`^-+|-+$`)
)

// Slugify 小写化，去掉非单词字符，空白/下划线/连字符合并为单个 "-"
func Slugify(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparate.ReplaceAllString(s, "-")
	s = slugEdges.ReplaceAllString(s, "")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

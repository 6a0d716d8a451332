package repo

import "strings"

// 转义符用 '!'：反斜杠在 MySQL 字符串字面量里本身就要转义，各方言写法不一致
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern 用户输入里的 % 和 _ 按字面匹配，配合 ilike 做大小写无关的子串查询
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func ilike(col string) string {
	return "LOWER(" + col + ") LIKE ? ESCAPE '!'"
}

package utils

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultPhoneRegion = "FI"

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]+$`)

// LooksLikePhone 只校验字符集：数字、空格、连字符、括号和可选的前导 "+"
func LooksLikePhone(s string) bool { return phonePattern.MatchString(s) }

// NormalizePhone 能解析为有效号码时格式化为 E.164，否则返回去空白后的原值
func NormalizePhone(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	num, err := phonenumbers.Parse(trimmed, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return trimmed
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

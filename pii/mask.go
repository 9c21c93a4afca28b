// Package pii redacts personal data from free text before it is rendered.
package pii

import (
	"regexp"
	"strings"
)

var (
	emailPattern     = regexp.MustCompile(`([A-Za-z0-9._%+\-])[A-Za-z0-9._%+\-]*@([A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)
	phonePattern     = regexp.MustCompile(`\b(01[016789]|0\d{1,2})[-.\s]?(\d{3,4})[-.\s]?(\d{4})\b`)
	digitRunPattern  = regexp.MustCompile(`\b\d{6,}\b`)
	handlePattern    = regexp.MustCompile(`(^|[^A-Za-z0-9._%+\-*])@([A-Za-z0-9_가-힣][A-Za-z0-9_.가-힣]*)(\*{3})?`)
	honorificPattern = regexp.MustCompile(`([가-힣]{2,})님`)
)

// titles are honorific nouns that are not names.
var titles = map[string]bool{
	"사장": true, "사모": true, "직원": true, "고객": true, "선생": true,
	"점장": true, "매니저": true, "기사": true, "알바": true, "손": true,
}

// Mask redacts emails, phone numbers, long digit runs, @handles and
// "X님" names. Applying it twice gives the same result as applying it once.
func Mask(s string) string {
	if s == "" {
		return s
	}
	s = emailPattern.ReplaceAllString(s, "$1***@$2")
	s = phonePattern.ReplaceAllString(s, "$1-****-$3")
	s = digitRunPattern.ReplaceAllStringFunc(s, func(run string) string {
		return run[:2] + strings.Repeat("*", len(run)-4) + run[len(run)-2:]
	})
	s = handlePattern.ReplaceAllStringFunc(s, maskHandle)
	s = honorificPattern.ReplaceAllStringFunc(s, maskHonorific)
	return s
}

func maskHandle(m string) string {
	sub := handlePattern.FindStringSubmatch(m)
	prefix, name, stars := sub[1], []rune(sub[2]), sub[3]
	if len(name) == 1 && stars != "" {
		return m
	}
	return prefix + "@" + string(name[0]) + "***"
}

func maskHonorific(m string) string {
	name := []rune(strings.TrimSuffix(m, "님"))
	if titles[string(name)] {
		return m
	}
	if len(name) == 2 {
		return string(name[0]) + "*님"
	}
	return string(name[0]) + "*" + string(name[len(name)-1]) + "님"
}

// MaskCell masks string cells and leaves other values untouched.
func MaskCell(v any) any {
	if s, ok := v.(string); ok {
		return Mask(s)
	}
	return v
}

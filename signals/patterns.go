// Package signals computes derived review and sales indicators over a
// snapshot's typed records. Every calculator is a pure function; an empty
// population yields an explicit "insufficient" result, never zeros.
package signals

import (
	"regexp"
	"strings"
)

// Pattern is one named negative-signal regular expression.
type Pattern struct {
	Signal  string
	Pattern string
	re      *regexp.Regexp
}

// Match reports whether text mentions the signal.
func (p Pattern) Match(text string) bool { return p.re.MatchString(text) }

func newPattern(signal, pattern string) Pattern {
	return Pattern{Signal: signal, Pattern: pattern, re: regexp.MustCompile("(?i)" + pattern)}
}

// NegativePatterns are the seven complaint categories, in display order.
var NegativePatterns = []Pattern{
	newPattern("웨이팅/대기", `웨이팅|대기|기다리`),
	newPattern("혼잡/소음", `시끄럽|복잡|혼잡|사람\s*많`),
	newPattern("서비스 속도", `늦|느리|오래\s*걸`),
	newPattern("서비스 태도", `불친절|응대\s*별로|서비스\s*별로`),
	newPattern("공간/좌석", `좁|자리\s*없|좌석`),
	newPattern("가격/가성비 불만", `비싸|가격\s*부담|가성비\s*별로`),
	newPattern("맛 디테일 불만", `짜|싱겁|아쉽|별로|물리`),
}

// Hint patterns shared with the SQL templates.
const (
	PositiveHintPattern  = `맛있|좋|친절|추천|만족|훌륭|재방문`
	NegativeHintPattern  = `근데|하지만|다만|아쉽|별로|시끄럽|웨이팅|좁|불친절|늦`
	RevisitIntentPattern = `재방문|또\s*갈|또\s*오|다시\s*방문|다시\s*올|또\s*방문`
	HighlightPattern     = `웨이팅|대기|기다리|시끄럽|복잡|혼잡|늦|느리|오래\s*걸|불친절|별로|아쉽|좁|자리\s*없|비싸|가성비\s*별로|짜|싱겁|물리`
)

var (
	positiveHint  = regexp.MustCompile("(?i)" + PositiveHintPattern)
	negativeHint  = regexp.MustCompile("(?i)" + NegativeHintPattern)
	revisitIntent = regexp.MustCompile("(?i)" + RevisitIntentPattern)
	highlight     = regexp.MustCompile("(?i)" + HighlightPattern)
	negativeAny   = regexp.MustCompile("(?i)" + joinPatterns(NegativePatterns))
	whitespace    = regexp.MustCompile(`\s+`)
)

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = "(?:" + p.Pattern + ")"
	}
	return strings.Join(parts, "|")
}

// IsNegative reports whether text matches any negative signal.
func IsNegative(text string) bool { return negativeAny.MatchString(text) }

// IsHiddenComplaint reports whether text mixes praise with a complaint.
func IsHiddenComplaint(text string) bool {
	return positiveHint.MatchString(text) && negativeHint.MatchString(text)
}

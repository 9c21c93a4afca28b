package intent

import "strings"

var (
	repeatTokens   = []string{"반복", "자주", "많이", "빈번", "계속"}
	negativeTokens = []string{"부정", "불만", "아쉬", "문제", "불편", "개선"}
	signalTokens   = []string{"신호", "패턴", "이슈", "포인트"}
	waitingTokens  = []string{"웨이팅", "대기", "기다", "줄"}
)

// ReviewIntent flags the review templates match on.
type ReviewIntent struct {
	HiddenComplaint bool
	NegativeSignal  bool
	Waiting         bool
	MetricRequest   bool
	Simple          bool
}

// ParseReview extracts review intent flags from a question.
func ParseReview(question string) ReviewIntent {
	lowered := strings.ToLower(question)
	negative := containsAny(lowered, negativeTokens)

	return ReviewIntent{
		HiddenComplaint: strings.Contains(question, "숨은") && strings.Contains(question, "불만"),
		NegativeSignal: (containsAny(lowered, repeatTokens) && negative) ||
			(negative && containsAny(lowered, signalTokens)),
		Waiting:       containsAny(lowered, waitingTokens),
		MetricRequest: MetricRequest(question),
		Simple:        Simple(question),
	}
}

package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxRecentDays caps every extracted window.
const MaxRecentDays = 365

// MaxRankLimit caps ranking results.
const MaxRankLimit = 30

var (
	daysPattern   = regexp.MustCompile(`(\d+)\s*일`)
	weeksPattern  = regexp.MustCompile(`(\d+)\s*주`)
	monthsPattern = regexp.MustCompile(`(\d+)\s*(개월|달)`)

	rankedDayPattern  = regexp.MustCompile(`(?i)(상위|하위|top|bottom)\s*\d+\s*일`)
	rankLimitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:상위|하위|top|bottom)\s*(\d+)`),
		regexp.MustCompile(`(?i)(?:top|bottom)\s*[-:]?\s*(\d+)`),
		regexp.MustCompile(`(\d+)\s*(?:위|개)`),
	}

	recentHintTokens = []string{"최근", "요즘", "지난", "근래", "이번주", "지난주", "이번달", "지난달", "오늘", "어제"}
	metricTokens     = []string{"얼마", "몇", "개수", "건수", "count", "합계", "총", "비율", "퍼센트", "%", "평균", "순위", "언제"}
	jargonTokens     = []string{"비율", "추이", "증감", "상관", "통계", "비교", "조합", "프로모션", "상위", "하위", "top", "rank", "유의미", "분석", "연관"}

	salesTokens        = []string{"매출", "금액", "매상", "revenue", "sales"}
	orderTokens        = []string{"주문", "order"}
	countTokens        = []string{"건수", "개수", "몇", "count", "주문수", "주문 건수"}
	aovTokens          = []string{"객단가", "평균 주문", "평균주문", "aov"}
	monthCompareTokens = []string{"전월", "지난달", "이번달", "전 달"}

	dailyTokens  = []string{"일자별", "날짜별", "일별", "추이", "트렌드"}
	branchTokens = []string{"지점별", "매장별", "지점마다", "매장마다"}

	dayTargetTokens = []string{"날짜", "일자", "매출일", "언제", "어느날", "무슨날", "날"}
	rankTokens      = []string{"가장", "최고", "최대", "상위", "top", "높았", "높은", "최저", "최소", "하위", "낮았", "낮은"}
	lowRankTokens   = []string{"최저", "최소", "하위", "bottom", "낮았", "낮은"}
)

// SalesIntent is everything the sales templates need from a question.
type SalesIntent struct {
	RecentDays *int
	DayOffset  *int
	RecentHint bool

	MetricRequest bool
	Simple        bool

	// Requested groupings. More than one may be set; templates decide precedence.
	ByDay      bool
	ByBranch   bool
	ByChannel  bool
	ByCategory bool

	RankDay    bool
	RankLowest bool
	RankLimit  int

	SalesToken        bool
	OrderToken        bool
	WantsCount        bool
	WantsAOV          bool
	WantsMonthCompare bool
}

// ParseSales extracts sales intent flags from a question.
func ParseSales(question string) SalesIntent {
	lowered := strings.ToLower(question)
	squashed := compact(lowered)

	rankTarget := containsAny(squashed, rankTokens)
	dayTarget := containsAny(squashed, dayTargetTokens) || rankedDayPattern.MatchString(squashed)

	return SalesIntent{
		RecentDays:        RecentDays(question),
		DayOffset:         DayOffset(question),
		RecentHint:        containsAny(compact(question), recentHintTokens),
		MetricRequest:     MetricRequest(question),
		Simple:            Simple(question),
		ByDay:             containsAny(compact(question), dailyTokens),
		ByBranch:          containsAny(compact(question), branchTokens),
		ByChannel:         strings.Contains(compact(question), "채널"),
		ByCategory:        strings.Contains(compact(question), "카테고리"),
		RankDay:           rankTarget && dayTarget,
		RankLowest:        containsAny(squashed, lowRankTokens),
		RankLimit:         RankLimit(question, 1),
		SalesToken:        containsAny(lowered, salesTokens),
		OrderToken:        containsAny(lowered, orderTokens),
		WantsCount:        containsAny(lowered, countTokens),
		WantsAOV:          containsAny(lowered, aovTokens),
		WantsMonthCompare: containsAny(lowered, monthCompareTokens),
	}
}

// RecentDays extracts "N일", "N주", "N개월/달" or an idiom, capped at 365.
func RecentDays(question string) *int {
	try := func(re *regexp.Regexp, mul int) *int {
		m := re.FindStringSubmatch(question)
		if m == nil {
			return nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return nil
		}
		return intPtr(min(n*mul, MaxRecentDays))
	}
	if d := try(daysPattern, 1); d != nil {
		return d
	}
	if d := try(weeksPattern, 7); d != nil {
		return d
	}
	if d := try(monthsPattern, 30); d != nil {
		return d
	}

	squashed := compact(question)
	switch {
	case strings.Contains(squashed, "일주일"):
		return intPtr(7)
	case strings.Contains(squashed, "보름"):
		return intPtr(15)
	case strings.Contains(squashed, "한달"):
		return intPtr(30)
	}
	return nil
}

// DayOffset maps 오늘/어제/그제 to 0/1/2 days before the latest sales date.
func DayOffset(question string) *int {
	squashed := compact(question)
	switch {
	case strings.Contains(squashed, "오늘"):
		return intPtr(0)
	case strings.Contains(squashed, "어제"):
		return intPtr(1)
	case strings.Contains(squashed, "그제"), strings.Contains(squashed, "그저께"):
		return intPtr(2)
	}
	return nil
}

// RankLimit extracts a ranking size in 1..30, or def when none is given.
func RankLimit(question string, def int) int {
	squashed := compact(question)
	for _, re := range rankLimitPatterns {
		m := re.FindStringSubmatch(squashed)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return min(n, MaxRankLimit)
		}
	}
	return max(1, min(def, MaxRankLimit))
}

// MetricRequest reports whether the question asks for a number.
func MetricRequest(question string) bool {
	return containsAny(strings.ToLower(question), metricTokens)
}

// Simple reports a short question with no analytical jargon.
func Simple(question string) bool {
	lowered := strings.ToLower(question)
	if containsAny(lowered, jargonTokens) {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(question)) <= 60
}

func intPtr(v int) *int { return &v }

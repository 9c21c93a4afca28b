package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	router := DefaultRouter()
	tests := []struct {
		question string
		domain   Domain
		rule     string
	}{
		{"최근 7일 매출 얼마야?", DomainSales, "sales-keywords"},
		{"숨은 불만 보여줘", DomainReview, "review-keywords"},
		{"매출 리뷰 같이 보여줘", DomainReview, "review-keywords"},
		{"Revenue trend", DomainSales, "sales-keywords"},
		{"안녕하세요", DomainReview, "default-review"},
		{"매출 분석 질문: 리뷰 많은 날 매출은?", DomainSales, "force-sales-prefix"},
	}
	for _, tt := range tests {
		got := router.Route(tt.question)
		assert.Equal(t, tt.domain, got.Domain, tt.question)
		assert.Equal(t, tt.rule, got.Rule, tt.question)
	}
}

func TestRouteStripsForcePrefix(t *testing.T) {
	got := DefaultRouter().Route("매출 분석 질문:  지난주 채널별 매출")
	assert.Equal(t, "지난주 채널별 매출", got.Question)

	got = DefaultRouter().Route("매출 분석 질문:")
	assert.Equal(t, DomainSales, got.Domain)
	assert.Equal(t, "매출 분석 질문:", got.Question)
}

func TestRecentDays(t *testing.T) {
	tests := map[string]*int{
		"최근 7일 매출":     intPtr(7),
		"2주 매출":        intPtr(14),
		"3개월 매출":       intPtr(90),
		"지난 2 달":       intPtr(60),
		"일주일 매출":       intPtr(7),
		"보름 동안":        intPtr(15),
		"한 달 매출":       intPtr(30),
		"500일 매출":      intPtr(365),
		"0일 매출":        nil,
		"매출 알려줘":       nil,
	}
	for q, want := range tests {
		assert.Equal(t, want, RecentDays(q), q)
	}
}

func TestDayOffset(t *testing.T) {
	assert.Equal(t, intPtr(0), DayOffset("오늘 매출"))
	assert.Equal(t, intPtr(1), DayOffset("어 제 매출"))
	assert.Equal(t, intPtr(2), DayOffset("그저께 주문"))
	assert.Nil(t, DayOffset("이번주 매출"))
}

func TestRankLimit(t *testing.T) {
	assert.Equal(t, 5, RankLimit("매출 상위 5일", 1))
	assert.Equal(t, 3, RankLimit("top-3 days", 1))
	assert.Equal(t, 30, RankLimit("하위 50개", 1))
	assert.Equal(t, 2, RankLimit("2위 날짜", 1))
	assert.Equal(t, 1, RankLimit("매출 가장 높은 날", 1))
}

func TestParseSales(t *testing.T) {
	in := ParseSales("최근 7일 매출 얼마야?")
	require.NotNil(t, in.RecentDays)
	assert.Equal(t, 7, *in.RecentDays)
	assert.True(t, in.RecentHint)
	assert.True(t, in.MetricRequest)
	assert.True(t, in.SalesToken)
	assert.True(t, in.Simple)
	assert.False(t, in.RankDay)

	in = ParseSales("매출이 가장 낮았던 날 3개")
	assert.True(t, in.RankDay)
	assert.True(t, in.RankLowest)
	assert.Equal(t, 3, in.RankLimit)

	in = ParseSales("이번달 지난달 매출 비교")
	assert.True(t, in.WantsMonthCompare)
	assert.False(t, in.Simple, "비교 is analytical jargon")

	in = ParseSales("채널별 일별 추이")
	assert.True(t, in.ByChannel)
	assert.True(t, in.ByDay)

	in = ParseSales("어제 주문 몇 건?")
	assert.True(t, in.OrderToken)
	assert.True(t, in.WantsCount)
	assert.False(t, in.SalesToken)
}

func TestParseReview(t *testing.T) {
	assert.True(t, ParseReview("숨은 불만 보여줘").HiddenComplaint)

	in := ParseReview("반복되는 불만 알려줘")
	assert.True(t, in.NegativeSignal)

	in = ParseReview("부정 신호는?")
	assert.True(t, in.NegativeSignal)

	in = ParseReview("불만 있어?")
	assert.False(t, in.NegativeSignal)

	assert.True(t, ParseReview("웨이팅 얼마나 길어?").Waiting)
}

func TestResolveBranch(t *testing.T) {
	b := ResolveBranch("강남점 리뷰", DefaultBranches())
	assert.Equal(t, "강남점", b.Name)
	assert.False(t, b.All())
	assert.True(t, b.Includes("강남점"))
	assert.False(t, b.Includes("건대점"))

	b = ResolveBranch("전체 리뷰'; DROP TABLE reviews", DefaultBranches())
	assert.True(t, b.All())
	assert.Equal(t, AllBranchesLabel, b.Label)
	assert.True(t, b.Includes("아무점"))
}

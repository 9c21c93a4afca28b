package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/resolver"
	"github.com/spektr-org/insightbot/signals"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// FORMATTING
// ============================================================================

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1,234원", FormatCurrency(1234.4))
	assert.Equal(t, "12건", FormatCount(12))
	assert.Equal(t, "12.3%", FormatPercent(12.345))
	assert.Equal(t, "1,234", FormatNumber(1234))
	assert.Equal(t, "1,234.5", FormatNumber(1234.5))
	assert.Equal(t, "+5,000원", FormatSignedCurrency(5000))
	assert.Equal(t, "-5,000원", FormatSignedCurrency(-5000))
	assert.Equal(t, "+3건", FormatSignedCount(3))
	assert.Equal(t, "0건", FormatSignedCount(0))

	pct := 12.5
	neg := -4.0
	assert.Equal(t, "+12.5%", FormatSignedPercent(&pct))
	assert.Equal(t, "-4.0%", FormatSignedPercent(&neg))
	assert.Equal(t, "신규 구간", FormatSignedPercent(nil))

	assert.Equal(t, "2024-03-01", FormatDate("2024-03-01 12:30:00"))
	assert.Equal(t, "", FormatDate(nil))
}

func TestLocalize(t *testing.T) {
	assert.Equal(t, "총매출", Localize("total_sales"))
	assert.Equal(t, "웨이팅 언급 건수", Localize("waiting_count"))
	assert.Equal(t, "재방문 고객", Localize("revisit_customer"))
	assert.Equal(t, "weird_metric", Localize("weird_metric"))
}

func TestClassify(t *testing.T) {
	tests := map[string]Kind{
		"ratio_pct":       KindPercent,
		"비율(%)":           KindPercent,
		"sales_date":      KindDate,
		"first_date":      KindDate,
		"total_sales":     KindCurrency,
		"avg_order_value": KindCurrency,
		"order_count":     KindCount,
		"mention_count":   KindCount,
		"quantity":        KindNumber,
	}
	for col, want := range tests {
		assert.Equal(t, want, Classify(col), col)
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "15,000원", FormatCell("total_sales", float64(15000)))
	assert.Equal(t, "3건", FormatCell("order_count", int64(3)))
	assert.Equal(t, "2.5%", FormatCell("ratio_pct", 2.5))
	assert.Equal(t, "2024-01-02", FormatCell("sales_date", "2024-01-02"))
	assert.Equal(t, "배달", FormatCell("order_channel", "배달"))
	assert.Equal(t, "", FormatCell("order_channel", nil))
}

// ============================================================================
// TABLES
// ============================================================================

func wideResult(rows, cols int) *store.Result {
	res := &store.Result{}
	for j := 0; j < cols; j++ {
		res.Columns = append(res.Columns, fmt.Sprintf("c%d", j))
	}
	for i := 0; i < rows; i++ {
		row := make([]any, cols)
		for j := range row {
			row[j] = int64(i * j)
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

func TestBuildTableTruncates(t *testing.T) {
	table := BuildTable(wideResult(30, 15), 0, 0, nil)

	assert.Len(t, table.Rows, DefaultMaxTableRows)
	assert.Len(t, table.Columns, DefaultMaxTableCols)
	assert.True(t, table.Truncated())
	note := table.Footnote()
	assert.Contains(t, note, "표시는 상위 20행입니다. (전체 30행)")
	assert.Contains(t, note, "전체 15열")
}

func TestBuildTableSmallHasNoFootnote(t *testing.T) {
	table := BuildTable(wideResult(3, 2), 20, 12, nil)
	assert.False(t, table.Truncated())
	assert.Empty(t, table.Footnote())
}

func TestBuildTableMasksAndClipsText(t *testing.T) {
	long := strings.Repeat("가", 200)
	res := &store.Result{
		Columns: []string{"nickname", "review_content"},
		Rows:    [][]any{{"jane@example.com", long}},
	}
	table := NewRenderer().table(res)

	assert.Equal(t, "j***@example.com", table.Rows[0][0])
	assert.Len(t, []rune(table.Rows[0][1]), defaultCellClip)
	assert.True(t, strings.HasSuffix(table.Rows[0][1], "..."))
	assert.Equal(t, KindText, table.Columns[0].Type)
	assert.Equal(t, "닉네임", table.Columns[0].Label)
}

func TestMarkdown(t *testing.T) {
	res := &store.Result{
		Columns: []string{"order_channel", "total_sales"},
		Rows:    [][]any{{"배달", float64(12000)}, {"매장", float64(8000)}},
	}
	md := BuildTable(res, 20, 12, nil).Markdown()
	lines := strings.Split(md, "\n")

	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "| 주문채널"))
	assert.Contains(t, lines[1], "---")
	assert.Contains(t, lines[2], "12,000원")

	empty := (&TableData{}).Markdown()
	assert.Equal(t, "(empty table)", empty)
}

// ============================================================================
// PARAPHRASE
// ============================================================================

func TestSelectors(t *testing.T) {
	assert.Equal(t, 0, FirstSelector{}.Pick("k", "q", 5))

	cold := SeededSelector{Temperature: 0}
	for _, q := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 0, cold.Pick("k", q, 5))
	}

	hot := SeededSelector{Temperature: 1}
	first := hot.Pick("review.top_signal", "같은 질문", 3)
	assert.Equal(t, first, hot.Pick("review.top_signal", "같은 질문", 3))
	for _, q := range []string{"a", "b", "c", "d", "e"} {
		idx := hot.Pick("k", q, 3)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 3)
	}
	assert.Equal(t, 0, hot.Pick("k", "q", 1))
}

func TestPoolOverride(t *testing.T) {
	r := NewRenderer(WithPool(Pool{"sales.total": {"총 %s"}}))
	assert.Equal(t, "총 1원", r.say("sales.total", "q", "1원"))
	assert.Equal(t, "- 주문 건수는 **2건**입니다.", r.say("sales.orders", "q", "2건"))
}

// ============================================================================
// FORMAT DECISION
// ============================================================================

func TestChooseFormat(t *testing.T) {
	assert.Equal(t, FormatCompact, ChooseFormat(&store.Result{Columns: []string{"a"}}, false))
	assert.Equal(t, FormatCompact, ChooseFormat(wideResult(4, 5), true))
	assert.Equal(t, FormatFull, ChooseFormat(wideResult(5, 5), true))
	assert.Equal(t, FormatFull, ChooseFormat(wideResult(2, 6), true))
	assert.Equal(t, FormatFull, ChooseFormat(wideResult(1, 1), false))
}

// ============================================================================
// REVIEW REPORT
// ============================================================================

func reviewResolution(res *store.Result) *resolver.Resolution {
	return &resolver.Resolution{
		Domain:       intent.DomainReview,
		State:        resolver.StateTemplate,
		TemplateName: "review.hidden_complaint",
		SQL:          "SELECT review_date FROM reviews LIMIT 12",
		Result:       res,
	}
}

func TestReviewFullReport(t *testing.T) {
	avg, med := 12.0, 10.0
	res := &store.Result{
		Columns: []string{"review_date", "review_content"},
		Rows: [][]any{
			{"2024-03-02", "맛있는데 웨이팅이 길어요"},
			{"2024-03-01", "친절하지만 좁아요"},
		},
	}
	in := ReviewInput{
		Question:   "숨은 불만 보여줘",
		ScopeLabel: intent.AllBranchesLabel,
		Resolution: reviewResolution(res),
		Signals: []signals.SignalCount{
			{Signal: "웨이팅/대기", Count: 8, Ratio: 20, Repetitive: true},
			{Signal: "공간/좌석", Count: 2, Ratio: 5},
		},
		Hidden:        []signals.HiddenExample{{Score: 3, Text: "맛있는데 <mark>웨이팅</mark>이 길어요"}},
		PositiveCount: 10,
		HiddenCount:   4,
		Revisit: signals.RevisitMetrics{
			TotalReviews: 40, UniqueCustomers: 20, RepeatCustomers: 6, RepeatRate: 30,
			RevisitIntentReviews: 4, RevisitIntentRate: 10,
			AvgIntervalDays: &avg, MedianIntervalDays: &med, IntervalSamples: 5,
		},
		Density: []signals.BranchNegative{
			{Branch: "건대점", Ratio: 40}, {Branch: "강남점", Ratio: 10},
		},
		Recency: signals.Recency{Sufficient: true, Recent: 30, Previous: 20, Delta: 10},
	}
	md := NewRenderer().Review(in)

	sections := []string{
		"## 리뷰 분석 결과",
		"### 1) 핵심 결과",
		"### 2) 반복 부정 신호",
		"### 3) 긍정 속 숨은 불만 예시",
		"### 4) 재방문 지표 (닉네임 기준 추정)",
		"### 5) 점주 인사이트",
		"### 6) 분석 근거 (필요 시 확인)",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(md, s)
		require.GreaterOrEqual(t, idx, 0, s)
		assert.Greater(t, idx, last, s)
		last = idx
	}

	assert.Contains(t, md, "- 분석 범위: 전체 지점")
	assert.Contains(t, md, "| 웨이팅/대기 | 8건 | 20.0% | 반복적 |")
	assert.Contains(t, md, "1. 맛있는데 <mark>웨이팅</mark>이 길어요")
	assert.Contains(t, md, "- 재방문 고객: **6명 / 20명** (30.0%)")
	assert.Contains(t, md, "평균 **12.0일**, 중앙값 **10.0일** (표본 5건)")
	assert.Contains(t, md, "가장 강한 부정 신호는 **웨이팅/대기**이며, 8건(20.0%)으로 관찰됩니다.")
	assert.Contains(t, md, "반복적 신호(구조적 이슈 가능성): **웨이팅/대기**")
	assert.Contains(t, md, "리뷰 10건 중 **4건(40.0%)**")
	assert.Contains(t, md, "최고는 **건대점(40.0%)**, 최저는 **강남점(10.0%)**")
	assert.Contains(t, md, "**10.0%p 상승**")
	assert.Contains(t, md, "평균 방문 간격은 **12.0일**")
	assert.Contains(t, md, "```sql\nSELECT review_date FROM reviews LIMIT 12\n```")
	assert.NotContains(t, md, "> 참고:")
}

func TestReviewSentinels(t *testing.T) {
	in := ReviewInput{
		Question:   "강남점 리뷰 분석",
		ScopeLabel: "강남점",
		Resolution: reviewResolution(wideResult(6, 2)),
	}
	md := NewRenderer().Review(in)

	assert.Contains(t, md, "신호를 계산할 데이터가 없습니다.")
	assert.Contains(t, md, "숨은 불만 패턴이 뚜렷하게 감지되지 않았습니다.")
	assert.Contains(t, md, "분석 범위에 리뷰가 없어 재방문 지표를 산출하지 못했습니다.")
	assert.Contains(t, md, "닉네임 기준 재방문 고객이 충분히 잡히지 않았습니다.")
	assert.NotContains(t, md, "0명 / 0명")
}

func TestReviewRevisitWithoutIdentifiableCustomers(t *testing.T) {
	in := ReviewInput{
		Question:   "재방문 분석",
		ScopeLabel: intent.AllBranchesLabel,
		Resolution: reviewResolution(wideResult(6, 2)),
		Revisit: signals.RevisitMetrics{
			TotalReviews: 5, RevisitIntentReviews: 1, RevisitIntentRate: 20,
		},
	}
	md := NewRenderer().Review(in)

	assert.Contains(t, md, "- 재방문 고객: 식별 가능한 고객 표본이 없습니다.")
	assert.Contains(t, md, "- 리뷰 내 재방문 의사 언급: **1건 / 5건** (20.0%)")
	assert.NotContains(t, md, "0명 / 0명")
	assert.NotContains(t, md, "재방문 지표를 산출하지 못했습니다")
}

func TestReviewCompactAndDegraded(t *testing.T) {
	res := &store.Result{Columns: []string{"waiting_count"}, Rows: [][]any{{int64(7)}}}
	resolution := reviewResolution(res)
	resolution.Degraded = true
	resolution.Note = resolver.NoteGenerationFailed

	md := NewRenderer().Review(ReviewInput{
		Question:      "웨이팅 몇 건이야?",
		ScopeLabel:    intent.AllBranchesLabel,
		MetricRequest: true,
		Simple:        true,
		Resolution:    resolution,
	})

	assert.Contains(t, md, "> 참고: "+resolver.NoteGenerationFailed)
	assert.Contains(t, md, "### 답변\n- 웨이팅 언급 건수 **7건**")
	assert.Contains(t, md, "### 결과 표")
	assert.NotContains(t, md, "### 2) 반복 부정 신호")
}

func TestAnalyticalMetricQuestionUsesFullReport(t *testing.T) {
	res := &store.Result{Columns: []string{"waiting_count"}, Rows: [][]any{{int64(7)}}}
	question := "웨이팅 비율 추이 분석해서 몇 건인지 알려줘"
	ri := intent.ParseReview(question)
	require.True(t, ri.MetricRequest)
	require.False(t, ri.Simple)

	md := NewRenderer().Review(ReviewInput{
		Question:      question,
		ScopeLabel:    intent.AllBranchesLabel,
		MetricRequest: ri.MetricRequest,
		Simple:        ri.Simple,
		Resolution:    reviewResolution(res),
	})
	assert.NotContains(t, md, "### 답변")
	assert.Contains(t, md, "### 2) 반복 부정 신호")

	si := intent.ParseSales("최근 7일 매출 증감 비교 얼마야?")
	require.True(t, si.MetricRequest)
	require.False(t, si.Simple)
	sales := &store.Result{
		Columns: []string{"total_sales", "order_count", "avg_order_value", "start_date", "end_date"},
		Rows:    [][]any{{float64(150000), int64(10), float64(15000), "2024-03-01", "2024-03-07"}},
	}
	md = NewRenderer().Sales(SalesInput{
		Question:   "최근 7일 매출 증감 비교 얼마야?",
		Intent:     si,
		Resolution: salesResolution(sales),
	})
	assert.NotContains(t, md, "### 답변")
}

// ============================================================================
// SALES REPORT
// ============================================================================

func salesResolution(res *store.Result) *resolver.Resolution {
	return &resolver.Resolution{
		Domain:       intent.DomainSales,
		State:        resolver.StateTemplate,
		TemplateName: "sales.summary",
		SQL:          "SELECT 1",
		Result:       res,
	}
}

func TestSalesCompactSummary(t *testing.T) {
	days := 7
	res := &store.Result{
		Columns: []string{"total_sales", "order_count", "avg_order_value", "start_date", "end_date"},
		Rows:    [][]any{{float64(150000), int64(10), float64(15000), "2024-03-01", "2024-03-07"}},
	}
	salesPct, ordersPct := 50.0, 25.0
	md := NewRenderer().Sales(SalesInput{
		Question:   "최근 7일 매출 얼마야?",
		Intent:     intent.SalesIntent{RecentDays: &days, MetricRequest: true, Simple: true},
		Resolution: salesResolution(res),
		Comparison: &signals.Comparison{
			Sufficient: true, Days: 7,
			SalesDelta: 50000, SalesPct: &salesPct,
			OrdersDelta: 2, OrdersPct: &ordersPct,
			AOVDelta: 2500, AOVPct: nil,
			Pattern: signals.PatternVolumeGrowth,
			Drivers: []signals.Driver{{
				Column: "order_channel", Label: "주문채널",
				Up: &signals.Contribution{Value: "배달", Delta: 40000},
			}},
		},
	})

	assert.Contains(t, md, "- 최근 7일 기준 매출은 **150,000원**, 주문 건수는 **10건**, 객단가는 **15,000원**입니다. (기간: 2024-03-01 ~ 2024-03-07)")
	assert.Contains(t, md, "- 집계 매출은 **150,000원**입니다.")
	assert.Contains(t, md, "매출 **+50,000원 (+50.0%)**, 주문 **+2건 (+25.0%)**, 객단가 **+2,500원 (신규 구간)**")
	assert.Contains(t, md, "**주문량 증가**가 주도한 패턴")
	assert.Contains(t, md, "- 직전 7일 대비 주문채널 기준으로는 증가 기여는 **배달 (+40,000원)**입니다.")
	assert.Contains(t, md, "### 빠른 해석")
}

func TestSalesFullTopSegmentAndShortWindow(t *testing.T) {
	res := &store.Result{
		Columns: []string{"order_channel", "total_sales", "order_count"},
		Rows: [][]any{
			{"매장", float64(8000), int64(2)},
			{"배달", float64(12000), int64(3)},
		},
	}
	md := NewRenderer().Sales(SalesInput{
		Question:   "채널별 매출",
		Resolution: salesResolution(res),
		Comparison: &signals.Comparison{Days: 30},
	})

	assert.Contains(t, md, "### 1) 핵심 결과")
	assert.Contains(t, md, "- 가장 높은 매출 구간은 **배달 (12,000원)**입니다.")
	assert.Contains(t, md, "- 최근 30일과 직전 30일을 비교할 매출 데이터가 부족합니다.")
}

func TestSalesEmptyAndNoInsight(t *testing.T) {
	r := NewRenderer()
	md := r.Sales(SalesInput{
		Question:   "어제 매출",
		Resolution: salesResolution(&store.Result{Columns: []string{"total_sales"}}),
	})
	assert.Contains(t, md, "- 조회 결과가 없습니다.")
	assert.Contains(t, md, "- 결과가 없어 해석 포인트를 계산하지 못했습니다.")

	md = r.Sales(SalesInput{
		Question:   "상품 목록",
		Resolution: salesResolution(wideResult(8, 2)),
	})
	assert.Contains(t, md, "비교 기준(기간/채널/카테고리)을 지정해 주세요.")
}

func TestSalesSummaryContext(t *testing.T) {
	res := &store.Result{
		Columns: []string{"sales_date", "total_sales"},
		Rows:    [][]any{{"2024-03-07", float64(1000)}},
	}
	yesterday := 1
	got := salesSummary(intent.SalesIntent{DayOffset: &yesterday}, res)
	assert.Equal(t, "- 어제 기준 매출일은 **2024-03-07**, 매출은 **1,000원**입니다.", got)

	got = salesSummary(intent.SalesIntent{}, &store.Result{Columns: []string{"x"}, Rows: [][]any{{"y"}}})
	assert.Equal(t, "- 요청하신 결과를 표로 정리했습니다.", got)
}

func TestComparisonDays(t *testing.T) {
	days := 14
	got, ok := ComparisonDays(intent.SalesIntent{RecentDays: &days}, nil)
	assert.True(t, ok)
	assert.Equal(t, 14, got)

	res := &store.Result{
		Columns: []string{"start_date", "end_date"},
		Rows:    [][]any{{"2024-03-01", "2024-03-10"}},
	}
	got, ok = ComparisonDays(intent.SalesIntent{RecentHint: true}, res)
	assert.True(t, ok)
	assert.Equal(t, 10, got)

	_, ok = ComparisonDays(intent.SalesIntent{}, res)
	assert.False(t, ok)
}

// ============================================================================
// FAILURE BLOCKS
// ============================================================================

func TestFailureAndNotReady(t *testing.T) {
	r := NewRenderer()
	md := r.Failure("이상한 질문", &resolver.FatalError{
		Domain: intent.DomainSales,
		SQL:    "SELECT nope FROM sales",
		Cause:  eris.New("no such column: nope"),
	})
	assert.True(t, strings.HasPrefix(md, "## 분석 실패"))
	assert.Contains(t, md, "no such column: nope")
	assert.Contains(t, md, "```sql\nSELECT nope FROM sales\n```")

	assert.Contains(t, r.NotReady("매출 알려줘"), "sales engine not ready")
}

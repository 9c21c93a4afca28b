package report

import (
	"fmt"
	"strings"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/resolver"
	"github.com/spektr-org/insightbot/signals"
	"github.com/spektr-org/insightbot/store"
)

// SalesInput is everything a sales answer is rendered from. Comparison is
// nil when the question names no period.
type SalesInput struct {
	Question   string
	Intent     intent.SalesIntent
	Resolution *resolver.Resolution
	Comparison *signals.Comparison
}

// ComparisonDays decides the window for period-over-period insights: an
// explicit "최근 N일", or for a bare "최근" the range the result covers.
func ComparisonDays(si intent.SalesIntent, res *store.Result) (int, bool) {
	if si.RecentDays != nil && *si.RecentDays > 0 {
		return *si.RecentDays, true
	}
	if !si.RecentHint || res.Len() == 0 {
		return 0, false
	}
	start, okStart := cellDate(res, 0, "start_date", "min_date", "sales_date")
	end, okEnd := cellDate(res, 0, "end_date", "max_date")
	if !okStart || !okEnd {
		return 0, false
	}
	st, ok1 := ParseDate(start)
	en, ok2 := ParseDate(end)
	if !ok1 || !ok2 {
		return 0, false
	}
	return signals.InferDays(st, en)
}

// Sales renders a sales answer.
func (r *Renderer) Sales(in SalesInput) string {
	res := in.Resolution
	table := r.table(res.Result)

	var sb strings.Builder
	sb.WriteString("## 매출 분석 결과\n")
	fmt.Fprintf(&sb, "- 질문: %s\n", in.Question)
	writeNote(&sb, res)

	insights := r.salesInsights(in)
	if ChooseFormat(res.Result, in.Intent.MetricRequest && in.Intent.Simple) == FormatCompact {
		sb.WriteString("\n### 답변\n")
		sb.WriteString(salesSummary(in.Intent, res.Result))
		sb.WriteString("\n\n### 결과 표\n")
		writeTable(&sb, table)
		sb.WriteString("\n### 빠른 해석\n")
		writeLines(&sb, insights)
		sb.WriteString("\n")
		writeSQL(&sb, "### 분석 근거 (필요 시 확인)", res.SQL)
		return sb.String()
	}

	sb.WriteString("\n### 1) 핵심 결과\n")
	writeTable(&sb, table)
	sb.WriteString("\n### 2) 빠른 해석\n")
	writeLines(&sb, insights)
	sb.WriteString("\n")
	writeSQL(&sb, "### 3) 분석 근거 (필요 시 확인)", res.SQL)
	return sb.String()
}

// salesSummary is the one-line answer of the compact layout.
func salesSummary(si intent.SalesIntent, res *store.Result) string {
	if res.Len() == 0 {
		return "- 조회 결과가 없습니다."
	}

	var parts []string
	if v, ok := cellDate(res, 0, "sales_date", "date"); ok {
		if d := FormatDate(v); d != "" {
			parts = append(parts, fmt.Sprintf("매출일은 **%s**", d))
		}
	}
	if n, ok := cellNumber(res, 0, "total_sales", "net_sales_amount", "sum"); ok {
		parts = append(parts, fmt.Sprintf("매출은 **%s**", FormatCurrency(n)))
	}
	if n, ok := cellNumber(res, 0, "order_count", "count"); ok {
		parts = append(parts, fmt.Sprintf("주문 건수는 **%s**", FormatCount(n)))
	}
	if n, ok := cellNumber(res, 0, "avg_order_value", "avg"); ok {
		parts = append(parts, fmt.Sprintf("객단가는 **%s**", FormatCurrency(n)))
	}
	if len(parts) == 0 {
		return "- 요청하신 결과를 표로 정리했습니다."
	}

	period := ""
	start, okStart := cellDate(res, 0, "start_date", "min_date", "sales_date")
	end, okEnd := cellDate(res, 0, "end_date", "max_date")
	if okStart && okEnd {
		if s, e := FormatDate(start), FormatDate(end); s != "" && e != "" {
			period = fmt.Sprintf(" (기간: %s ~ %s)", s, e)
		}
	}

	context := ""
	switch {
	case si.DayOffset != nil && *si.DayOffset == 0:
		context = "오늘 기준 "
	case si.DayOffset != nil && *si.DayOffset == 1:
		context = "어제 기준 "
	case si.DayOffset != nil && *si.DayOffset == 2:
		context = "그저께 기준 "
	case si.RecentDays != nil:
		context = fmt.Sprintf("최근 %d일 기준 ", *si.RecentDays)
	case si.RecentHint:
		context = "최근 기준 "
	}
	return "- " + context + strings.Join(parts, ", ") + "입니다." + period
}

func (r *Renderer) salesInsights(in SalesInput) []string {
	res := in.Resolution.Result
	seed := in.Question
	if res.Len() == 0 {
		return []string{r.say("sales.empty", seed)}
	}

	var lines []string
	totalIdx := res.ColumnIndex("total_sales")
	if res.Len() == 1 {
		if n, ok := cellNumber(res, 0, "total_sales"); ok {
			lines = append(lines, r.say("sales.total", seed, FormatCurrency(n)))
		}
		if n, ok := cellNumber(res, 0, "order_count"); ok {
			lines = append(lines, r.say("sales.orders", seed, FormatCount(n)))
		}
		if n, ok := cellNumber(res, 0, "avg_order_value"); ok {
			lines = append(lines, r.say("sales.aov", seed, FormatCurrency(n)))
		}
	} else if totalIdx >= 0 {
		if line := r.topSegment(res, totalIdx, seed); line != "" {
			lines = append(lines, line)
		}
	}

	lines = append(lines, r.periodInsights(in.Comparison, seed)...)

	if len(lines) == 0 {
		lines = append(lines, r.say("sales.no_insight", seed))
	}
	return lines
}

func (r *Renderer) topSegment(res *store.Result, totalIdx int, seed string) string {
	labelIdx := -1
	for j := range res.Columns {
		if j != totalIdx {
			labelIdx = j
			break
		}
	}
	if labelIdx < 0 {
		return ""
	}
	best, bestVal := -1, 0.0
	for i, row := range res.Rows {
		v, ok := toFloat(row[totalIdx])
		if !ok {
			v = 0
		}
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	label := r.mask(dimensionLabel(res.Columns[labelIdx], res.Rows[best][labelIdx]))
	return r.say("sales.top_segment", seed, label, FormatCurrency(bestVal))
}

func (r *Renderer) periodInsights(c *signals.Comparison, seed string) []string {
	if c == nil {
		return nil
	}
	if !c.Sufficient {
		return []string{r.say("sales.period_short", seed, c.Days, c.Days)}
	}

	lines := []string{r.say("sales.period", seed, c.Days, c.Days,
		FormatSignedCurrency(c.SalesDelta), FormatSignedPercent(c.SalesPct),
		FormatSignedCount(float64(c.OrdersDelta)), FormatSignedPercent(c.OrdersPct),
		FormatSignedCurrency(c.AOVDelta), FormatSignedPercent(c.AOVPct))}

	switch c.Pattern {
	case signals.PatternPriceGrowth:
		lines = append(lines, r.say("sales.price_growth", seed))
	case signals.PatternVolumeGrowth:
		lines = append(lines, r.say("sales.volume_growth", seed))
	case signals.PatternVolumeDecline:
		lines = append(lines, r.say("sales.volume_decline", seed))
	case signals.PatternPriceDecline:
		lines = append(lines, r.say("sales.price_decline", seed))
	default:
		lines = append(lines, r.say("sales.mixed", seed,
			direction(float64(c.OrdersDelta)), direction(c.AOVDelta)))
	}

	for _, d := range c.Drivers {
		var pieces []string
		if d.Up != nil {
			pieces = append(pieces, fmt.Sprintf("증가 기여는 **%s (%s)**", d.Up.Value, FormatSignedCurrency(d.Up.Delta)))
		}
		if d.Down != nil {
			pieces = append(pieces, fmt.Sprintf("감소 기여는 **%s (%s)**", d.Down.Value, FormatSignedCurrency(d.Down.Delta)))
		}
		if len(pieces) > 0 {
			lines = append(lines, r.say("sales.driver", seed, c.Days, d.Label, strings.Join(pieces, ", ")))
		}
	}
	return lines
}

func direction(delta float64) string {
	switch {
	case delta > 0:
		return "증가"
	case delta < 0:
		return "감소"
	}
	return "보합"
}

// dimensionLabel renders a segment value for prose.
func dimensionLabel(column string, v any) string {
	if Classify(column) == KindDate {
		return FormatDate(v)
	}
	if n, ok := v.(float64); ok {
		return FormatNumber(n)
	}
	s := strings.TrimSpace(toText(v))
	if s == "" {
		return "(미지정)"
	}
	return s
}

func cellNumber(res *store.Result, row int, candidates ...string) (float64, bool) {
	for _, name := range candidates {
		if j := res.ColumnIndex(name); j >= 0 && row < res.Len() {
			return toFloat(res.Rows[row][j])
		}
	}
	return 0, false
}

func cellDate(res *store.Result, row int, candidates ...string) (any, bool) {
	for _, name := range candidates {
		if j := res.ColumnIndex(name); j >= 0 && row < res.Len() {
			v := res.Rows[row][j]
			return v, v != nil
		}
	}
	return nil, false
}

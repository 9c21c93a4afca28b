package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/spektr-org/insightbot/resolver"
	"github.com/spektr-org/insightbot/signals"
)

const (
	maxSignalRows  = 7
	repeatHighRate = 25.0
)

// ReviewInput is everything a review answer is rendered from. Signal
// fields are computed over the branch-scoped review population.
type ReviewInput struct {
	Question      string
	ScopeLabel    string
	MetricRequest bool
	Simple        bool
	Resolution    *resolver.Resolution

	Signals       []signals.SignalCount
	Hidden        []signals.HiddenExample
	PositiveCount int
	HiddenCount   int
	Revisit       signals.RevisitMetrics
	Density       []signals.BranchNegative
	Recency       signals.Recency
}

// Review renders a review answer.
func (r *Renderer) Review(in ReviewInput) string {
	res := in.Resolution
	table := r.table(res.Result)

	var sb strings.Builder
	sb.WriteString("## 리뷰 분석 결과\n")
	fmt.Fprintf(&sb, "- 질문: %s\n", in.Question)
	fmt.Fprintf(&sb, "- 분석 범위: %s\n", in.ScopeLabel)
	writeNote(&sb, res)

	if ChooseFormat(res.Result, in.MetricRequest && in.Simple) == FormatCompact {
		sb.WriteString("\n### 답변\n")
		sb.WriteString(compactAnswer(table))
		sb.WriteString("\n\n### 결과 표\n")
		writeTable(&sb, table)
		sb.WriteString("\n### 5) 점주 인사이트\n")
		writeLines(&sb, r.reviewInsights(in))
		sb.WriteString("\n")
		writeSQL(&sb, "### 6) 분석 근거 (필요 시 확인)", res.SQL)
		return sb.String()
	}

	sb.WriteString("\n### 1) 핵심 결과\n")
	writeTable(&sb, table)

	sb.WriteString("\n### 2) 반복 부정 신호\n")
	writeSignals(&sb, in.Signals)

	sb.WriteString("\n### 3) 긍정 속 숨은 불만 예시\n")
	if len(in.Hidden) == 0 {
		sb.WriteString("숨은 불만 패턴이 뚜렷하게 감지되지 않았습니다.\n")
	}
	for i, ex := range in.Hidden {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ex.Text)
	}

	sb.WriteString("\n### 4) 재방문 지표 (닉네임 기준 추정)\n")
	writeRevisit(&sb, in.Revisit)

	sb.WriteString("\n### 5) 점주 인사이트\n")
	writeLines(&sb, r.reviewInsights(in))
	sb.WriteString("\n")
	writeSQL(&sb, "### 6) 분석 근거 (필요 시 확인)", res.SQL)
	return sb.String()
}

func writeSignals(sb *strings.Builder, counts []signals.SignalCount) {
	if len(counts) == 0 {
		sb.WriteString("신호를 계산할 데이터가 없습니다.\n")
		return
	}
	sb.WriteString("| 신호 | 언급수 | 비율 | 반복성 |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	for _, c := range counts[:min(len(counts), maxSignalRows)] {
		kind := "산발적"
		if c.Repetitive {
			kind = "반복적"
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s |\n", c.Signal, FormatCount(float64(c.Count)), FormatPercent(c.Ratio), kind)
	}
}

func writeRevisit(sb *strings.Builder, m signals.RevisitMetrics) {
	if m.TotalReviews == 0 {
		sb.WriteString("- 분석 범위에 리뷰가 없어 재방문 지표를 산출하지 못했습니다.\n")
		return
	}
	if m.UniqueCustomers == 0 {
		sb.WriteString("- 재방문 고객: 식별 가능한 고객 표본이 없습니다. (닉네임과 작성일이 모두 있는 리뷰 없음)\n")
	} else {
		fmt.Fprintf(sb, "- 재방문 고객: **%d명 / %d명** (%s)\n", m.RepeatCustomers, m.UniqueCustomers, FormatPercent(m.RepeatRate))
	}
	fmt.Fprintf(sb, "- 리뷰 내 재방문 의사 언급: **%d건 / %d건** (%s)\n", m.RevisitIntentReviews, m.TotalReviews, FormatPercent(m.RevisitIntentRate))
	if m.AvgIntervalDays == nil || m.MedianIntervalDays == nil {
		sb.WriteString("- 방문 간격 추정: 동일 닉네임의 재방문 데이터가 부족해 산출하지 못했습니다.\n")
		return
	}
	fmt.Fprintf(sb, "- 방문 간격 추정: 평균 **%.1f일**, 중앙값 **%.1f일** (표본 %d건)\n",
		*m.AvgIntervalDays, *m.MedianIntervalDays, m.IntervalSamples)
}

func (r *Renderer) reviewInsights(in ReviewInput) []string {
	seed := in.Question
	var lines []string

	if len(in.Signals) > 0 {
		top := in.Signals[0]
		lines = append(lines, r.say("review.top_signal", seed, top.Signal, FormatCount(float64(top.Count)), FormatPercent(top.Ratio)))

		var repetitive []string
		for _, c := range in.Signals {
			if c.Repetitive {
				repetitive = append(repetitive, c.Signal)
			}
		}
		if len(repetitive) > 0 {
			lines = append(lines, r.say("review.repetitive", seed, strings.Join(repetitive[:min(3, len(repetitive))], ", ")))
		} else {
			lines = append(lines, r.say("review.sporadic", seed))
		}
	}

	if in.PositiveCount > 0 {
		ratio := float64(in.HiddenCount) / float64(in.PositiveCount) * 100
		lines = append(lines, r.say("review.hidden_ratio", seed,
			FormatCount(float64(in.PositiveCount)), FormatCount(float64(in.HiddenCount)), FormatPercent(ratio)))
	}

	if len(in.Density) >= 2 {
		hi, lo := in.Density[0], in.Density[len(in.Density)-1]
		lines = append(lines, r.say("review.branch_gap", seed,
			hi.Branch, FormatPercent(hi.Ratio), lo.Branch, FormatPercent(lo.Ratio)))
	}

	if in.Recency.Sufficient {
		direction := "상승"
		if in.Recency.Delta < 0 {
			direction = "하락"
		}
		lines = append(lines, r.say("review.recency", seed,
			FormatPercent(in.Recency.Recent), FormatPercent(in.Recency.Previous),
			fmt.Sprintf("%.1f%%p", math.Abs(in.Recency.Delta)), direction))
	} else if in.Revisit.TotalReviews > 0 {
		lines = append(lines, r.say("review.recency_short", seed))
	}

	rev := in.Revisit
	switch {
	case rev.RepeatRate >= repeatHighRate && rev.AvgIntervalDays != nil:
		lines = append(lines, r.say("review.repeat_interval", seed,
			FormatPercent(rev.RepeatRate), fmt.Sprintf("%.1f", *rev.AvgIntervalDays)))
	case rev.RepeatRate >= repeatHighRate:
		lines = append(lines, r.say("review.repeat_high", seed, FormatPercent(rev.RepeatRate)))
	case rev.RepeatRate > 0:
		lines = append(lines, r.say("review.repeat_low", seed, FormatPercent(rev.RepeatRate)))
	default:
		lines = append(lines, r.say("review.repeat_none", seed))
	}

	if len(in.Hidden) > 0 {
		lines = append(lines, r.say("review.hidden_watch", seed))
	} else {
		lines = append(lines, r.say("review.hidden_none", seed))
	}
	return lines
}

// compactAnswer summarizes a small result in one bullet.
func compactAnswer(t *TableData) string {
	switch {
	case t.TotalRows == 0:
		return "- 조회 결과가 없습니다."
	case t.TotalRows == 1:
		parts := make([]string, 0, len(t.Columns))
		for j, c := range t.Columns {
			if t.Rows[0][j] == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s **%s**", c.Label, t.Rows[0][j]))
		}
		return "- " + strings.Join(parts, ", ")
	}
	return fmt.Sprintf("- 조회 결과는 총 %d행입니다. 아래 표를 확인해 주세요.", t.TotalRows)
}

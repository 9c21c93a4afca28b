package report

import (
	"fmt"
	"hash/fnv"
	"math"
)

// ============================================================================
// PARAPHRASE POOL — Interchangeable wordings per insight sentence
// ============================================================================
// Each key holds equivalent templates, the first being the canonical one.
// A Selector picks which one to use. Selection never changes the facts a
// sentence carries, only its wording.
// ============================================================================

// Pool maps an insight key to its equivalent fmt templates.
type Pool map[string][]string

// Selector chooses one of n variants for an insight key.
type Selector interface {
	Pick(key, seed string, n int) int
}

// FirstSelector always picks the canonical wording.
type FirstSelector struct{}

func (FirstSelector) Pick(string, string, int) int { return 0 }

// SeededSelector widens the candidate set with temperature and picks
// deterministically from the question text, so a repeated question reads
// the same way twice.
type SeededSelector struct {
	Temperature float64
}

func (s SeededSelector) Pick(key, seed string, n int) int {
	if n <= 1 {
		return 0
	}
	t := math.Min(math.Max(s.Temperature, 0), 1)
	k := int(math.Ceil(1 + t*float64(n-1)))
	k = min(max(k, 1), n)
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(k))
}

// say renders key with args using the selected wording.
func (r *Renderer) say(key, seed string, args ...any) string {
	variants := r.pool[key]
	if len(variants) == 0 {
		variants = defaultPool[key]
	}
	if len(variants) == 0 {
		return ""
	}
	idx := r.selector.Pick(key, seed, len(variants))
	if idx < 0 || idx >= len(variants) {
		idx = 0
	}
	return fmt.Sprintf(variants[idx], args...)
}

var defaultPool = Pool{
	// reviews
	"review.top_signal": {
		"- 가장 강한 부정 신호는 **%s**이며, %s(%s)으로 관찰됩니다.",
		"- 부정 신호 중 **%s**가 가장 많이 언급되었고, %s(%s)입니다.",
	},
	"review.repetitive": {
		"- 반복적 신호(구조적 이슈 가능성): **%s**",
		"- 구조적 이슈로 볼 만큼 반복되는 신호: **%s**",
	},
	"review.sporadic": {
		"- 반복적 패턴보다 산발적 불만이 많아, 운영 이슈보다 특정 상황 이슈 가능성이 큽니다.",
		"- 불만이 한곳에 몰리지 않고 흩어져 있어, 구조적 문제보다 상황성 이슈에 가깝습니다.",
	},
	"review.hidden_ratio": {
		"- 칭찬 표현이 포함된 리뷰 %s 중 **%s(%s)**에서 조건부 불만이 함께 나타났습니다.",
	},
	"review.branch_gap": {
		"- 지점별 체감 품질 편차가 있습니다. 부정비율 최고는 **%s(%s)**, 최저는 **%s(%s)**입니다.",
		"- 부정비율은 **%s(%s)**이 가장 높고 **%s(%s)**이 가장 낮아 지점 간 차이가 보입니다.",
	},
	"review.recency": {
		"- 최근 30일 부정 언급 비율은 **%s**로, 직전 30일(%s) 대비 **%s %s**했습니다.",
	},
	"review.recency_short": {
		"- 최근/직전 30일 비교에 필요한 리뷰 수가 부족해 부정 언급 추세는 산출하지 않았습니다.",
	},
	"review.repeat_interval": {
		"- 재방문 비율이 **%s**로 높은 편이며, 평균 방문 간격은 **%s일**입니다. 멤버십/쿠폰 회전 주기를 이 간격에 맞추면 효율이 좋습니다.",
	},
	"review.repeat_high": {
		"- 재방문 비율이 **%s**로 높은 편입니다. 반복 방문 고객 전용 혜택 설계 여지가 큽니다.",
	},
	"review.repeat_low": {
		"- 재방문 비율은 **%s**입니다. 재방문 전환을 높이려면 첫 방문 직후 7일 내 리마인드 메시지가 효과적일 가능성이 큽니다.",
	},
	"review.repeat_none": {
		"- 닉네임 기준 재방문 고객이 충분히 잡히지 않았습니다. 리뷰 작성 유도 캠페인으로 고객 식별 가능한 표본을 먼저 늘리는 것이 좋습니다.",
	},
	"review.hidden_watch": {
		"- 숨은 불만 문장을 별도로 모니터링하면 '평점은 높지만 재방문이 줄어드는 구간'을 조기에 포착할 수 있습니다.",
		"- 칭찬 속 불만 문장을 따로 추적하면 만족도 하락을 평점보다 먼저 감지할 수 있습니다.",
	},
	"review.hidden_none": {
		"- 현재 샘플에서는 긍정-부정 혼합 문장이 상대적으로 적습니다.",
	},

	// sales
	"sales.total":       {"- 집계 매출은 **%s**입니다."},
	"sales.orders":      {"- 주문 건수는 **%s**입니다."},
	"sales.aov":         {"- 평균 객단가는 **%s**입니다."},
	"sales.top_segment": {"- 가장 높은 매출 구간은 **%s (%s)**입니다.", "- 매출이 가장 큰 구간은 **%s**로 %s입니다."},
	"sales.period": {
		"- 최근 %d일은 직전 %d일 대비 매출 **%s (%s)**, 주문 **%s (%s)**, 객단가 **%s (%s)** 변동입니다.",
	},
	"sales.period_short": {
		"- 최근 %d일과 직전 %d일을 비교할 매출 데이터가 부족합니다.",
	},
	"sales.price_growth": {
		"- 매출 상승은 주문량보다 **객단가 상승 영향**이 더 크게 작용한 패턴입니다.",
	},
	"sales.volume_growth": {
		"- 매출 상승은 고가 판매보다 **주문량 증가**가 주도한 패턴입니다.",
	},
	"sales.volume_decline": {
		"- 매출 하락의 주된 원인은 **방문/주문 건수 감소**로 해석됩니다.",
	},
	"sales.price_decline": {
		"- 주문 수는 유지됐지만 **객단가 하락**이 매출 감소에 영향을 준 흐름입니다.",
	},
	"sales.mixed": {
		"- 현재 변동은 주문(%s)과 객단가(%s)가 혼합되어 나타난 패턴입니다.",
	},
	"sales.driver": {
		"- 직전 %d일 대비 %s 기준으로는 %s입니다.",
	},
	"sales.empty": {
		"- 결과가 없어 해석 포인트를 계산하지 못했습니다.",
	},
	"sales.no_insight": {
		"- 표 데이터를 기반으로 추가 해석을 진행하려면 비교 기준(기간/채널/카테고리)을 지정해 주세요.",
	},
}

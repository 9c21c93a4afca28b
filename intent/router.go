// Package intent turns a free-text question into routing and intent flags
// using keyword and pattern heuristics only.
package intent

import "strings"

// ============================================================================
// DOMAIN ROUTING — Ordered rules, first match wins
// ============================================================================

// Domain is the fact table a question is answered from.
type Domain string

const (
	DomainReview Domain = "review"
	DomainSales  Domain = "sales"
)

// ForceSalesPrefix routes a question to sales regardless of its keywords.
const ForceSalesPrefix = "매출 분석 질문:"

var (
	reviewKeywords = []string{"리뷰", "후기", "평점", "만족", "불만", "키워드", "웨이팅", "서비스", "맛", "시설", "review"}
	salesKeywords  = []string{"매출", "주문", "객단가", "매출액", "전환율", "매출분석", "판매량", "영업이익", "손익", "비용", "원가", "매출 데이터", "sales", "revenue", "order"}
)

// Rule is one routing rule. Match receives the lowercased question.
type Rule struct {
	Name   string
	Domain Domain
	Match  func(lowered string) bool
}

// Decision is the routing outcome and the rule that produced it.
type Decision struct {
	Domain   Domain `json:"domain"`
	Rule     string `json:"rule"`
	Question string `json:"question"`
}

// Router evaluates rules in order and falls back to Default.
type Router struct {
	Rules   []Rule
	Default Rule
}

// DefaultRouter checks review keywords before sales keywords, so mixed
// questions ("매출 리뷰") go to reviews. Unmatched questions default to reviews.
func DefaultRouter() *Router {
	return &Router{
		Rules: []Rule{
			{Name: "review-keywords", Domain: DomainReview, Match: containsAnyFunc(reviewKeywords)},
			{Name: "sales-keywords", Domain: DomainSales, Match: containsAnyFunc(salesKeywords)},
		},
		Default: Rule{Name: "default-review", Domain: DomainReview},
	}
}

// Route classifies a question. The force-sales prefix is checked first and
// stripped; an empty remainder keeps the original text.
func (r *Router) Route(question string) Decision {
	trimmed := strings.TrimSpace(question)
	if strings.HasPrefix(trimmed, ForceSalesPrefix) {
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, ForceSalesPrefix))
		if rest == "" {
			rest = question
		}
		return Decision{Domain: DomainSales, Rule: "force-sales-prefix", Question: rest}
	}

	lowered := strings.ToLower(question)
	for _, rule := range r.Rules {
		if rule.Match(lowered) {
			return Decision{Domain: rule.Domain, Rule: rule.Name, Question: question}
		}
	}
	return Decision{Domain: r.Default.Domain, Rule: r.Default.Name, Question: question}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func containsAnyFunc(tokens []string) func(string) bool {
	return func(s string) bool { return containsAny(s, tokens) }
}

func compact(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

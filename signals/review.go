package signals

import (
	"html"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/schema"
)

// Thresholds tune when a signal counts as repetitive and when a
// recency comparison has enough data.
type Thresholds struct {
	MinWindow   int     `yaml:"min_window" json:"min_window"`
	MinTotal    int     `yaml:"min_total" json:"min_total"`
	RepeatCount int     `yaml:"repeat_count" json:"repeat_count"`
	RepeatRatio float64 `yaml:"repeat_ratio" json:"repeat_ratio"`
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MinWindow: 10, MinTotal: 20, RepeatCount: 5, RepeatRatio: 3.0}
}

// Masker redacts personal data from free text.
type Masker func(string) string

// Scope keeps the reviews that fall in branch.
func Scope(reviews []schema.Review, branch intent.Branch) []schema.Review {
	if branch.All() {
		return reviews
	}
	out := make([]schema.Review, 0, len(reviews))
	for _, r := range reviews {
		if branch.Includes(r.Branch) {
			out = append(out, r)
		}
	}
	return out
}

// ============================================================================
// NEGATIVE SIGNALS
// ============================================================================

// SignalCount is one negative-signal tally.
type SignalCount struct {
	Signal     string  `json:"signal"`
	Count      int     `json:"count"`
	Ratio      float64 `json:"ratio"`
	Repetitive bool    `json:"repetitive"`
}

// NegativeSignals counts each signal over reviews, most mentioned first.
// It returns nil when there are no reviews.
func NegativeSignals(reviews []schema.Review, th Thresholds) []SignalCount {
	if len(reviews) == 0 {
		return nil
	}
	total := float64(len(reviews))
	out := make([]SignalCount, len(NegativePatterns))
	for i, p := range NegativePatterns {
		count := 0
		for _, r := range reviews {
			if p.Match(r.Content) {
				count++
			}
		}
		ratio := float64(count) / total * 100
		out[i] = SignalCount{
			Signal:     p.Signal,
			Count:      count,
			Ratio:      ratio,
			Repetitive: count >= th.RepeatCount && ratio >= th.RepeatRatio,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ============================================================================
// HIDDEN COMPLAINTS
// ============================================================================

const (
	maxExampleRunes = 160
	clippedRunes    = 157
)

// HiddenExample is a praise-plus-complaint review ready for display.
// Text is HTML-escaped with negative terms highlighted.
type HiddenExample struct {
	Score int    `json:"score"`
	Text  string `json:"text"`
}

// HiddenComplaints returns the top n mixed-sentiment reviews by score.
func HiddenComplaints(reviews []schema.Review, n int, mask Masker) []HiddenExample {
	var out []HiddenExample
	for _, r := range reviews {
		if !IsHiddenComplaint(r.Content) {
			continue
		}
		score := 1
		if strings.Contains(r.Content, "근데") || strings.Contains(r.Content, "하지만") || strings.Contains(r.Content, "다만") {
			score++
		}
		if strings.Contains(r.Content, "아쉽") || strings.Contains(r.Content, "별로") {
			score++
		}
		out = append(out, HiddenExample{Score: score, Text: renderExample(r.Content, mask)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func renderExample(text string, mask Masker) string {
	if mask != nil {
		text = mask(text)
	}
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if runes := []rune(text); len(runes) > maxExampleRunes {
		text = string(runes[:clippedRunes]) + "..."
	}
	return highlight.ReplaceAllStringFunc(html.EscapeString(text), func(m string) string {
		return `<span class="neg-highlight"><strong>` + m + `</strong></span>`
	})
}

// HiddenRatio returns how many reviews contain praise and how many of
// those also carry a complaint.
func HiddenRatio(reviews []schema.Review) (positive, hidden int) {
	for _, r := range reviews {
		if positiveHint.MatchString(r.Content) {
			positive++
			if negativeHint.MatchString(r.Content) {
				hidden++
			}
		}
	}
	return positive, hidden
}

// ============================================================================
// REVISIT
// ============================================================================

// RevisitMetrics estimates repeat visits from nicknames.
type RevisitMetrics struct {
	TotalReviews         int      `json:"total_reviews"`
	UniqueCustomers      int      `json:"unique_customers"`
	RepeatCustomers      int      `json:"repeat_customers"`
	RepeatRate           float64  `json:"repeat_rate"`
	RevisitIntentReviews int      `json:"revisit_intent_reviews"`
	RevisitIntentRate    float64  `json:"revisit_intent_rate"`
	AvgIntervalDays      *float64 `json:"avg_interval_days"`
	MedianIntervalDays   *float64 `json:"median_interval_days"`
	IntervalSamples      int      `json:"interval_samples"`
}

// Revisit computes revisit metrics. Customers are identified by nickname
// and only dated reviews count toward customers and intervals.
func Revisit(reviews []schema.Review) RevisitMetrics {
	m := RevisitMetrics{TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return m
	}

	for _, r := range reviews {
		if revisitIntent.MatchString(r.Content) {
			m.RevisitIntentReviews++
		}
	}
	m.RevisitIntentRate = float64(m.RevisitIntentReviews) / float64(len(reviews)) * 100

	visits := make(map[string][]time.Time)
	var order []string
	for _, r := range reviews {
		nick := strings.TrimSpace(r.Nickname)
		if nick == "" || !r.Dated() {
			continue
		}
		if _, seen := visits[nick]; !seen {
			order = append(order, nick)
		}
		visits[nick] = append(visits[nick], r.Date)
	}
	if len(visits) == 0 {
		return m
	}

	m.UniqueCustomers = len(visits)
	var intervals []float64
	for _, nick := range order {
		dates := visits[nick]
		if len(dates) >= 2 {
			m.RepeatCustomers++
		}
		days := distinctDays(dates)
		for i := 1; i < len(days); i++ {
			if diff := days[i].Sub(days[i-1]).Hours() / 24; diff > 0 {
				intervals = append(intervals, diff)
			}
		}
	}
	m.RepeatRate = float64(m.RepeatCustomers) / float64(m.UniqueCustomers) * 100

	if len(intervals) > 0 {
		avg, med := mean(intervals), median(intervals)
		m.AvgIntervalDays = &avg
		m.MedianIntervalDays = &med
		m.IntervalSamples = len(intervals)
	}
	return m
}

func distinctDays(dates []time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := truncateDay(d)
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// ============================================================================
// RECENCY + BRANCH DENSITY
// ============================================================================

// Recency compares the negative-mention ratio of the last 30 days with the
// 30 days before.
type Recency struct {
	Sufficient bool    `json:"sufficient"`
	Recent     float64 `json:"recent"`
	Previous   float64 `json:"previous"`
	Delta      float64 `json:"delta"`
}

// RecencyDelta anchors both windows at the newest review date.
func RecencyDelta(reviews []schema.Review, th Thresholds) Recency {
	var dated []schema.Review
	var maxDate time.Time
	for _, r := range reviews {
		if !r.Dated() {
			continue
		}
		dated = append(dated, r)
		if day := truncateDay(r.Date); day.After(maxDate) {
			maxDate = day
		}
	}
	if len(dated) < th.MinTotal {
		return Recency{}
	}

	recentStart := maxDate.AddDate(0, 0, -29)
	prevStart := maxDate.AddDate(0, 0, -59)
	prevEnd := maxDate.AddDate(0, 0, -30)

	var recent, previous []schema.Review
	for _, r := range dated {
		day := truncateDay(r.Date)
		switch {
		case !day.Before(recentStart) && !day.After(maxDate):
			recent = append(recent, r)
		case !day.Before(prevStart) && !day.After(prevEnd):
			previous = append(previous, r)
		}
	}
	if len(recent) < th.MinWindow || len(previous) < th.MinWindow {
		return Recency{}
	}

	rr, pr := negativeRatio(recent), negativeRatio(previous)
	return Recency{Sufficient: true, Recent: rr, Previous: pr, Delta: rr - pr}
}

func negativeRatio(reviews []schema.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	n := 0
	for _, r := range reviews {
		if IsNegative(r.Content) {
			n++
		}
	}
	return float64(n) / float64(len(reviews)) * 100
}

// BranchNegative is one branch's share of negative reviews.
type BranchNegative struct {
	Branch   string  `json:"branch"`
	Reviews  int     `json:"reviews"`
	Negative int     `json:"negative"`
	Ratio    float64 `json:"ratio"`
}

// BranchDensity returns per-branch negative ratios, highest first.
func BranchDensity(reviews []schema.Review) []BranchNegative {
	idx := make(map[string]int)
	var out []BranchNegative
	for _, r := range reviews {
		i, ok := idx[r.Branch]
		if !ok {
			i = len(out)
			idx[r.Branch] = i
			out = append(out, BranchNegative{Branch: r.Branch})
		}
		out[i].Reviews++
		if IsNegative(r.Content) {
			out[i].Negative++
		}
	}
	for i := range out {
		out[i].Ratio = float64(out[i].Negative) / float64(out[i].Reviews) * 100
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return out[i].Branch < out[j].Branch
	})
	return out
}

package signals

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/schema"
)

// Growth patterns for a period comparison.
const (
	PatternPriceGrowth   = "price_growth"
	PatternVolumeGrowth  = "volume_growth"
	PatternVolumeDecline = "volume_decline"
	PatternPriceDecline  = "price_decline"
	PatternMixed         = "mixed"
)

const maxDriverRows = 6

// PeriodTotals aggregates one window.
type PeriodTotals struct {
	Sales  float64 `json:"sales"`
	Orders int     `json:"orders"`
	AOV    float64 `json:"aov"`
}

// Contribution is one dimension value's sales change.
type Contribution struct {
	Value string  `json:"value"`
	Delta float64 `json:"delta"`
}

// Driver names the largest positive and negative contributors of one
// dimension. Either side may be nil.
type Driver struct {
	Column string        `json:"column"`
	Label  string        `json:"label"`
	Up     *Contribution `json:"up,omitempty"`
	Down   *Contribution `json:"down,omitempty"`
}

// Comparison is the current window against the equal-length window
// before it. Percent deltas are nil for a new segment.
type Comparison struct {
	Sufficient  bool         `json:"sufficient"`
	Days        int          `json:"days"`
	Current     PeriodTotals `json:"current"`
	Previous    PeriodTotals `json:"previous"`
	SalesDelta  float64      `json:"sales_delta"`
	OrdersDelta int          `json:"orders_delta"`
	AOVDelta    float64      `json:"aov_delta"`
	SalesPct    *float64     `json:"sales_pct"`
	OrdersPct   *float64     `json:"orders_pct"`
	AOVPct      *float64     `json:"aov_pct"`
	Pattern     string       `json:"pattern"`
	Drivers     []Driver     `json:"drivers,omitempty"`
}

type window int

const (
	outside window = iota
	current
	previous
)

// PeriodComparison compares the last days (anchored at the newest
// sales_date) with the days before.
func PeriodComparison(sales []schema.Sale, days int) Comparison {
	days = max(1, min(days, intent.MaxRecentDays))

	var maxDate time.Time
	for _, s := range sales {
		if d := s.SalesDate(); d.After(maxDate) {
			maxDate = d
		}
	}
	if maxDate.IsZero() {
		return Comparison{}
	}

	curStart := maxDate.AddDate(0, 0, -(days - 1))
	prevStart := maxDate.AddDate(0, 0, -(2*days - 1))
	prevEnd := maxDate.AddDate(0, 0, -days)
	classify := func(s schema.Sale) window {
		d := s.SalesDate()
		switch {
		case d.IsZero():
			return outside
		case !d.Before(curStart) && !d.After(maxDate):
			return current
		case !d.Before(prevStart) && !d.After(prevEnd):
			return previous
		}
		return outside
	}

	var cur, prev totalsBuilder
	for _, s := range sales {
		switch classify(s) {
		case current:
			cur.add(s)
		case previous:
			prev.add(s)
		}
	}

	c := Comparison{
		Sufficient: true,
		Days:       days,
		Current:    cur.totals(),
		Previous:   prev.totals(),
	}
	c.SalesDelta = c.Current.Sales - c.Previous.Sales
	c.OrdersDelta = c.Current.Orders - c.Previous.Orders
	c.AOVDelta = c.Current.AOV - c.Previous.AOV
	c.SalesPct = PctDelta(c.Current.Sales, c.Previous.Sales)
	c.OrdersPct = PctDelta(float64(c.Current.Orders), float64(c.Previous.Orders))
	c.AOVPct = PctDelta(c.Current.AOV, c.Previous.AOV)
	c.Pattern = growthPattern(c.SalesDelta, float64(c.OrdersDelta), c.AOVDelta)

	for _, dim := range []struct {
		column, label string
		value         func(schema.Sale) string
	}{
		{"order_channel", "주문채널", func(s schema.Sale) string { return s.Channel }},
		{"category", "카테고리", func(s schema.Sale) string { return s.Category }},
	} {
		if d, ok := driver(sales, classify, dim.column, dim.label, dim.value); ok {
			c.Drivers = append(c.Drivers, d)
		}
	}
	return c
}

// PctDelta is the percent change, 0 when both are zero and nil when only
// the previous value is zero.
func PctDelta(cur, prev float64) *float64 {
	if prev == 0 {
		if cur == 0 {
			zero := 0.0
			return &zero
		}
		return nil
	}
	pct := (cur - prev) / prev * 100
	return &pct
}

func growthPattern(sales, orders, aov float64) string {
	switch {
	case sales > 0 && aov > 0 && orders <= 0:
		return PatternPriceGrowth
	case sales > 0 && orders > 0 && aov <= 0:
		return PatternVolumeGrowth
	case sales < 0 && orders < 0 && aov >= 0:
		return PatternVolumeDecline
	case sales < 0 && aov < 0 && orders >= 0:
		return PatternPriceDecline
	}
	return PatternMixed
}

type totalsBuilder struct {
	sum    decimal.Decimal
	orders map[string]struct{}
}

func (t *totalsBuilder) add(s schema.Sale) {
	t.sum = t.sum.Add(decimal.NewFromFloat(s.NetSales))
	if t.orders == nil {
		t.orders = make(map[string]struct{})
	}
	t.orders[s.OrderKey] = struct{}{}
}

func (t *totalsBuilder) totals() PeriodTotals {
	out := PeriodTotals{Sales: t.sum.InexactFloat64(), Orders: len(t.orders)}
	if out.Orders > 0 {
		out.AOV = t.sum.Div(decimal.NewFromInt(int64(out.Orders))).InexactFloat64()
	}
	return out
}

func driver(sales []schema.Sale, classify func(schema.Sale) window, column, label string, value func(schema.Sale) string) (Driver, bool) {
	type pair struct{ cur, prev decimal.Decimal }
	byValue := make(map[string]*pair)
	for _, s := range sales {
		w := classify(s)
		v := strings.TrimSpace(value(s))
		if w == outside || v == "" {
			continue
		}
		p, ok := byValue[v]
		if !ok {
			p = &pair{}
			byValue[v] = p
		}
		amount := decimal.NewFromFloat(s.NetSales)
		if w == current {
			p.cur = p.cur.Add(amount)
		} else {
			p.prev = p.prev.Add(amount)
		}
	}

	deltas := make([]Contribution, 0, len(byValue))
	for v, p := range byValue {
		deltas = append(deltas, Contribution{Value: v, Delta: p.cur.Sub(p.prev).InexactFloat64()})
	}
	sort.Slice(deltas, func(i, j int) bool {
		ai, aj := math.Abs(deltas[i].Delta), math.Abs(deltas[j].Delta)
		if ai != aj {
			return ai > aj
		}
		return deltas[i].Value < deltas[j].Value
	})
	if len(deltas) > maxDriverRows {
		deltas = deltas[:maxDriverRows]
	}

	d := Driver{Column: column, Label: label}
	for i := range deltas {
		c := deltas[i]
		if c.Delta > 0 && (d.Up == nil || c.Delta > d.Up.Delta) {
			d.Up = &c
		}
		if c.Delta < 0 && (d.Down == nil || c.Delta < d.Down.Delta) {
			d.Down = &c
		}
	}
	return d, d.Up != nil || d.Down != nil
}

// InferDays turns a start/end date range into an inclusive day count,
// capped at the maximum window.
func InferDays(start, end time.Time) (int, bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	days := int(truncateDay(end).Sub(truncateDay(start)).Hours()/24) + 1
	if days <= 0 {
		return 0, false
	}
	return min(days, intent.MaxRecentDays), true
}

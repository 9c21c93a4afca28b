package report

import (
	"strings"
)

// Kind is the display class of a result column.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindCurrency Kind = "currency"
	KindCount    Kind = "count"
	KindPercent  Kind = "percent"
	KindDate     Kind = "date"
)

var moneyColumns = map[string]bool{
	"total_sales": true, "avg_order_value": true, "product_price": true,
	"option_price": true, "product_discount": true, "order_discount": true,
	"line_total_amount": true, "actual_sales_amount": true, "net_sales_amount": true,
	"vat_amount": true, "총매출": true, "객단가": true,
}

var countColumns = map[string]bool{"order_count": true, "주문 건수": true}

var dateColumns = map[string]bool{
	"sales_date": true, "start_date": true, "end_date": true, "review_date": true,
	"매출 일자": true, "집계 시작일": true, "집계 종료일": true, "리뷰 일자": true,
}

// Classify picks a display kind from the column name alone. Checks run
// percent, date, currency, count, in that order.
func Classify(column string) Kind {
	original := strings.TrimSpace(column)
	normalized := strings.ToLower(original)
	switch {
	case strings.Contains(normalized, "ratio") || strings.Contains(normalized, "pct") ||
		strings.Contains(original, "비율") || strings.Contains(original, "%"):
		return KindPercent
	case dateColumns[normalized] || dateColumns[original] ||
		strings.Contains(normalized, "date") || strings.Contains(original, "일자"):
		return KindDate
	case moneyColumns[normalized] || moneyColumns[original]:
		return KindCurrency
	case countColumns[normalized] || countColumns[original] ||
		strings.HasSuffix(normalized, "_count") || strings.Contains(original, "건수"):
		return KindCount
	}
	return KindNumber
}

// FormatCell renders one result cell for column.
func FormatCell(column string, v any) string {
	if v == nil {
		return ""
	}
	kind := Classify(column)
	if kind == KindDate {
		return FormatDate(v)
	}
	if s, ok := v.(string); ok && leadingDate.MatchString(strings.TrimSpace(s)) {
		return FormatDate(s)
	}

	n, ok := toFloat(v)
	if !ok {
		return clip(toText(v), defaultCellClip)
	}
	if _, isText := v.(string); isText && kind == KindNumber {
		return clip(toText(v), defaultCellClip)
	}
	switch kind {
	case KindPercent:
		return FormatPercent(n)
	case KindCurrency:
		return FormatCurrency(n)
	case KindCount:
		return FormatCount(n)
	}
	return FormatNumber(n)
}

package schema

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// HEADER MAPPING — Source spreadsheet headers → canonical column keys
// ============================================================================
// POS exports label the same column many ways ("상품할인 금액", "상품할인금액",
// line-wrapped cells, NFD-encoded Hangul from macOS). Headers are NFC
// normalized and whitespace-compacted before lookup.
// ============================================================================

var salesHeaderAliases = map[string]string{
	"지점명":                "branch_name",
	"매장명":                "branch_name",
	"지점":                 "branch_name",
	"매장":                 "branch_name",
	"주문기준일자":             "order_base_date",
	"주문일자":               "order_base_date",
	"주문기준 날짜":            "order_base_date",
	"주문기준일시":             "order_base_date",
	"주문번호":               "order_number",
	"주문시작시각":             "order_start_time",
	"주문시작시각(시분초)":        "order_start_time",
	"주문시작시간":             "order_start_time",
	"주문채널":               "order_channel",
	"결제상태":               "payment_status",
	"카테고리":               "category",
	"상품명":                "product_name",
	"수량":                 "quantity",
	"상품가격":               "product_price",
	"옵션":                 "option_name",
	"옵션명":                "option_name",
	"옵션가격":               "option_price",
	"상품할인금액":             "product_discount",
	"상품할인 금액":            "product_discount",
	"주문할인금액":             "order_discount",
	"주문할인 금액":            "order_discount",
	"실판매금액":              "actual_sales_amount",
	"실판매금액(할인,옵션포함)":     "actual_sales_amount",
	"실판매금액(할인옵션포함)":      "actual_sales_amount",
	"실판매금액(할인, 옵션 포함)":   "actual_sales_amount",
	"과세여부":               "tax_type",
	"부가세액":               "vat_amount",
}

var reviewHeaderAliases = map[string]string{
	"지점명":            "branch_name",
	"지점":             "branch_name",
	"branch_name":    "branch_name",
	"date":           "date_text",
	"날짜":             "date_text",
	"작성일":            "date_text",
	"nickname":       "nickname",
	"닉네임":            "nickname",
	"review_content": "review_content",
	"리뷰":             "review_content",
	"리뷰내용":           "review_content",
	"wait_time":      "wait_time",
	"대기시간":           "wait_time",
}

var (
	salesHeaderIndex  = compactKeys(salesHeaderAliases)
	reviewHeaderIndex = compactKeys(reviewHeaderAliases)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	nonIdentifierRun  = regexp.MustCompile(`[^0-9a-z]+`)
)

func compactKeys(aliases map[string]string) map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[NormalizeHeader(k)] = v
	}
	return out
}

// NormalizeHeader NFC-normalizes a raw header and removes all whitespace.
func NormalizeHeader(raw string) string {
	s := norm.NFC.String(raw)
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "")
}

// MapSalesHeader resolves a raw sales header to its canonical key.
func MapSalesHeader(raw string) (string, bool) {
	key, ok := salesHeaderIndex[NormalizeHeader(raw)]
	return key, ok
}

// MapReviewHeader resolves a raw review CSV header to its canonical key.
func MapReviewHeader(raw string) (string, bool) {
	key, ok := reviewHeaderIndex[strings.ToLower(NormalizeHeader(raw))]
	return key, ok
}

// SafeIdentifier turns an unmapped header into an ASCII snake_case key.
// Headers with no ASCII content become extra_col_<n> (1-based).
func SafeIdentifier(raw string, index int) string {
	decomposed := norm.NFKD.String(raw)
	var b strings.Builder
	for _, r := range decomposed {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	id := toSnakeCase(b.String())
	id = strings.Trim(nonIdentifierRun.ReplaceAllString(id, "_"), "_")
	if id == "" {
		return "extra_col_" + strconv.Itoa(index+1)
	}
	return id
}

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = strings.ToLower(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

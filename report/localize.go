package report

import "strings"

var columnLabels = map[string]string{
	// reviews
	"review_id":      "리뷰 번호",
	"signal":         "신호",
	"mention_count":  "언급 건수",
	"ratio_pct":      "비율(%)",
	"review_date":    "리뷰 일자",
	"nickname":       "닉네임",
	"review_content": "리뷰 내용",
	"wait_time":      "대기시간",
	"waiting_count":  "웨이팅 언급 건수",
	"keyword":        "키워드",
	"occurrences":    "언급 건수",
	"pct_of_recent":  "최근 비율(%)",
	"count":          "건수",
	"avg":            "평균",
	"sum":            "합계",
	"min":            "최소",
	"max":            "최대",
	"review_year":    "리뷰 연도",
	"review_month":   "리뷰 월",
	"review_day":     "리뷰 일",
	"review_length":  "리뷰 길이",
	"date_text":      "작성일 원문",

	// sales
	"sales_row_id":        "행 번호",
	"report_name":         "리포트 파일",
	"sheet_name":          "시트명",
	"branch_name":         "지점명",
	"order_base_date":     "주문 기준 일시",
	"order_start_time":    "주문 시작 시각",
	"sales_date":          "매출 일자",
	"sales_year":          "매출 연도",
	"sales_month":         "매출 월",
	"sales_day":           "매출 일",
	"sales_hour":          "매출 시각(시)",
	"order_number":        "주문번호",
	"order_key":           "주문 식별키",
	"order_channel":       "주문채널",
	"payment_status":      "결제상태",
	"category":            "카테고리",
	"product_name":        "상품명",
	"option_name":         "옵션명",
	"tax_type":            "과세여부",
	"quantity":            "수량",
	"product_price":       "상품가격",
	"option_price":        "옵션가격",
	"product_discount":    "상품할인",
	"order_discount":      "주문할인",
	"line_total_amount":   "라인합계금액",
	"actual_sales_amount": "실판매금액",
	"net_sales_amount":    "순매출금액",
	"vat_amount":          "부가세액",
	"total_sales":         "총매출",
	"order_count":         "주문 건수",
	"avg_order_value":     "객단가",
	"start_date":          "집계 시작일",
	"end_date":            "집계 종료일",
	"month_bucket":        "구분",
}

var tokenLabels = map[string]string{
	"review":    "리뷰",
	"branch":    "지점",
	"name":      "명",
	"date":      "일자",
	"content":   "내용",
	"nickname":  "닉네임",
	"count":     "건수",
	"ratio":     "비율",
	"pct":       "비율",
	"month":     "월",
	"year":      "연도",
	"day":       "일",
	"length":    "길이",
	"revisit":   "재방문",
	"customer":  "고객",
	"customers": "고객수",
	"interval":  "간격",
	"avg":       "평균",
	"median":    "중앙값",
	"id":        "번호",
	"sales":     "매출",
	"total":     "합계",
	"order":     "주문",
	"orders":    "주문수",
	"channel":   "채널",
	"hour":      "시각",
	"amount":    "금액",
}

// Localize returns the Korean header for a result column. Unknown names
// are translated token by token; names with no known token stay as-is.
func Localize(column string) string {
	normalized := strings.ToLower(strings.TrimSpace(column))
	if label, ok := columnLabels[normalized]; ok {
		return label
	}
	tokens := strings.Split(normalized, "_")
	for i, tok := range tokens {
		if label, ok := tokenLabels[tok]; ok {
			tokens[i] = label
		}
	}
	translated := strings.TrimSpace(strings.Join(tokens, " "))
	if translated == strings.ReplaceAll(normalized, "_", " ") {
		return column
	}
	return translated
}

package schema

import (
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the two fact tables for the store, prompts and reports
// ============================================================================
// The store uses Kind to pick column types when it materializes a table.
// The translator renders Describe() into the LLM system prompt.
// The report layer uses Label for localized column headers.
// ============================================================================

// Kind is the storage type of a column.
type Kind string

const (
	KindText      Kind = "text"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindDate      Kind = "date"
	KindTimestamp Kind = "timestamp"
)

// Table names. These are the only identifiers templates and validation accept.
const (
	ReviewsTableName = "reviews"
	SalesTableName   = "sales"
)

// Column describes one column of a fact table.
type Column struct {
	Key         string `json:"key" yaml:"key"`
	Label       string `json:"label" yaml:"label"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Table describes a complete fact table.
type Table struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Columns     []Column `json:"columns"`
}

// ColumnKeys returns all column keys in table order.
func (t Table) ColumnKeys() []string {
	keys := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Column looks up a column by key.
func (t Table) Column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Describe renders "- key KIND (description)" lines for prompt building.
func (t Table) Describe() string {
	var b strings.Builder
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "- %s %s", c.Key, strings.ToUpper(string(c.Kind)))
		if c.Description != "" {
			fmt.Fprintf(&b, " (%s)", c.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ============================================================================
// FACT TABLES
// ============================================================================

// ReviewsTable is the normalized review fact table.
func ReviewsTable() Table {
	return Table{
		Name:        ReviewsTableName,
		Description: "Customer reviews, one row per review",
		Columns: []Column{
			{Key: "review_id", Label: "리뷰 번호", Kind: KindInt},
			{Key: "branch_name", Label: "지점명", Kind: KindText},
			{Key: "date_text", Label: "작성일 원문", Kind: KindText, Description: "Korean date text"},
			{Key: "review_date", Label: "리뷰 일자", Kind: KindDate, Description: "NULL when date_text has no valid date"},
			{Key: "review_year", Label: "리뷰 연도", Kind: KindInt},
			{Key: "review_month", Label: "리뷰 월", Kind: KindInt},
			{Key: "review_day", Label: "리뷰 일", Kind: KindInt},
			{Key: "nickname", Label: "닉네임", Kind: KindText},
			{Key: "review_content", Label: "리뷰 내용", Kind: KindText},
			{Key: "wait_time", Label: "대기시간", Kind: KindText},
			{Key: "review_length", Label: "리뷰 길이", Kind: KindInt},
		},
	}
}

// SalesTable is the normalized point-of-sale line table.
func SalesTable() Table {
	return Table{
		Name:        SalesTableName,
		Description: "Point-of-sale order lines, one row per product line",
		Columns: []Column{
			{Key: "sales_row_id", Label: "행 번호", Kind: KindInt},
			{Key: "report_name", Label: "리포트 파일", Kind: KindText},
			{Key: "sheet_name", Label: "시트명", Kind: KindText},
			{Key: "branch_name", Label: "지점명", Kind: KindText},
			{Key: "order_base_date", Label: "주문 기준 일시", Kind: KindTimestamp},
			{Key: "sales_date", Label: "매출 일자", Kind: KindDate, Description: "use for date filters and trends"},
			{Key: "sales_year", Label: "매출 연도", Kind: KindInt},
			{Key: "sales_month", Label: "매출 월", Kind: KindInt},
			{Key: "sales_day", Label: "매출 일", Kind: KindInt},
			{Key: "order_start_time", Label: "주문 시작 시각", Kind: KindTimestamp},
			{Key: "sales_hour", Label: "매출 시각(시)", Kind: KindInt},
			{Key: "order_number", Label: "주문번호", Kind: KindText, Description: "may be a table label, do not count distinct"},
			{Key: "order_key", Label: "주문 식별키", Kind: KindText, Description: "use COUNT(DISTINCT order_key) for order counts"},
			{Key: "order_channel", Label: "주문채널", Kind: KindText},
			{Key: "payment_status", Label: "결제상태", Kind: KindText},
			{Key: "category", Label: "카테고리", Kind: KindText},
			{Key: "product_name", Label: "상품명", Kind: KindText},
			{Key: "option_name", Label: "옵션명", Kind: KindText},
			{Key: "tax_type", Label: "과세여부", Kind: KindText},
			{Key: "quantity", Label: "수량", Kind: KindInt},
			{Key: "product_price", Label: "상품가격", Kind: KindFloat},
			{Key: "option_price", Label: "옵션가격", Kind: KindFloat},
			{Key: "product_discount", Label: "상품할인", Kind: KindFloat},
			{Key: "order_discount", Label: "주문할인", Kind: KindFloat},
			{Key: "line_total_amount", Label: "라인합계금액", Kind: KindFloat},
			{Key: "actual_sales_amount", Label: "실판매금액", Kind: KindFloat},
			{Key: "net_sales_amount", Label: "순매출금액", Kind: KindFloat, Description: "use for all amount metrics"},
			{Key: "vat_amount", Label: "부가세액", Kind: KindFloat},
		},
	}
}

// ByName returns the fact table with the given name.
func ByName(name string) (Table, bool) {
	switch name {
	case ReviewsTableName:
		return ReviewsTable(), true
	case SalesTableName:
		return SalesTable(), true
	}
	return Table{}, false
}

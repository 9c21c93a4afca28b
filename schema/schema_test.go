package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// TABLE + RECORD TESTS
// ============================================================================

func TestRecordValuesMatchColumnOrder(t *testing.T) {
	review := Review{ID: 1, Branch: "강남점", Content: "맛있어요", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}
	assert.Len(t, review.Values(), len(ReviewsTable().Columns))

	sale := Sale{RowID: 1, Quantity: 1}
	assert.Len(t, sale.Values(), len(SalesTable().Columns))
}

func TestReviewValuesNullDate(t *testing.T) {
	values := Review{ID: 7, DateText: "어제", Content: "좋아요"}.Values()

	assert.Nil(t, values[3], "review_date must be NULL")
	assert.Nil(t, values[4], "review_year must be NULL")
	assert.Equal(t, int64(3), values[10], "review_length counts runes")
}

func TestSaleSalesDateTruncatesTime(t *testing.T) {
	sale := Sale{OrderBaseDate: time.Date(2024, 3, 5, 21, 14, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-05", sale.SalesDate().Format("2006-01-02"))
	assert.True(t, Sale{}.SalesDate().IsZero())
}

func TestDescribeListsEveryColumn(t *testing.T) {
	table := SalesTable()
	desc := table.Describe()
	for _, key := range table.ColumnKeys() {
		assert.Contains(t, desc, "- "+key+" ")
	}
	assert.Contains(t, desc, "COUNT(DISTINCT order_key)")
}

func TestByName(t *testing.T) {
	table, ok := ByName("reviews")
	require.True(t, ok)
	assert.Equal(t, ReviewsTableName, table.Name)

	_, ok = ByName("orders")
	assert.False(t, ok)
}

// ============================================================================
// HEADER TESTS
// ============================================================================

func TestMapSalesHeader(t *testing.T) {
	cases := map[string]string{
		"지점명":                "branch_name",
		" 상품할인 금액 ":          "product_discount",
		"상품할인\n금액":           "product_discount",
		"실판매금액(할인, 옵션 포함)": "actual_sales_amount",
		"주문시작시각(시분초)":        "order_start_time",
	}
	for raw, want := range cases {
		got, ok := MapSalesHeader(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := MapSalesHeader("배달팁")
	assert.False(t, ok)
}

func TestMapSalesHeaderNFD(t *testing.T) {
	// decomposed into conjoining jamo
	nfd := norm.NFD.String("수량")
	got, ok := MapSalesHeader(nfd)
	require.True(t, ok)
	assert.Equal(t, "quantity", got)
}

func TestMapReviewHeader(t *testing.T) {
	got, ok := MapReviewHeader("Review_Content")
	require.True(t, ok)
	assert.Equal(t, "review_content", got)

	got, ok = MapReviewHeader("지점명")
	require.True(t, ok)
	assert.Equal(t, "branch_name", got)
}

func TestSafeIdentifier(t *testing.T) {
	assert.Equal(t, "delivery_tip", SafeIdentifier("Delivery Tip", 0))
	assert.Equal(t, "pos_id", SafeIdentifier("posID", 0))
	assert.Equal(t, "extra_col_3", SafeIdentifier("배달팁", 2))
}

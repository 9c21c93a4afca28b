package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/insightbot/schema"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func reviewDataset(contents ...string) Dataset {
	reviews := make([]schema.Review, len(contents))
	for i, c := range contents {
		reviews[i] = schema.Review{
			ID:       int64(i + 1),
			Branch:   "왕십리한양대점",
			DateText: "2024년 1월 1일",
			Date:     day("2024-01-01").AddDate(0, 0, i),
			Nickname: "손님",
			Content:  c,
		}
	}
	return Dataset{Table: schema.ReviewsTable(), Reviews: reviews, Source: SourceInfo{Rows: len(reviews)}}
}

func salesDataset() Dataset {
	sales := []schema.Sale{
		{RowID: 1, Branch: "강남점", OrderBaseDate: day("2024-03-01"), OrderKey: "a", NetSales: 1000, Quantity: 1},
		{RowID: 2, Branch: "강남점", OrderBaseDate: day("2024-03-01"), OrderKey: "a", NetSales: 500, Quantity: 1},
		{RowID: 3, Branch: "강남점", OrderBaseDate: day("2024-03-02"), OrderKey: "b", NetSales: 2000, Quantity: 2},
	}
	return Dataset{Table: schema.SalesTable(), Sales: sales}
}

func openSQLite(t *testing.T, ds Dataset) Backend {
	t.Helper()
	b, err := OpenSQLite(context.Background(), ds)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// ============================================================================
// SQLITE BACKEND
// ============================================================================

func TestSQLiteQueryNormalizesCells(t *testing.T) {
	b := openSQLite(t, salesDataset())

	res, err := b.Query(context.Background(),
		"SELECT sales_date, SUM(net_sales_amount) AS total, COUNT(DISTINCT order_key) AS orders FROM sales GROUP BY sales_date ORDER BY sales_date")
	require.NoError(t, err)

	assert.Equal(t, []string{"sales_date", "total", "orders"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{"2024-03-01", 1500.0, int64(1)}, res.Rows[0])
	assert.Equal(t, []any{"2024-03-02", 2000.0, int64(1)}, res.Rows[1])
}

func TestSQLiteNullDate(t *testing.T) {
	ds := reviewDataset("좋아요")
	ds.Reviews[0].Date = time.Time{}
	b := openSQLite(t, ds)

	res, err := b.Query(context.Background(), "SELECT review_date, review_length FROM reviews")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Nil(t, res.Rows[0][0])
	assert.Equal(t, int64(3), res.Rows[0][1])
}

func TestSQLiteRegexpMatches(t *testing.T) {
	b := openSQLite(t, reviewDataset("웨이팅이 너무 길어요", "맛있어요", "WAIT long"))

	res, err := b.Query(context.Background(),
		"SELECT review_id FROM reviews WHERE regexp_matches(review_content, '웨이팅|wait', 'i') ORDER BY review_id")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}, {int64(3)}}, res.Rows)

	res, err = b.Query(context.Background(), "SELECT COUNT(*) FROM reviews WHERE review_content REGEXP '맛'")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0][0])
}

func TestSQLiteReaderIsReadOnly(t *testing.T) {
	b := openSQLite(t, reviewDataset("a"))

	_, err := b.Query(context.Background(), "DELETE FROM reviews")
	require.Error(t, err)

	res, err := b.Query(context.Background(), "SELECT COUNT(*) FROM reviews")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0][0])
}

func TestSQLiteSnapshotsAreIsolated(t *testing.T) {
	a := openSQLite(t, reviewDataset("a", "b"))
	b := openSQLite(t, reviewDataset("c"))

	ra, err := a.Query(context.Background(), "SELECT COUNT(*) FROM reviews")
	require.NoError(t, err)
	rb, err := b.Query(context.Background(), "SELECT COUNT(*) FROM reviews")
	require.NoError(t, err)

	assert.Equal(t, int64(2), ra.Rows[0][0])
	assert.Equal(t, int64(1), rb.Rows[0][0])
}

func TestSQLiteDialectFragmentsExecute(t *testing.T) {
	b := openSQLite(t, salesDataset())
	d := b.Dialect()

	q := "SELECT " + d.DaysBefore("MAX(sales_date)", 6) + ", " +
		d.MonthStart("MAX(sales_date)") + ", " +
		d.PrevMonthStart("MAX(sales_date)") + " FROM sales"
	res, err := b.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-02-25", "2024-03-01", "2024-02-01"}, res.Rows[0])
}

// ============================================================================
// STORE SWAP
// ============================================================================

func TestStoreAcquireBeforeLoad(t *testing.T) {
	s := New(OpenSQLite, nil)
	_, err := s.Acquire()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, s.Loaded())
}

func TestStoreReplaceKeepsHeldSnapshotReadable(t *testing.T) {
	ctx := context.Background()
	s := New(OpenSQLite, nil)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Replace(ctx, reviewDataset("a", "b", "c")))
	held, err := s.Acquire()
	require.NoError(t, err)

	require.NoError(t, s.Replace(ctx, reviewDataset("d")))

	res, err := held.Query(ctx, "SELECT COUNT(*) FROM reviews")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Rows[0][0], "held snapshot still sees the old table")
	held.Release()

	fresh, err := s.Acquire()
	require.NoError(t, err)
	defer fresh.Release()
	res, err = fresh.Query(ctx, "SELECT COUNT(*) FROM reviews")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0][0])
	assert.Len(t, fresh.Reviews, 1)
}

func TestStoreReplaceFailureKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	calls := 0
	s := New(func(ctx context.Context, ds Dataset) (Backend, error) {
		calls++
		if calls == 2 {
			return nil, assert.AnError
		}
		return OpenSQLite(ctx, ds)
	}, nil)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Replace(ctx, reviewDataset("a")))
	require.Error(t, s.Replace(ctx, reviewDataset("b", "c")))

	info, ok := s.Info()
	require.True(t, ok)
	assert.Equal(t, 1, info.Rows)
}

func TestResultColumnIndex(t *testing.T) {
	r := &Result{Columns: []string{"total_sales", "Order_Count"}}
	assert.Equal(t, 1, r.ColumnIndex("order_count"))
	assert.Equal(t, -1, r.ColumnIndex("missing"))
	assert.Equal(t, 0, (*Result)(nil).Len())
}

// ============================================================================
// POSTGRES BACKEND
// ============================================================================

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	b, err := OpenPostgres(dsn)(ctx, salesDataset())
	require.NoError(t, err)
	defer b.Close()

	res, err := b.Query(ctx, "SELECT sales_date, ROUND(SUM(net_sales_amount), 0) AS total FROM sales GROUP BY sales_date ORDER BY sales_date")
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-03-01", 1500.0}, res.Rows[0])

	d := b.Dialect()
	res, err = b.Query(ctx, "SELECT "+d.DaysBefore("MAX(sales_date)", 6)+" FROM sales")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-25", res.Rows[0][0])
}

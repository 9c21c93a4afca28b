package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
	"github.com/spektr-org/insightbot/translator"
)

// ============================================================================
// FIXTURES
// ============================================================================

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// tenDaysOfSales has one 1,000원 order per day from 2024-03-01 to 2024-03-10.
func tenDaysOfSales() store.Dataset {
	var sales []schema.Sale
	for i := 0; i < 10; i++ {
		d := day("2024-03-01").AddDate(0, 0, i).Add(12 * time.Hour)
		channel := "매장"
		if i%2 == 0 {
			channel = "배달"
		}
		sales = append(sales, schema.Sale{
			RowID:          int64(i + 1),
			Branch:         "강남점",
			OrderBaseDate:  d,
			OrderStartTime: d,
			OrderKey:       fmt.Sprintf("order-%d", i),
			Channel:        channel,
			Category:       "메인",
			ProductName:    "라멘",
			Quantity:       1,
			NetSales:       1000,
		})
	}
	return store.Dataset{Table: schema.SalesTable(), Sales: sales}
}

// mixedReviews has 15 praise-with-complaint reviews and 5 plain ones.
func mixedReviews() store.Dataset {
	var reviews []schema.Review
	for i := 0; i < 20; i++ {
		content := "맛있어요 또 갈게요"
		if i < 15 {
			content = "맛있는데 웨이팅이 너무 길어요"
		}
		reviews = append(reviews, schema.Review{
			ID:       int64(i + 1),
			Branch:   "강남점",
			DateText: "2024년 3월",
			Date:     day("2024-03-01").AddDate(0, 0, i),
			Nickname: fmt.Sprintf("손님%d", i%7),
			Content:  content,
		})
	}
	return store.Dataset{Table: schema.ReviewsTable(), Reviews: reviews}
}

func openSQLite(t *testing.T, ds store.Dataset) store.Backend {
	t.Helper()
	b, err := store.OpenSQLite(context.Background(), ds)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

type fakeTranslator struct {
	sql   string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, req translator.Request) (*translator.Translation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &translator.Translation{SQL: f.sql, Provider: "fake"}, nil
}

// flakyQuerier fails every query containing one of its substrings.
type flakyQuerier struct {
	store.Backend
	failOn []string
}

func (q *flakyQuerier) Query(ctx context.Context, sql string) (*store.Result, error) {
	for _, s := range q.failOn {
		if strings.Contains(sql, s) {
			return nil, eris.Errorf("forced failure on %q", s)
		}
	}
	return q.Backend.Query(ctx, sql)
}

func newChain(opts ...ChainOption) *Chain {
	return NewChain([]*Registry{ReviewRegistry(), SalesRegistry()}, opts...)
}

func cell(t *testing.T, res *store.Result, column string) any {
	t.Helper()
	j := res.ColumnIndex(column)
	require.GreaterOrEqual(t, j, 0, column)
	require.NotEmpty(t, res.Rows)
	return res.Rows[0][j]
}

// ============================================================================
// TEMPLATE STATE
// ============================================================================

func TestResolveSalesSummaryTemplate(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	chain := newChain()
	req := NewRequest(intent.DomainSales, "최근 7일 매출 얼마야?", nil, b.Dialect())

	res, err := chain.Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, StateTemplate, res.State)
	assert.Equal(t, SalesSummary, res.TemplateName)
	assert.False(t, res.Degraded)
	require.Equal(t, 1, res.Result.Len())
	assert.EqualValues(t, 7000, cell(t, res.Result, "total_sales"))
	assert.EqualValues(t, 7, cell(t, res.Result, "order_count"))
	assert.Equal(t, "2024-03-04", cell(t, res.Result, "start_date"))
	assert.Equal(t, "2024-03-10", cell(t, res.Result, "end_date"))
	require.Len(t, res.Attempts, 1)

	again, err := chain.Resolve(context.Background(), b, req)
	require.NoError(t, err)
	assert.Equal(t, res.SQL, again.SQL)
	assert.Equal(t, res.Result.Rows, again.Result.Rows)
}

func TestResolveHiddenComplaintsOrdered(t *testing.T) {
	b := openSQLite(t, mixedReviews())
	req := NewRequest(intent.DomainReview, "숨은 불만 보여줘", intent.DefaultBranches(), b.Dialect())

	res, err := newChain().Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, ReviewHiddenComplaint, res.TemplateName)
	require.Equal(t, 12, res.Result.Len())
	j := res.Result.ColumnIndex("review_date")
	for i := 1; i < res.Result.Len(); i++ {
		prev, cur := res.Result.Rows[i-1][j].(string), res.Result.Rows[i][j].(string)
		assert.GreaterOrEqual(t, prev, cur)
	}
	assert.Equal(t, "2024-03-15", res.Result.Rows[0][j])
}

func TestResolveNegativeSignalCounts(t *testing.T) {
	b := openSQLite(t, mixedReviews())
	req := NewRequest(intent.DomainReview, "반복되는 불만 알려줘", nil, b.Dialect())

	res, err := newChain().Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, ReviewNegativeSignal, res.TemplateName)
	require.NotZero(t, res.Result.Len())
	assert.EqualValues(t, 15, cell(t, res.Result, "mention_count"))
}

func TestResolveBranchScope(t *testing.T) {
	b := openSQLite(t, mixedReviews())
	req := NewRequest(intent.DomainReview, "건대 숨은 불만", intent.DefaultBranches(), b.Dialect())
	assert.Equal(t, "건대점", req.Branch.Name)

	res, err := newChain().Resolve(context.Background(), b, req)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "branch_name = '건대점'")
	assert.Zero(t, res.Result.Len())
}

// ============================================================================
// GENERATIVE STATE
// ============================================================================

func TestResolveGenerative(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	tr := &fakeTranslator{sql: "SELECT product_name, SUM(quantity) AS qty FROM sales GROUP BY product_name\nLIMIT 200"}
	req := NewRequest(intent.DomainSales, "상품별 수량 알려줘", nil, b.Dialect())

	res, err := newChain(WithTranslator(tr)).Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, StateGenerative, res.State)
	assert.Empty(t, res.TemplateName)
	assert.False(t, res.Degraded)
	assert.EqualValues(t, 10, cell(t, res.Result, "qty"))
}

func TestResolveGenerationFailureFallsBack(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	tr := &fakeTranslator{err: context.DeadlineExceeded}
	req := NewRequest(intent.DomainSales, "상품별 수량 알려줘", nil, b.Dialect())

	res, err := newChain(WithTranslator(tr)).Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, SalesSummary, res.TemplateName)
	assert.True(t, res.Degraded)
	assert.Equal(t, NoteGenerationFailed, res.Note)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, StateGenerative, res.Attempts[0].State)
	assert.ErrorIs(t, res.Attempts[0].Err, context.DeadlineExceeded)
	assert.EqualValues(t, 10000, cell(t, res.Result, "total_sales"))
}

func TestResolveWithoutTranslatorFallsBack(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	req := NewRequest(intent.DomainSales, "상품별 수량 알려줘", nil, b.Dialect())

	res, err := newChain().Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, StateFallback, res.State)
	assert.ErrorIs(t, res.Attempts[0].Err, ErrNoTranslator)
}

func TestResolveGeneratedSQLExecutionFailure(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	tr := &fakeTranslator{sql: "SELECT no_such_column FROM sales LIMIT 5"}
	req := NewRequest(intent.DomainSales, "상품별 수량 알려줘", nil, b.Dialect())

	res, err := newChain(WithTranslator(tr)).Resolve(context.Background(), b, req)
	require.NoError(t, err)

	assert.Equal(t, StateFallback, res.State)
	assert.True(t, res.Degraded)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, tr.sql, res.Attempts[0].SQL)
	assert.NotEmpty(t, res.Attempts[0].Error)
}

// ============================================================================
// FALLBACK AND FATAL
// ============================================================================

func TestResolveTemplateFailureFallsBack(t *testing.T) {
	q := &flakyQuerier{Backend: openSQLite(t, tenDaysOfSales()), failOn: []string{"GROUP BY order_channel"}}
	req := NewRequest(intent.DomainSales, "채널별 매출", nil, q.Dialect())

	res, err := newChain().Resolve(context.Background(), q, req)
	require.NoError(t, err)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, SalesSummary, res.TemplateName)
	assert.Equal(t, NoteTemplateFailed, res.Note)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, SalesChannel, res.Attempts[0].Name)
}

func TestResolveDayRankingFallback(t *testing.T) {
	// The 7-day template fails; the fallback widens the window to 30 days.
	q := &flakyQuerier{Backend: openSQLite(t, tenDaysOfSales()), failOn: []string{"'-6 days'"}}
	req := NewRequest(intent.DomainSales, "최근 7일 매출 가장 높은 날", nil, q.Dialect())
	require.True(t, req.Sales.RankDay)

	res, err := newChain().Resolve(context.Background(), q, req)
	require.NoError(t, err)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, SalesDayRanking, res.TemplateName)
	assert.True(t, res.Degraded)
	assert.Equal(t, NoteTemplateFailed, res.Note)
	assert.Contains(t, res.SQL, "date(l.max_date, '-29 days')")
	assert.Contains(t, res.SQL, "ORDER BY total_sales DESC, sales_date DESC")
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, SalesDayRanking, res.Attempts[0].Name)
	assert.Contains(t, res.Attempts[0].SQL, "'-6 days'")
	assert.Equal(t, "2024-03-10", cell(t, res.Result, "sales_date"))
}

func TestResolveDailyFallback(t *testing.T) {
	q := &flakyQuerier{Backend: openSQLite(t, tenDaysOfSales()), failOn: []string{"'-6 days'"}}
	req := NewRequest(intent.DomainSales, "최근 7일 일별 매출", nil, q.Dialect())
	require.True(t, req.Sales.ByDay)

	res, err := newChain().Resolve(context.Background(), q, req)
	require.NoError(t, err)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, SalesDaily, res.TemplateName)
	assert.True(t, res.Degraded)
	assert.Equal(t, NoteTemplateFailed, res.Note)
	assert.Contains(t, res.SQL, "date(l.max_date, '-29 days')")
	assert.Contains(t, res.SQL, "GROUP BY sales_date")
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, SalesDaily, res.Attempts[0].Name)
	assert.Equal(t, 10, res.Result.Len())
}

func TestSalesFallbackWindows(t *testing.T) {
	tests := []struct {
		question string
		name     string
		window   string
	}{
		{"매출이 가장 낮았던 날", SalesDayRanking, ""},
		{"요즘 매출 가장 높은 날", SalesDayRanking, "'-29 days'"},
		{"일별 매출", SalesDaily, "'-29 days'"},
		{"매출 알려줘", SalesSummary, ""},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			req := NewRequest(intent.DomainSales, tt.question, nil, store.SQLite)
			fb := salesFallback(req)
			assert.Equal(t, tt.name, fb.Name)

			sql := fb.Build(req)
			assert.NoError(t, translator.Validate(sql, "sales", store.SQLite))
			if tt.window == "" {
				assert.NotContains(t, sql, "l.max_date, '-")
			} else {
				assert.Contains(t, sql, tt.window)
			}
		})
	}
}

func TestResolveIdenticalFallbackIsFatal(t *testing.T) {
	q := &flakyQuerier{Backend: openSQLite(t, tenDaysOfSales()), failOn: []string{"SELECT"}}
	req := NewRequest(intent.DomainSales, "매출 알려줘", nil, q.Dialect())

	_, err := newChain().Resolve(context.Background(), q, req)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, intent.DomainSales, fatal.Domain)
	assert.Contains(t, fatal.SQL, "total_sales")
	assert.Contains(t, fatal.Error(), "forced failure")
}

func TestResolveFallbackFailureIsFatal(t *testing.T) {
	q := &flakyQuerier{Backend: openSQLite(t, tenDaysOfSales()), failOn: []string{"SELECT"}}
	req := NewRequest(intent.DomainSales, "채널별 매출", nil, q.Dialect())

	_, err := newChain().Resolve(context.Background(), q, req)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.NotContains(t, fatal.SQL, "order_channel")
}

func TestResolveUnknownDomain(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	_, err := newChain().Resolve(context.Background(), b, Request{Domain: "inventory"})

	var fatal *FatalError
	assert.True(t, errors.As(err, &fatal))
}

// ============================================================================
// TEMPLATE COVERAGE
// ============================================================================

var salesQuestions = map[string]string{
	SalesMonthCompare: "이번달 지난달 매출 비교",
	SalesDayRanking:   "매출이 가장 낮았던 날 3개",
	SalesChannel:      "채널별 매출",
	SalesCategory:     "카테고리별 매출",
	SalesBranch:       "지점별 매출",
	SalesDaily:        "최근 5일 일별 매출",
	SalesHourlyAOV:    "시간대별 객단가",
	SalesOrderCount:   "어제 주문 몇 건?",
	SalesSummary:      "최근 7일 매출 얼마야?",
}

func TestSalesTemplatesExecute(t *testing.T) {
	b := openSQLite(t, tenDaysOfSales())
	chain := newChain()
	for name, question := range salesQuestions {
		t.Run(name, func(t *testing.T) {
			req := NewRequest(intent.DomainSales, question, nil, b.Dialect())
			res, err := chain.Resolve(context.Background(), b, req)
			require.NoError(t, err)
			assert.Equal(t, name, res.TemplateName)
			assert.Equal(t, StateTemplate, res.State)
		})
	}
}

func TestTemplatesPassValidation(t *testing.T) {
	check := func(t *testing.T, reg *Registry, req Request) {
		t.Helper()
		for _, tpl := range reg.Templates {
			sql := tpl.Build(req)
			assert.NoError(t, translator.Validate(sql, reg.Table.Name, req.Dialect), "%s/%s", req.Dialect.Name(), tpl.Name)
		}
	}
	for _, d := range []store.Dialect{store.SQLite, store.Postgres} {
		check(t, SalesRegistry(), NewRequest(intent.DomainSales, "최근 7일 매출", nil, d))
		check(t, ReviewRegistry(), NewRequest(intent.DomainReview, "강남 리뷰", intent.DefaultBranches(), d))
	}
}

func TestPostgresRendering(t *testing.T) {
	req := NewRequest(intent.DomainReview, "숨은 불만", nil, store.Postgres)
	sql := hiddenComplaintSQL(req)
	assert.Contains(t, sql, "review_content ~* '")
	assert.NotContains(t, sql, "regexp_matches")

	sales := NewRequest(intent.DomainSales, "최근 7일 매출", nil, store.Postgres)
	summary := summarySQL(store.Postgres, sales.Sales.RecentDays, nil)
	assert.Contains(t, summary, "(l.max_date)::date - 6")
	assert.Contains(t, monthCompareSQL(store.Postgres), "date_trunc('month'")
}

func TestRegistryNames(t *testing.T) {
	assert.Equal(t, []string{ReviewHiddenComplaint, ReviewNegativeSignal, ReviewWaiting}, ReviewRegistry().Names())
	assert.Len(t, SalesRegistry().Names(), 9)
}

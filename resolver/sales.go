package resolver

import (
	"fmt"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
)

// Sales template names.
const (
	SalesMonthCompare = "sales.month_compare"
	SalesDayRanking   = "sales.day_ranking"
	SalesChannel      = "sales.channel"
	SalesCategory     = "sales.category"
	SalesBranch       = "sales.branch"
	SalesDaily        = "sales.daily"
	SalesHourlyAOV    = "sales.hourly_aov"
	SalesOrderCount   = "sales.order_count"
	SalesSummary      = "sales.summary"
)

// DefaultTrendDays is the daily trend window when none is asked for.
const DefaultTrendDays = 30

// SalesRegistry returns the sales templates in priority order. Windows are
// anchored at MAX(sales_date) in the data, never the wall clock.
func SalesRegistry() *Registry {
	return &Registry{
		Domain: intent.DomainSales,
		Table:  schema.SalesTable(),
		Templates: []Template{
			{
				Name:  SalesMonthCompare,
				Match: func(r Request) bool { return r.Sales.WantsMonthCompare && r.Sales.SalesToken },
				Build: func(r Request) string { return monthCompareSQL(r.Dialect) },
			},
			{
				Name:  SalesDayRanking,
				Match: func(r Request) bool { return r.Sales.RankDay },
				Build: func(r Request) string {
					return dayRankingSQL(r.Dialect, r.Sales.RecentDays, !r.Sales.RankLowest, r.Sales.RankLimit)
				},
			},
			{
				Name:  SalesChannel,
				Match: func(r Request) bool { return r.Sales.ByChannel },
				Build: func(r Request) string { return channelSQL(r.Dialect, r.Sales.RecentDays) },
			},
			{
				Name:  SalesCategory,
				Match: func(r Request) bool { return r.Sales.ByCategory },
				Build: func(r Request) string { return categorySQL(r.Dialect, r.Sales.RecentDays) },
			},
			{
				Name:  SalesBranch,
				Match: func(r Request) bool { return r.Sales.ByBranch },
				Build: func(r Request) string { return branchSQL(r.Dialect, r.Sales.RecentDays) },
			},
			{
				Name:  SalesDaily,
				Match: func(r Request) bool { return r.Sales.ByDay },
				Build: func(r Request) string { return dailySQL(r.Dialect, daysOr(r.Sales.RecentDays, DefaultTrendDays)) },
			},
			{
				Name:  SalesHourlyAOV,
				Match: func(r Request) bool { return r.Sales.WantsAOV },
				Build: func(r Request) string { return hourlyAOVSQL(r.Dialect, hintedDays(r.Sales)) },
			},
			{
				Name: SalesOrderCount,
				Match: func(r Request) bool {
					return r.Sales.OrderToken && r.Sales.WantsCount && !r.Sales.SalesToken
				},
				Build: func(r Request) string {
					return orderCountSQL(r.Dialect, hintedDays(r.Sales), r.Sales.DayOffset)
				},
			},
			{
				Name:  SalesSummary,
				Match: func(r Request) bool { return r.Sales.SalesToken || r.Sales.OrderToken },
				Build: func(r Request) string {
					return summarySQL(r.Dialect, hintedDays(r.Sales), r.Sales.DayOffset)
				},
			},
		},
		Fallback: salesFallback,
	}
}

func salesFallback(r Request) Template {
	var hinted *int
	if r.Sales.RecentHint {
		hinted = intPtr(DefaultTrendDays)
	}
	switch {
	case r.Sales.RankDay:
		return Template{Name: SalesDayRanking, Build: func(r Request) string {
			return dayRankingSQL(r.Dialect, hinted, !r.Sales.RankLowest, r.Sales.RankLimit)
		}}
	case r.Sales.ByDay:
		return Template{Name: SalesDaily, Build: func(r Request) string {
			return dailySQL(r.Dialect, intPtr(DefaultTrendDays))
		}}
	}
	return Template{Name: SalesSummary, Build: func(r Request) string {
		return summarySQL(r.Dialect, hinted, nil)
	}}
}

// hintedDays is the explicit window, else 30 days on a recent hint, else all.
func hintedDays(s intent.SalesIntent) *int {
	if s.RecentDays != nil {
		return s.RecentDays
	}
	if s.RecentHint {
		return intPtr(DefaultTrendDays)
	}
	return nil
}

func daysOr(days *int, def int) *int {
	if days != nil {
		return days
	}
	return intPtr(def)
}

func intPtr(v int) *int { return &v }

// baseSalesCTE opens a WITH clause ending in base_sales. A day offset wins
// over a window; with neither, every dated row is in scope.
func baseSalesCTE(d store.Dialect, days, offset *int) string {
	const head = `WITH scoped AS (
  SELECT * FROM sales WHERE sales_date IS NOT NULL
),
latest AS (
  SELECT MAX(sales_date) AS max_date FROM scoped
),
base_sales AS (
  SELECT s.*
  FROM scoped s
  CROSS JOIN latest l
  WHERE l.max_date IS NOT NULL
`
	switch {
	case offset != nil:
		return head + fmt.Sprintf("    AND s.sales_date = %s\n)", d.DaysBefore("l.max_date", max(0, *offset)))
	case days != nil:
		lookback := max(1, min(*days, intent.MaxRecentDays)) - 1
		return head + fmt.Sprintf("    AND s.sales_date >= %s\n    AND s.sales_date <= %s\n)",
			d.DaysBefore("l.max_date", lookback), d.DaysBefore("l.max_date", 0))
	}
	return `WITH base_sales AS (
  SELECT * FROM sales WHERE sales_date IS NOT NULL
)`
}

func summarySQL(d store.Dialect, days, offset *int) string {
	return sqlBlock(baseSalesCTE(d, days, offset) + `
SELECT
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count,
  ROUND(SUM(net_sales_amount) / NULLIF(COUNT(DISTINCT order_key), 0), 0) AS avg_order_value,
  MIN(sales_date) AS start_date,
  MAX(sales_date) AS end_date
FROM base_sales
`)
}

func orderCountSQL(d store.Dialect, days, offset *int) string {
	return sqlBlock(baseSalesCTE(d, days, offset) + `
SELECT
  COUNT(DISTINCT order_key) AS order_count,
  MIN(sales_date) AS start_date,
  MAX(sales_date) AS end_date
FROM base_sales
`)
}

func dailySQL(d store.Dialect, days *int) string {
	return sqlBlock(baseSalesCTE(d, days, nil) + `
SELECT
  sales_date,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count,
  ROUND(SUM(net_sales_amount) / NULLIF(COUNT(DISTINCT order_key), 0), 0) AS avg_order_value
FROM base_sales
GROUP BY sales_date
ORDER BY sales_date ASC
`)
}

func branchSQL(d store.Dialect, days *int) string {
	return sqlBlock(baseSalesCTE(d, days, nil) + `
SELECT
  branch_name,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count
FROM base_sales
GROUP BY branch_name
ORDER BY total_sales DESC, branch_name
LIMIT 20
`)
}

func channelSQL(d store.Dialect, days *int) string {
	return sqlBlock(baseSalesCTE(d, days, nil) + `
SELECT
  order_channel,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count,
  ROUND(SUM(net_sales_amount) / NULLIF(COUNT(DISTINCT order_key), 0), 0) AS avg_order_value
FROM base_sales
GROUP BY order_channel
ORDER BY total_sales DESC, order_channel
LIMIT 20
`)
}

func categorySQL(d store.Dialect, days *int) string {
	return sqlBlock(baseSalesCTE(d, days, nil) + `
SELECT
  category,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count
FROM base_sales
GROUP BY category
ORDER BY total_sales DESC, category
LIMIT 20
`)
}

func hourlyAOVSQL(d store.Dialect, days *int) string {
	return sqlBlock(baseSalesCTE(d, days, nil) + `
SELECT
  sales_hour,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count,
  ROUND(SUM(net_sales_amount) / NULLIF(COUNT(DISTINCT order_key), 0), 0) AS avg_order_value
FROM base_sales
WHERE sales_hour IS NOT NULL
GROUP BY sales_hour
ORDER BY avg_order_value DESC, total_sales DESC
LIMIT 24
`)
}

func dayRankingSQL(d store.Dialect, days *int, descending bool, limit int) string {
	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	return sqlBlock(baseSalesCTE(d, days, nil) + fmt.Sprintf(`
SELECT
  sales_date,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count,
  ROUND(SUM(net_sales_amount) / NULLIF(COUNT(DISTINCT order_key), 0), 0) AS avg_order_value
FROM base_sales
GROUP BY sales_date
ORDER BY total_sales %s, sales_date %s
LIMIT %d
`, dir, dir, max(1, min(limit, intent.MaxRankLimit))))
}

func monthCompareSQL(d store.Dialect) string {
	return sqlBlock(fmt.Sprintf(`
WITH scoped AS (
  SELECT * FROM sales WHERE sales_date IS NOT NULL
),
latest_month AS (
  SELECT
    %s AS current_month,
    %s AS previous_month
  FROM scoped
),
bucketed AS (
  SELECT
    CASE
      WHEN %s = l.current_month THEN '이번달'
      WHEN %s = l.previous_month THEN '지난달'
      ELSE NULL
    END AS month_bucket,
    s.net_sales_amount,
    s.order_key
  FROM scoped s
  CROSS JOIN latest_month l
)
SELECT
  month_bucket,
  ROUND(SUM(net_sales_amount), 0) AS total_sales,
  COUNT(DISTINCT order_key) AS order_count,
  ROUND(SUM(net_sales_amount) / NULLIF(COUNT(DISTINCT order_key), 0), 0) AS avg_order_value
FROM bucketed
WHERE month_bucket IS NOT NULL
GROUP BY month_bucket
ORDER BY CASE WHEN month_bucket = '지난달' THEN 1 ELSE 2 END
`, d.MonthStart("MAX(sales_date)"), d.PrevMonthStart("MAX(sales_date)"),
		d.MonthStart("s.sales_date"), d.MonthStart("s.sales_date")))
}

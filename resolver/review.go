package resolver

import (
	"fmt"
	"strings"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/signals"
)

// Review template names.
const (
	ReviewHiddenComplaint = "review.hidden_complaint"
	ReviewNegativeSignal  = "review.negative_signal"
	ReviewWaiting         = "review.waiting"
)

const waitingPattern = "웨이팅|대기|기다|줄"

// ReviewRegistry returns the review templates in priority order.
func ReviewRegistry() *Registry {
	negative := Template{
		Name:  ReviewNegativeSignal,
		Match: func(r Request) bool { return r.Review.NegativeSignal },
		Build: negativeSignalSQL,
	}
	return &Registry{
		Domain: intent.DomainReview,
		Table:  schema.ReviewsTable(),
		Templates: []Template{
			{
				Name:  ReviewHiddenComplaint,
				Match: func(r Request) bool { return r.Review.HiddenComplaint },
				Build: hiddenComplaintSQL,
			},
			negative,
			{
				Name:  ReviewWaiting,
				Match: func(r Request) bool { return r.Review.Waiting },
				Build: waitingSQL,
			},
		},
		Fallback: func(Request) Template { return negative },
	}
}

func branchWhere(b intent.Branch) string {
	if b.All() {
		return "1 = 1"
	}
	return "branch_name = " + literal(b.Name)
}

func hiddenComplaintSQL(r Request) string {
	return sqlBlock(fmt.Sprintf(`
WITH scoped AS (
  SELECT * FROM reviews
  WHERE %s
),
target AS (
  SELECT
    review_date,
    branch_name,
    nickname,
    review_content
  FROM scoped
  WHERE %s
    AND %s
)
SELECT *
FROM target
ORDER BY review_date DESC NULLS LAST
LIMIT 12
`, branchWhere(r.Branch),
		r.Dialect.Regex("review_content", signals.PositiveHintPattern),
		r.Dialect.Regex("review_content", signals.NegativeHintPattern)))
}

func waitingSQL(r Request) string {
	return sqlBlock(fmt.Sprintf(`
WITH scoped AS (
  SELECT * FROM reviews
  WHERE %s
),
waiting AS (
  SELECT
    review_date,
    branch_name,
    nickname,
    review_content
  FROM scoped
  WHERE %s
)
SELECT
  (SELECT COUNT(*) FROM waiting) AS waiting_count,
  ROUND(
    100.0 * (SELECT COUNT(*) FROM waiting) / NULLIF((SELECT COUNT(*) FROM scoped), 0),
    1
  ) AS ratio_pct,
  review_date,
  branch_name,
  nickname,
  review_content
FROM waiting
ORDER BY review_date DESC NULLS LAST
LIMIT 8
`, branchWhere(r.Branch), r.Dialect.Regex("review_content", waitingPattern)))
}

func negativeSignalSQL(r Request) string {
	values := make([]string, len(signals.NegativePatterns))
	for i, p := range signals.NegativePatterns {
		values[i] = fmt.Sprintf("    (%d, %s, %s)", i+1, literal(p.Signal), literal(p.Pattern))
	}
	return sqlBlock(fmt.Sprintf(`
WITH scoped AS (
  SELECT * FROM reviews
  WHERE %s
),
signals(ord, signal, pattern) AS (
  VALUES
%s
),
counts AS (
  SELECT
    ord,
    signal,
    COUNT(*) FILTER (WHERE %s) AS mention_count
  FROM scoped
  CROSS JOIN signals
  GROUP BY ord, signal
)
SELECT
  signal,
  mention_count,
  ROUND(100.0 * mention_count / NULLIF((SELECT COUNT(*) FROM scoped), 0), 1) AS ratio_pct
FROM counts
ORDER BY mention_count DESC, ord
LIMIT 10
`, branchWhere(r.Branch), strings.Join(values, ",\n"), r.Dialect.Match("review_content", "pattern")))
}

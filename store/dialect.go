package store

import (
	"fmt"
	"regexp"
	"strings"
)

// ============================================================================
// SQL DIALECTS — Per-backend fragments used by templates and validation
// ============================================================================

// Dialect builds the small set of engine-specific SQL fragments the
// resolver templates need, and names functions the engine cannot run.
type Dialect interface {
	Name() string
	// DaysBefore returns a date expression n days before expr.
	DaysBefore(expr string, n int) string
	// Regex returns a case-insensitive match of column against a literal pattern.
	Regex(column, pattern string) string
	// Match is Regex with the pattern given as an SQL expression.
	Match(subject, patternExpr string) string
	// MonthStart truncates a date expression to the first of its month.
	MonthStart(expr string) string
	// PrevMonthStart is the first day of the month before expr's month.
	PrevMonthStart(expr string) string
	// Unsupported lists function patterns this engine cannot execute.
	Unsupported() []UnsupportedFunc
}

// UnsupportedFunc is a function the backend rejects, with a readable name.
type UnsupportedFunc struct {
	Name    string
	Pattern *regexp.Regexp
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ----------------------------------------------------------------------------
// SQLite
// ----------------------------------------------------------------------------

type sqliteDialect struct{}

// SQLite is the dialect of the embedded in-memory backend.
var SQLite Dialect = sqliteDialect{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) DaysBefore(expr string, n int) string {
	if n == 0 {
		return fmt.Sprintf("date(%s)", expr)
	}
	return fmt.Sprintf("date(%s, '-%d days')", expr, n)
}

func (d sqliteDialect) Regex(column, pattern string) string {
	return d.Match(column, quoteLiteral(pattern))
}

func (sqliteDialect) Match(subject, patternExpr string) string {
	return fmt.Sprintf("regexp_matches(%s, %s, 'i')", subject, patternExpr)
}

func (sqliteDialect) MonthStart(expr string) string {
	return fmt.Sprintf("date(%s, 'start of month')", expr)
}

func (sqliteDialect) PrevMonthStart(expr string) string {
	return fmt.Sprintf("date(%s, 'start of month', '-1 month')", expr)
}

var sqliteUnsupported = []UnsupportedFunc{
	{Name: "array_join", Pattern: regexp.MustCompile(`(?i)\barray_join\s*\(`)},
	{Name: "ilike", Pattern: regexp.MustCompile(`(?i)\bilike\b`)},
	{Name: "date_trunc", Pattern: regexp.MustCompile(`(?i)\bdate_trunc\s*\(`)},
	{Name: "interval", Pattern: regexp.MustCompile(`(?i)\binterval\s+'`)},
}

func (sqliteDialect) Unsupported() []UnsupportedFunc { return sqliteUnsupported }

// ----------------------------------------------------------------------------
// PostgreSQL
// ----------------------------------------------------------------------------

type postgresDialect struct{}

// Postgres is the dialect of the pgx backend.
var Postgres Dialect = postgresDialect{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) DaysBefore(expr string, n int) string {
	if n == 0 {
		return fmt.Sprintf("(%s)::date", expr)
	}
	return fmt.Sprintf("((%s)::date - %d)", expr, n)
}

func (d postgresDialect) Regex(column, pattern string) string {
	return d.Match(column, quoteLiteral(pattern))
}

func (postgresDialect) Match(subject, patternExpr string) string {
	return fmt.Sprintf("%s ~* %s", subject, patternExpr)
}

func (postgresDialect) MonthStart(expr string) string {
	return fmt.Sprintf("date_trunc('month', %s)::date", expr)
}

func (postgresDialect) PrevMonthStart(expr string) string {
	return fmt.Sprintf("(date_trunc('month', %s) - INTERVAL '1 month')::date", expr)
}

var postgresUnsupported = []UnsupportedFunc{
	{Name: "array_join", Pattern: regexp.MustCompile(`(?i)\barray_join\s*\(`)},
	{Name: "regexp_matches", Pattern: regexp.MustCompile(`(?i)\bregexp_matches\s*\(`)},
}

func (postgresDialect) Unsupported() []UnsupportedFunc { return postgresUnsupported }

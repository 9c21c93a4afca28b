package translator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// VALIDATION GATE — Applied to generated SQL only, never to templates
// ============================================================================

var (
	forbiddenSQL  = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|replace|merge|grant|revoke)\b`)
	limitKeyword  = regexp.MustCompile(`(?i)\blimit\b`)
	aggregateCall = regexp.MustCompile(`(?i)\b(count|avg|sum|min|max)\s*\(`)
	groupBy       = regexp.MustCompile(`(?i)\bgroup\s+by\b`)
)

// Validate checks generated SQL against the read-only gate for table.
func Validate(sql, table string, dialect store.Dialect) error {
	trimmed := strings.TrimSpace(sql)
	lowered := strings.ToLower(trimmed)

	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return &ValidationError{Rule: RuleSelectOnly, SQL: sql}
	}
	if strings.Contains(strings.TrimRight(trimmed, "; \n\t"), ";") {
		return &ValidationError{Rule: RuleMultiStatement, SQL: sql}
	}
	if m := forbiddenSQL.FindString(trimmed); m != "" {
		return &ValidationError{Rule: RuleForbidden, Detail: strings.ToUpper(m), SQL: sql}
	}
	if dialect != nil {
		for _, fn := range dialect.Unsupported() {
			if fn.Pattern.MatchString(trimmed) {
				return &ValidationError{Rule: RuleUnsupported, Detail: fmt.Sprintf("%s on %s", fn.Name, dialect.Name()), SQL: sql}
			}
		}
	}
	tableRef := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(table) + `\b`)
	if !tableRef.MatchString(trimmed) {
		return &ValidationError{Rule: RuleTableReference, Detail: table, SQL: sql}
	}
	return nil
}

// EnsureLimit appends "LIMIT max" unless the SQL already limits itself or
// only computes ungrouped aggregates.
func EnsureLimit(sql string, max int) string {
	if limitKeyword.MatchString(sql) {
		return sql
	}
	if aggregateCall.MatchString(sql) && !groupBy.MatchString(sql) {
		return sql
	}
	return fmt.Sprintf("%s\nLIMIT %d", sql, max)
}

package translator

import (
	"fmt"
	"strings"

	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// PROMPT BUILDER — Schema-driven system prompt
// ============================================================================
// The prompt is generated from schema.Table plus the store dialect:
//   - Columns → "- key KIND (description)" lines
//   - Domain rules → which column to filter dates on, how to count orders
//   - Dialect rules → which functions exist on the active engine
//
// Total data sent to the model: column metadata and the question. Never rows.
// ============================================================================

// BuildPrompt generates the system prompt for one table and dialect.
func BuildPrompt(table schema.Table, dialect store.Dialect, maxRows int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior analytics engineer.\nGenerate %s SQL for a single table named %s.\n\n",
		dialectTitle(dialect), table.Name)

	b.WriteString("Table schema:\n")
	b.WriteString(table.Describe())
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString(`- Return JSON only: {"sql": "...", "reason": "..."}` + "\n")
	b.WriteString("- SQL must be read-only (SELECT or WITH + SELECT only)\n")
	b.WriteString("- Never use INSERT/UPDATE/DELETE/CREATE/DROP/ALTER/TRUNCATE\n")
	b.WriteString(buildDomainRules(table, maxRows))
	b.WriteString(buildDialectRules(dialect))

	b.WriteString("\nReturn JSON when possible. If JSON fails, return SQL only.")
	return b.String()
}

// BuildUserMessage wraps the question the way the system prompt expects.
func BuildUserMessage(question string) string {
	return "사용자 질문: " + strings.TrimSpace(question)
}

func dialectTitle(d store.Dialect) string {
	if d == nil {
		return "ANSI"
	}
	switch d.Name() {
	case "sqlite":
		return "SQLite"
	case "postgres":
		return "PostgreSQL"
	}
	return d.Name()
}

func buildDomainRules(table schema.Table, maxRows int) string {
	var b strings.Builder
	switch table.Name {
	case schema.ReviewsTableName:
		b.WriteString("- Use review_date for time filters\n")
		b.WriteString("- If user asks for examples, include review_content and branch_name\n")
		b.WriteString("- If user asks for ranking/top, sort DESC and include LIMIT\n")
	case schema.SalesTableName:
		b.WriteString("- Use sales_date for date filtering and trends\n")
		b.WriteString("- For amount metrics, use net_sales_amount\n")
		b.WriteString("- For order count, use COUNT(DISTINCT order_key)\n")
		b.WriteString("- If user asks highest/lowest sales day, aggregate by sales_date and rank by total_sales.\n")
	}
	fmt.Fprintf(&b, "- If result can be large, include LIMIT %d\n", maxRows)
	return b.String()
}

func buildDialectRules(d store.Dialect) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	switch d.Name() {
	case "sqlite":
		b.WriteString("- For Korean keyword search use regexp_matches(column, 'pattern', 'i')\n")
		b.WriteString("- Dates are stored as 'YYYY-MM-DD' text; use date(x, '-N days') and date(x, 'start of month')\n")
	case "postgres":
		b.WriteString("- For Korean keyword search use column ~* 'pattern'\n")
		b.WriteString("- Use date arithmetic like sales_date - 7 and date_trunc('month', x)\n")
	}
	names := make([]string, 0, len(d.Unsupported()))
	for _, fn := range d.Unsupported() {
		names = append(names, fn.Name)
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "- Do not use: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "- %s syntax only\n", dialectTitle(d))
	return b.String()
}

// Package report renders query results and derived signals as Korean
// markdown answers.
package report

import (
	"fmt"
	"strings"

	"github.com/spektr-org/insightbot/pii"
	"github.com/spektr-org/insightbot/resolver"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// RENDERER — Shared layout, format decision and failure blocks
// ============================================================================

// Format is the report layout.
type Format string

const (
	FormatCompact Format = "compact"
	FormatFull    Format = "full"
)

const (
	compactMaxRows = 4
	compactMaxCols = 5
)

// ChooseFormat picks the compact layout for empty results and for small
// answers to a simple single-fact question.
func ChooseFormat(res *store.Result, singleFact bool) Format {
	if res.Len() == 0 {
		return FormatCompact
	}
	if singleFact && res.Len() <= compactMaxRows && len(res.Columns) <= compactMaxCols {
		return FormatCompact
	}
	return FormatFull
}

// Renderer turns resolutions into markdown. The zero value is not usable;
// build one with NewRenderer.
type Renderer struct {
	maxRows  int
	maxCols  int
	selector Selector
	pool     Pool
	mask     func(string) string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTableLimits overrides the displayed row and column counts.
func WithTableLimits(rows, cols int) Option {
	return func(r *Renderer) {
		if rows > 0 {
			r.maxRows = rows
		}
		if cols > 0 {
			r.maxCols = cols
		}
	}
}

// WithSelector sets the paraphrase selector.
func WithSelector(s Selector) Option {
	return func(r *Renderer) {
		if s != nil {
			r.selector = s
		}
	}
}

// WithPool replaces wordings for the keys it contains.
func WithPool(p Pool) Option {
	return func(r *Renderer) { r.pool = p }
}

// WithMasker sets the text redaction applied to table cells and examples.
func WithMasker(mask func(string) string) Option {
	return func(r *Renderer) {
		if mask != nil {
			r.mask = mask
		}
	}
}

// NewRenderer builds a renderer with the canonical wordings and pii.Mask.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		maxRows:  DefaultMaxTableRows,
		maxCols:  DefaultMaxTableCols,
		selector: FirstSelector{},
		mask:     pii.Mask,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mask exposes the configured redaction.
func (r *Renderer) Mask(s string) string { return r.mask(s) }

// Failure renders a resolution that could not produce any result.
func (r *Renderer) Failure(question string, fatal *resolver.FatalError) string {
	var sb strings.Builder
	sb.WriteString("## 분석 실패\n")
	fmt.Fprintf(&sb, "- 질문: %s\n", question)
	sb.WriteString("- 요청한 분석을 실행하지 못했습니다. 질문을 조금 더 구체적으로 바꿔 다시 시도해 주세요.\n\n")
	sb.WriteString("### 오류\n")
	cause := "unknown error"
	if fatal.Cause != nil {
		cause = fatal.Cause.Error()
	}
	fmt.Fprintf(&sb, "```\n%s\n```\n\n", cause)
	sb.WriteString("### 시도한 SQL\n")
	fmt.Fprintf(&sb, "```sql\n%s\n```", strings.TrimSpace(fatal.SQL))
	return sb.String()
}

// NotReady answers when the sales table has not been loaded yet.
func (r *Renderer) NotReady(question string) string {
	var sb strings.Builder
	sb.WriteString("## 매출 분석 결과\n")
	fmt.Fprintf(&sb, "- 질문: %s\n\n", question)
	sb.WriteString("> 참고: 매출 엔진이 아직 준비되지 않았습니다. 매출 리포트 파일을 먼저 등록해 주세요.\n")
	sb.WriteString("\n(sales engine not ready)")
	return sb.String()
}

// ============================================================================
// SHARED BLOCKS
// ============================================================================

func (r *Renderer) table(res *store.Result) *TableData {
	return BuildTable(res, r.maxRows, r.maxCols, r.mask)
}

func writeTable(sb *strings.Builder, t *TableData) {
	if t.TotalRows == 0 {
		sb.WriteString("조회 결과가 없습니다.\n")
		return
	}
	sb.WriteString(t.Markdown())
	sb.WriteString("\n")
	if note := t.Footnote(); note != "" {
		sb.WriteString("\n")
		sb.WriteString(note)
		sb.WriteString("\n")
	}
}

func writeNote(sb *strings.Builder, res *resolver.Resolution) {
	if res != nil && res.Degraded && res.Note != "" {
		fmt.Fprintf(sb, "\n> 참고: %s\n", res.Note)
	}
}

func writeSQL(sb *strings.Builder, heading, sql string) {
	sb.WriteString(heading)
	sb.WriteString("\n```sql\n")
	sb.WriteString(strings.TrimSpace(sql))
	sb.WriteString("\n```")
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, l := range lines {
		if l == "" {
			continue
		}
		sb.WriteString(l)
		sb.WriteString("\n")
	}
}

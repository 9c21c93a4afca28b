package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/config"
	"github.com/spektr-org/insightbot/engine"
	"github.com/spektr-org/insightbot/ingest"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// INSIGHTBOT CLI — ask the review and sales tables from a terminal
// ============================================================================

const version = "0.1.0"

func main() {
	// ── Flags ─────────────────────────────────────────────────────────────
	reviewsPath := flag.String("reviews", "", "Review CSV path or s3://bucket/key (default: REVIEW_CSV_PATH)")
	salesPath := flag.String("sales", "", "Sales report path or s3://bucket/key (default: SALES_REPORT_PATH)")
	password := flag.String("password", "", "Excel password (default: EXCEL_PASSWORD)")
	queryStr := flag.String("query", "", "Question to answer; omit to read questions from stdin")
	provider := flag.String("provider", "", "LLM provider: openai, gemini, none (default: LLM_PROVIDER)")
	format := flag.String("format", "markdown", "Output format: markdown, json, pretty, csv")
	outFile := flag.String("out", "", "Write output to file instead of stdout")
	verbose := flag.Bool("v", false, "Log to stderr")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `insightbot — ask your review and sales data in Korean

Usage:
  insightbot --reviews reviews.csv --sales sales.xlsx --query "최근 7일 매출 얼마야?"
  insightbot --reviews reviews.csv --query "숨은 불만 보여줘" --format pretty
  insightbot --sales s3://reports/march.xlsx --query "채널별 매출" --format csv --out channel.csv
  insightbot --reviews reviews.csv --sales sales.xlsx        (interactive)

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  LLM_PROVIDER, OPENAI_API_KEY, GEMINI_API_KEY   Generative SQL for questions no template covers
  S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY      Needed for s3:// paths
  STORE_DRIVER, DATABASE_URL                     sqlite (default) or postgres

Formats:
  markdown  Rendered report (default)
  json      Full answer as JSON
  pretty    Pretty-printed JSON
  csv       Result table as CSV (ready for Sheets/Excel)
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("insightbot %s\n", version)
		os.Exit(0)
	}
	switch *format {
	case "markdown", "json", "pretty", "csv":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown --format %q\n", *format)
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if *reviewsPath != "" {
		cfg.Source.ReviewPath = *reviewsPath
	}
	if *salesPath != "" {
		cfg.Source.SalesPath = *salesPath
	}
	if *password != "" {
		cfg.Source.ExcelPassword = *password
	}
	if *provider != "" {
		cfg.LLM.Provider = strings.ToLower(*provider)
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = cfg.NewLogger(); err != nil {
			fatalf("Failed to create logger: %v", err)
		}
	}
	defer func() { _ = logger.Sync() }()

	// ── Output writer ─────────────────────────────────────────────────────
	writer := os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		writer = f
	}

	// ── Load data ─────────────────────────────────────────────────────────
	ctx := context.Background()
	open, err := cfg.Opener()
	if err != nil {
		fatalf("%v", err)
	}
	fetch, err := ingest.NewFetcher(cfg.S3)
	if err != nil {
		fatalf("Failed to configure object storage: %v", err)
	}

	reviews := store.New(open, logger)
	defer reviews.Close()
	ds, err := ingest.LoadReviews(ctx, fetch, cfg.Source.ReviewPath)
	if err != nil {
		fatalf("Failed to load reviews: %v", err)
	}
	if err := reviews.Replace(ctx, ds); err != nil {
		fatalf("Failed to load reviews: %v", err)
	}

	sales := store.New(open, logger)
	defer sales.Close()
	if cfg.Source.SalesPath != "" {
		loader := ingest.NewSalesLoader(fetch, cfg.Source.SalesBranch, logger)
		ds, err := loader.Load(ctx, cfg.Source.SalesPath, cfg.Source.ExcelPassword)
		if err != nil {
			fatalf("Failed to load sales report: %v", err)
		}
		if err := sales.Replace(ctx, ds); err != nil {
			fatalf("Failed to load sales report: %v", err)
		}
	}

	tr, err := cfg.NewTranslator(ctx, logger)
	if err != nil {
		fatalf("Failed to configure LLM: %v", err)
	}
	assistant := engine.New(reviews, sales, cfg.EngineOptions(tr, logger)...)

	// ── Answer ────────────────────────────────────────────────────────────
	if *queryStr != "" {
		ans, err := assistant.Answer(ctx, engine.Question{Text: *queryStr})
		if err != nil {
			fatalf("Failed to answer: %v", err)
		}
		writeAnswer(writer, ans, *format)
		return
	}

	repl(ctx, assistant, os.Stdin, writer, *format)
}

// repl answers one question per input line and keeps the exchange as history.
func repl(ctx context.Context, assistant *engine.Assistant, in io.Reader, out io.Writer, format string) {
	var history []engine.Turn
	scanner := bufio.NewScanner(in)
	fmt.Fprint(os.Stderr, "> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Fprint(os.Stderr, "> ")
			continue
		}
		if text == "exit" || text == "quit" {
			return
		}
		ans, err := assistant.Answer(ctx, engine.Question{Text: text, History: history})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			writeAnswer(out, ans, format)
			history = append(history,
				engine.Turn{Role: "user", Content: text},
				engine.Turn{Role: "assistant", Content: ans.Markdown})
		}
		fmt.Fprint(os.Stderr, "\n> ")
	}
}

func writeAnswer(w io.Writer, ans *engine.Answer, format string) {
	switch format {
	case "csv":
		writeCSV(w, ans)
	case "json", "pretty":
		writeJSON(w, ans, format)
	default:
		fmt.Fprintln(w, ans.Markdown)
	}
}

// ============================================================================
// CSV OUTPUT — result table → Sheets-ready CSV
// ============================================================================

func writeCSV(w io.Writer, ans *engine.Answer) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if ans.Table == nil || len(ans.Table.Columns) == 0 {
		_ = cw.Write([]string{"Answer"})
		_ = cw.Write([]string{ans.Markdown})
		return
	}

	headers := make([]string, len(ans.Table.Columns))
	for i, col := range ans.Table.Columns {
		headers[i] = col.Label
	}
	_ = cw.Write(headers)
	for _, row := range ans.Table.Rows {
		_ = cw.Write(row)
	}
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, format string) {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}

	if err != nil {
		fatalf("Failed to marshal output: %v", err)
	}
	fmt.Fprintln(w, string(out))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

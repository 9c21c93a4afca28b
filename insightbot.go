// Package insightbot answers Korean natural-language questions about a
// restaurant's customer reviews and sales reports.
//
// Usage:
//
//	import "github.com/spektr-org/insightbot/engine"
//
//	assistant := engine.New(reviews, sales,
//	    engine.WithTranslator(tr),
//	    engine.WithMaxSQLRows(200),
//	)
//	answer, err := assistant.Answer(ctx, engine.Question{Text: "숨은 불만 보여줘"})
//
// A question is routed to the review or sales table, resolved to read-only
// SQL by a fixed template, by an LLM (translator package) or by a safe
// fallback, and rendered as a Markdown report with derived signals.
//
// Raw rows never leave the process. The LLM sees only the table schema and
// the question, and generated SQL must pass the validation gate first.
package insightbot

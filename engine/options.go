package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/report"
	"github.com/spektr-org/insightbot/signals"
	"github.com/spektr-org/insightbot/translator"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for New()
// ============================================================================

// Option configures the Assistant via functional options pattern.
type Option func(*config)

type config struct {
	Translator    translator.Translator
	Logger        *zap.Logger
	MaxSQLRows    int
	MaxTableRows  int
	Thresholds    signals.Thresholds
	Selector      report.Selector
	Branches      []intent.BranchAlias
	LLMTimeout    time.Duration
	Masker        func(string) string
	HiddenSamples int
}

// WithTranslator enables the generative state. Without one, questions no
// template matches go straight to the fallback.
func WithTranslator(t translator.Translator) Option {
	return func(c *config) { c.Translator = t }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMaxSQLRows caps rows returned by generated SQL.
func WithMaxSQLRows(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.MaxSQLRows = n
		}
	}
}

// WithMaxTableRows caps rows shown in rendered tables.
func WithMaxTableRows(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.MaxTableRows = n
		}
	}
}

// WithThresholds overrides the signal sufficiency and repetition thresholds.
func WithThresholds(th signals.Thresholds) Option {
	return func(c *config) { c.Thresholds = th }
}

// WithSelector sets the paraphrase selector for insight sentences.
func WithSelector(s report.Selector) Option {
	return func(c *config) { c.Selector = s }
}

// WithBranches replaces the branch allow-list.
func WithBranches(b []intent.BranchAlias) Option {
	return func(c *config) {
		if len(b) > 0 {
			c.Branches = b
		}
	}
}

// WithLLMTimeout bounds each generation call.
func WithLLMTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.LLMTimeout = d
		}
	}
}

// WithMasker replaces the PII redaction applied to rendered text.
func WithMasker(m func(string) string) Option {
	return func(c *config) { c.Masker = m }
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:        zap.NewNop(),
		MaxSQLRows:    translator.DefaultMaxRows,
		MaxTableRows:  report.DefaultMaxTableRows,
		Thresholds:    signals.DefaultThresholds(),
		Selector:      report.FirstSelector{},
		Branches:      intent.DefaultBranches(),
		LLMTimeout:    30 * time.Second,
		HiddenSamples: 5,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

package translator

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxRows is the LIMIT appended to unbounded generated SQL.
const DefaultMaxRows = 200

// SQLTranslator implements Translator on top of any LLM.
type SQLTranslator struct {
	llm     LLM
	cache   *Cache
	maxRows int
	logger  *zap.Logger
}

// Option configures an SQLTranslator.
type Option func(*SQLTranslator)

// WithCache enables the per-question SQL cache.
func WithCache(c *Cache) Option {
	return func(t *SQLTranslator) { t.cache = c }
}

// WithMaxRows sets the safety LIMIT.
func WithMaxRows(n int) Option {
	return func(t *SQLTranslator) {
		if n > 0 {
			t.maxRows = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *SQLTranslator) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a translator over llm.
func New(llm LLM, opts ...Option) *SQLTranslator {
	t := &SQLTranslator{llm: llm, maxRows: DefaultMaxRows, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate asks the LLM for SQL, then extracts, normalizes, validates and
// bounds it. Only SQL that passed the gate is cached.
func (t *SQLTranslator) Translate(ctx context.Context, req Request) (*Translation, error) {
	provider := t.llm.Name()
	if hit, ok := t.cache.Get(req.Table.Name, provider, req.Question); ok {
		hit.Cached = true
		t.logger.Debug("🗃️ translator: cache hit", zap.String("table", req.Table.Name))
		return &hit, nil
	}

	start := time.Now()
	raw, err := t.llm.Complete(ctx, BuildPrompt(req.Table, req.Dialect, t.maxRows), BuildUserMessage(req.Question))
	if err != nil {
		return nil, eris.Wrapf(err, "translate via %s", provider)
	}
	t.logger.Info("🤖 translator: LLM answered",
		zap.String("provider", provider),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(raw)))

	sql, reason := ExtractSQL(raw)
	sql = NormalizeSQL(sql)
	if sql == "" {
		return nil, ErrEmptySQL
	}
	var dialectName string
	if req.Dialect != nil {
		dialectName = req.Dialect.Name()
	}
	if err := Validate(sql, req.Table.Name, req.Dialect); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			t.logger.Warn("🚫 translator: SQL rejected",
				zap.String("rule", verr.Rule),
				zap.String("dialect", dialectName))
		}
		return nil, err
	}

	out := Translation{SQL: EnsureLimit(sql, t.maxRows), Reason: reason, Provider: provider}
	t.cache.Put(req.Table.Name, provider, req.Question, out)
	return &out, nil
}

package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/store"
	"github.com/spektr-org/insightbot/translator"
)

// ============================================================================
// RESOLUTION CHAIN — template → generative → fallback
// ============================================================================

// State is the chain stage that produced a result.
type State string

const (
	StateTemplate   State = "template"
	StateGenerative State = "generative"
	StateFallback   State = "fallback"
)

// Degradation notes shown to the user.
const (
	NoteTemplateFailed   = "요청한 분석 쿼리 실행에 실패해 기본 분석 결과로 대신 답변합니다."
	NoteGenerationFailed = "질문을 SQL로 변환하지 못해 기본 분석 결과로 대신 답변합니다."
)

// ErrNoTranslator is recorded when no LLM is configured.
var ErrNoTranslator = eris.New("resolver: no translator configured")

// Querier runs SQL against one snapshot.
type Querier interface {
	Query(ctx context.Context, sql string) (*store.Result, error)
	Dialect() store.Dialect
}

// Attempt records one executed or rejected SQL.
type Attempt struct {
	State State  `json:"state"`
	Name  string `json:"name,omitempty"`
	SQL   string `json:"sql,omitempty"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Resolution is the outcome of a successful chain run.
type Resolution struct {
	Domain       intent.Domain `json:"domain"`
	State        State         `json:"state"`
	TemplateName string        `json:"template_name,omitempty"`
	SQL          string        `json:"sql"`
	Result       *store.Result `json:"-"`
	Degraded     bool          `json:"degraded"`
	Note         string        `json:"note,omitempty"`
	Attempts     []Attempt     `json:"attempts"`
}

// FatalError means the safe default itself failed. It is the only error
// Resolve returns; SQL is the last statement attempted.
type FatalError struct {
	Domain intent.Domain
	SQL    string
	Cause  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("resolver: %s query failed: %v", e.Domain, e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }

// Chain resolves requests for every registered domain.
type Chain struct {
	registries map[intent.Domain]*Registry
	translator translator.Translator
	timeout    time.Duration
	maxRows    int
	logger     *zap.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithTranslator enables the generative stage.
func WithTranslator(t translator.Translator) ChainOption {
	return func(c *Chain) { c.translator = t }
}

// WithTimeout bounds each LLM call.
func WithTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRows caps rows returned by generated SQL.
func WithMaxRows(n int) ChainOption {
	return func(c *Chain) {
		if n > 0 {
			c.maxRows = n
		}
	}
}

// WithChainLogger sets the logger.
func WithChainLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChain builds a chain over the given registries.
func NewChain(registries []*Registry, opts ...ChainOption) *Chain {
	c := &Chain{
		registries: make(map[intent.Domain]*Registry, len(registries)),
		timeout:    30 * time.Second,
		maxRows:    translator.DefaultMaxRows,
		logger:     zap.NewNop(),
	}
	for _, r := range registries {
		c.registries[r.Domain] = r
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry for domain.
func (c *Chain) Registry(domain intent.Domain) (*Registry, bool) {
	r, ok := c.registries[domain]
	return r, ok
}

// Resolve runs the chain for req against q. States run strictly in order
// and every attempt is recorded on the resolution.
func (c *Chain) Resolve(ctx context.Context, q Querier, req Request) (*Resolution, error) {
	reg, ok := c.registries[req.Domain]
	if !ok {
		return nil, &FatalError{Domain: req.Domain, Cause: eris.Errorf("no registry for domain %q", req.Domain)}
	}
	if req.Dialect == nil {
		req.Dialect = q.Dialect()
	}
	res := &Resolution{Domain: req.Domain}

	if tpl, ok := reg.Lookup(req); ok {
		sql := tpl.Build(req)
		result, err := c.exec(ctx, q, res, StateTemplate, tpl.Name, sql)
		if err == nil {
			return res.finish(StateTemplate, tpl.Name, sql, result), nil
		}
		fb := reg.Fallback(req)
		fbSQL := fb.Build(req)
		if fbSQL == sql {
			return nil, &FatalError{Domain: req.Domain, SQL: sql, Cause: err}
		}
		return c.fallback(ctx, q, res, fb.Name, fbSQL, NoteTemplateFailed)
	}

	if out, err := c.generate(ctx, reg, req); err != nil {
		res.record(StateGenerative, "", "", err)
		c.logger.Warn("⚠️ resolver: generation failed", zap.String("domain", string(req.Domain)), zap.Error(err))
	} else {
		sql := translator.EnsureLimit(out.SQL, c.maxRows)
		result, err := c.exec(ctx, q, res, StateGenerative, "", sql)
		if err == nil {
			return res.finish(StateGenerative, "", sql, result), nil
		}
	}

	fb := reg.Fallback(req)
	return c.fallback(ctx, q, res, fb.Name, fb.Build(req), NoteGenerationFailed)
}

func (c *Chain) generate(ctx context.Context, reg *Registry, req Request) (*translator.Translation, error) {
	if c.translator == nil {
		return nil, ErrNoTranslator
	}
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.translator.Translate(tctx, translator.Request{
		Table:    reg.Table,
		Dialect:  req.Dialect,
		Question: req.Question,
	})
}

func (c *Chain) fallback(ctx context.Context, q Querier, res *Resolution, name, sql, note string) (*Resolution, error) {
	result, err := c.exec(ctx, q, res, StateFallback, name, sql)
	if err != nil {
		return nil, &FatalError{Domain: res.Domain, SQL: sql, Cause: err}
	}
	res.Degraded = true
	res.Note = note
	return res.finish(StateFallback, name, sql, result), nil
}

func (c *Chain) exec(ctx context.Context, q Querier, res *Resolution, state State, name, sql string) (*store.Result, error) {
	start := time.Now()
	result, err := q.Query(ctx, sql)
	res.record(state, name, sql, err)
	if err != nil {
		c.logger.Warn("❌ resolver: query failed",
			zap.String("state", string(state)),
			zap.String("template", name),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("✅ resolver: query ok",
		zap.String("state", string(state)),
		zap.String("template", name),
		zap.Int("rows", result.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (r *Resolution) record(state State, name, sql string, err error) {
	a := Attempt{State: state, Name: name, SQL: sql, Err: err}
	if err != nil {
		a.Error = err.Error()
	}
	r.Attempts = append(r.Attempts, a)
}

func (r *Resolution) finish(state State, name, sql string, result *store.Result) *Resolution {
	r.State = state
	r.TemplateName = name
	r.SQL = sql
	r.Result = result
	return r
}

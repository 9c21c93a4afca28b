// Package engine answers natural-language questions over the loaded review
// and sales tables.
//
// Usage:
//
//	reviews := store.New(store.OpenSQLite, logger)
//	sales := store.New(store.OpenSQLite, logger)
//	assistant := engine.New(reviews, sales,
//	    engine.WithTranslator(tr),
//	    engine.WithLogger(logger),
//	)
//	answer, err := assistant.Answer(ctx, engine.Question{Text: "최근 7일 매출 얼마야?"})
//
// Every answer is resolved against one table snapshot, so a concurrent
// reload never mixes two versions of the data in a single report.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/report"
	"github.com/spektr-org/insightbot/resolver"
	"github.com/spektr-org/insightbot/signals"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// ASSISTANT — route → resolve ∥ signals → render
// ============================================================================

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = eris.New("engine: question is empty")

// StateFailed marks an answer whose resolution chain was exhausted.
const StateFailed resolver.State = "failed"

// Turn is one prior chat message. History is carried through unchanged.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Question is one user request.
type Question struct {
	Text    string `json:"question"`
	History []Turn `json:"history,omitempty"`
}

// Answer is a rendered response plus what produced it.
type Answer struct {
	Domain      intent.Domain     `json:"domain"`
	ResolvedSQL string            `json:"resolved_sql"`
	Markdown    string            `json:"answer"`
	Table       *report.TableData `json:"table,omitempty"`
	RowCount    int               `json:"row_count"`
	State       resolver.State    `json:"state"`
	Degraded    bool              `json:"degraded"`
	RequestID   string            `json:"request_id"`
	Latency     time.Duration     `json:"latency"`
}

// Assistant wires routing, the resolution chain, signals and rendering.
type Assistant struct {
	reviews  *store.Store
	sales    *store.Store
	router   *intent.Router
	chain    *resolver.Chain
	renderer *report.Renderer
	cfg      *config
	logger   *zap.Logger
}

// New builds an Assistant over two stores, either of which may still be empty.
func New(reviews, sales *store.Store, opts ...Option) *Assistant {
	cfg := applyOptions(opts)

	chainOpts := []resolver.ChainOption{
		resolver.WithTimeout(cfg.LLMTimeout),
		resolver.WithMaxRows(cfg.MaxSQLRows),
		resolver.WithChainLogger(cfg.Logger),
	}
	if cfg.Translator != nil {
		chainOpts = append(chainOpts, resolver.WithTranslator(cfg.Translator))
	}

	renderOpts := []report.Option{
		report.WithTableLimits(cfg.MaxTableRows, 0),
		report.WithSelector(cfg.Selector),
	}
	if cfg.Masker != nil {
		renderOpts = append(renderOpts, report.WithMasker(cfg.Masker))
	}

	return &Assistant{
		reviews:  reviews,
		sales:    sales,
		router:   intent.DefaultRouter(),
		chain:    resolver.NewChain([]*resolver.Registry{resolver.ReviewRegistry(), resolver.SalesRegistry()}, chainOpts...),
		renderer: report.NewRenderer(renderOpts...),
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// Answer routes q, resolves it against one snapshot and renders the report.
// A question the chain cannot answer still yields an Answer carrying a
// failure report; only infrastructure errors are returned.
func (a *Assistant) Answer(ctx context.Context, q Question) (*Answer, error) {
	started := time.Now()
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	decision := a.router.Route(text)
	log := a.logger.With(zap.String("request_id", requestID), zap.String("domain", string(decision.Domain)))
	log.Info("🧭 engine: routed", zap.String("rule", decision.Rule), zap.Int("history", len(q.History)))

	src := a.reviews
	if decision.Domain == intent.DomainSales {
		src = a.sales
	}
	snap, err := src.Acquire()
	if errors.Is(err, store.ErrNotLoaded) && decision.Domain == intent.DomainSales {
		log.Warn("⚠️ engine: sales table not loaded")
		return &Answer{
			Domain:    decision.Domain,
			Markdown:  a.renderer.NotReady(decision.Question),
			State:     StateFailed,
			RequestID: requestID,
			Latency:   time.Since(started),
		}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "engine: acquire %s table", decision.Domain)
	}
	defer snap.Release()

	req := resolver.NewRequest(decision.Domain, decision.Question, a.cfg.Branches, snap.Dialect())

	var (
		markdown string
		res      *resolver.Resolution
	)
	switch decision.Domain {
	case intent.DomainSales:
		markdown, res, err = a.answerSales(ctx, snap, req)
	default:
		markdown, res, err = a.answerReviews(ctx, snap, req)
	}
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Domain:    decision.Domain,
		Markdown:  markdown,
		RequestID: requestID,
		Latency:   time.Since(started),
	}
	if res == nil {
		answer.State = StateFailed
	} else {
		answer.ResolvedSQL = res.SQL
		answer.Table = report.BuildTable(res.Result, a.cfg.MaxTableRows, 0, a.renderer.Mask)
		answer.RowCount = res.Result.Len()
		answer.State = res.State
		answer.Degraded = res.Degraded
	}
	log.Info("✅ engine: answered",
		zap.String("state", string(answer.State)),
		zap.Bool("degraded", answer.Degraded),
		zap.Int("rows", answer.RowCount),
		zap.Duration("latency", answer.Latency))
	return answer, nil
}

// resolve runs the chain and turns a FatalError into a failure report.
func (a *Assistant) resolve(ctx context.Context, snap *store.Snapshot, req resolver.Request) (*resolver.Resolution, string, error) {
	res, err := a.chain.Resolve(ctx, snap, req)
	if err == nil {
		return res, "", nil
	}
	var fatal *resolver.FatalError
	if errors.As(err, &fatal) && ctx.Err() == nil {
		a.logger.Error("❌ engine: resolution failed", zap.String("sql", fatal.SQL), zap.Error(fatal.Cause))
		return nil, a.renderer.Failure(req.Question, fatal), nil
	}
	return nil, "", eris.Wrap(err, "engine: resolve")
}

// ============================================================================
// REVIEWS
// ============================================================================

func (a *Assistant) answerReviews(ctx context.Context, snap *store.Snapshot, req resolver.Request) (string, *resolver.Resolution, error) {
	var (
		res     *resolver.Resolution
		failure string
		in      = report.ReviewInput{
			Question:      req.Question,
			ScopeLabel:    req.Branch.Label,
			MetricRequest: req.Review.MetricRequest,
			Simple:        req.Review.Simple,
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, failure, err = a.resolve(gctx, snap, req)
		return err
	})
	g.Go(func() error {
		scoped := signals.Scope(snap.Reviews, req.Branch)
		in.Signals = signals.NegativeSignals(scoped, a.cfg.Thresholds)
		in.Hidden = signals.HiddenComplaints(scoped, a.cfg.HiddenSamples, a.renderer.Mask)
		in.PositiveCount, in.HiddenCount = signals.HiddenRatio(scoped)
		in.Revisit = signals.Revisit(scoped)
		in.Recency = signals.RecencyDelta(scoped, a.cfg.Thresholds)
		in.Density = signals.BranchDensity(scoped)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", nil, err
	}
	if res == nil {
		return failure, nil, nil
	}
	in.Resolution = res
	return a.renderer.Review(in), res, nil
}

// ============================================================================
// SALES
// ============================================================================

func (a *Assistant) answerSales(ctx context.Context, snap *store.Snapshot, req resolver.Request) (string, *resolver.Resolution, error) {
	var (
		res        *resolver.Resolution
		failure    string
		comparison *signals.Comparison
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, failure, err = a.resolve(gctx, snap, req)
		return err
	})
	if days, ok := report.ComparisonDays(req.Sales, nil); ok {
		g.Go(func() error {
			c := signals.PeriodComparison(snap.Sales, days)
			comparison = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}
	if res == nil {
		return failure, nil, nil
	}

	// A bare "최근" takes its window from the range the result covers.
	if comparison == nil {
		if days, ok := report.ComparisonDays(req.Sales, res.Result); ok {
			c := signals.PeriodComparison(snap.Sales, days)
			comparison = &c
		}
	}

	return a.renderer.Sales(report.SalesInput{
		Question:   req.Question,
		Intent:     req.Sales,
		Resolution: res,
		Comparison: comparison,
	}), res, nil
}

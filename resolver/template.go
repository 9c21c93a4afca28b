// Package resolver turns a classified question into executed SQL.
//
// Resolution runs a fixed chain: a deterministic template when one
// matches, the LLM translator when none does, and the domain safe default
// when either fails. Only a failing safe default escapes as an error.
package resolver

import (
	"strings"

	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
)

// Request is everything a template builder may read. All fields are
// validated values: an allow-listed branch, clamped integers and the dialect.
type Request struct {
	Domain   intent.Domain
	Question string
	Branch   intent.Branch
	Review   intent.ReviewIntent
	Sales    intent.SalesIntent
	Dialect  store.Dialect
}

// NewRequest classifies question for domain.
func NewRequest(domain intent.Domain, question string, branches []intent.BranchAlias, dialect store.Dialect) Request {
	req := Request{Domain: domain, Question: question, Dialect: dialect}
	switch domain {
	case intent.DomainSales:
		req.Sales = intent.ParseSales(question)
	default:
		req.Review = intent.ParseReview(question)
		req.Branch = intent.ResolveBranch(question, branches)
	}
	return req
}

// Template is a named deterministic SQL builder.
type Template struct {
	Name  string
	Match func(Request) bool
	Build func(Request) string
}

// Registry is an ordered template list plus the domain safe default.
type Registry struct {
	Domain    intent.Domain
	Table     schema.Table
	Templates []Template

	// Fallback picks the safe default for a request. It never returns nil Build.
	Fallback func(Request) Template
}

// Lookup returns the first template whose Match accepts req.
func (r *Registry) Lookup(req Request) (Template, bool) {
	for _, t := range r.Templates {
		if t.Match(req) {
			return t, true
		}
	}
	return Template{}, false
}

// Names lists template names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.Templates))
	for i, t := range r.Templates {
		names[i] = t.Name
	}
	return names
}

// literal renders s as a single-quoted SQL string.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sqlBlock(s string) string {
	return strings.TrimSpace(s)
}

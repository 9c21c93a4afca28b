package translator

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// TRANSLATOR — AI boundary for natural language → read-only SQL
// ============================================================================
// The Translator is the ONLY component that calls an external AI service.
// It receives table metadata + the user question and returns SQL that has
// already passed the validation gate and carries a safe LIMIT.
// It NEVER sees raw data. Only column names, types and the question.
// ============================================================================

// Translator turns a question into validated SQL for one table.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Translation, error)
}

// Request is one generation call.
type Request struct {
	Table    schema.Table
	Dialect  store.Dialect
	Question string
}

// Translation is the generated SQL and the model's stated reason.
type Translation struct {
	SQL      string `json:"sql"`
	Reason   string `json:"reason,omitempty"`
	Provider string `json:"provider"`
	Cached   bool   `json:"cached"`
}

// LLM is a single-turn chat completion backend.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Config holds LLM provider configuration.
type Config struct {
	APIKey      string  // provider API key
	Model       string  // model name (e.g., "gpt-5-mini")
	BaseURL     string  // API endpoint override (empty = default)
	Temperature float64 // clamped to [0, 1]
}

// DefaultOpenAIConfig returns a Config with the OpenAI defaults.
func DefaultOpenAIConfig(apiKey string) Config {
	return Config{APIKey: apiKey, Model: "gpt-5-mini", Temperature: 0.35}
}

// DefaultGeminiConfig returns a Config with the Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{APIKey: apiKey, Model: "gemini-2.5-flash-lite", Temperature: 0.35}
}

// ClampTemperature limits t to [0, 1].
func ClampTemperature(t float64) float64 {
	return max(0, min(t, 1))
}

// ============================================================================
// ERRORS
// ============================================================================

// ErrEmptySQL is returned when the model output holds no SQL.
var ErrEmptySQL = eris.New("translator: LLM returned empty SQL")

// Validation rules.
const (
	RuleSelectOnly     = "select-only"
	RuleForbidden      = "forbidden-keyword"
	RuleUnsupported    = "unsupported-function"
	RuleTableReference = "table-reference"
	RuleMultiStatement = "multi-statement"
)

// ValidationError reports which gate rule rejected the SQL.
type ValidationError struct {
	Rule   string
	Detail string
	SQL    string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("translator: SQL rejected by %s", e.Rule)
	}
	return fmt.Sprintf("translator: SQL rejected by %s: %s", e.Rule, e.Detail)
}

// Package config reads insightbot settings from the environment, an optional
// .env file and an optional YAML file. Environment values win over YAML.
package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/insightbot/engine"
	"github.com/spektr-org/insightbot/ingest"
	"github.com/spektr-org/insightbot/intent"
	"github.com/spektr-org/insightbot/signals"
	"github.com/spektr-org/insightbot/store"
	"github.com/spektr-org/insightbot/translator"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port   string
	Env    string
	LLM    LLMConfig
	Source SourceConfig
	Limits Limits
	Store  StoreConfig
	S3     ingest.S3Config

	Branches   []intent.BranchAlias
	Thresholds signals.Thresholds
}

type LLMConfig struct {
	Provider     string
	OpenAI       translator.Config
	Gemini       translator.Config
	Timeout      time.Duration
	CacheEntries int
}

type SourceConfig struct {
	ReviewPath    string
	SalesPath     string
	ExcelPassword string
	SalesBranch   string
}

type Limits struct {
	MaxSQLRows   int `yaml:"max_sql_rows"`
	MaxTableRows int `yaml:"max_table_rows"`
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
}

// fileConfig is the YAML layout read from INSIGHTBOT_CONFIG.
type fileConfig struct {
	Branches   []intent.BranchAlias `yaml:"branches"`
	Thresholds *signals.Thresholds  `yaml:"thresholds"`
	Limits     Limits               `yaml:"limits"`
	LLM        struct {
		Provider string `yaml:"provider"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"llm"`
}

// Load reads .env (if present), the YAML file named by INSIGHTBOT_CONFIG (if
// set) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("INSIGHTBOT_CONFIG")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port: ":8080",
		Env:  "local",
		LLM: LLMConfig{
			Provider:     ProviderOpenAI,
			OpenAI:       translator.DefaultOpenAIConfig(""),
			Gemini:       translator.DefaultGeminiConfig(""),
			Timeout:      30 * time.Second,
			CacheEntries: 256,
		},
		Source: SourceConfig{
			ReviewPath:  "data/reviews.csv",
			SalesBranch: "강남점",
		},
		Limits: Limits{
			MaxSQLRows:   translator.DefaultMaxRows,
			MaxTableRows: 20,
		},
		Store:      StoreConfig{Driver: DriverSQLite},
		Branches:   intent.DefaultBranches(),
		Thresholds: signals.DefaultThresholds(),
	}
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read %s", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return eris.Wrapf(err, "config: parse %s", path)
	}

	if len(fc.Branches) > 0 {
		c.Branches = fc.Branches
	}
	if fc.Thresholds != nil {
		c.Thresholds = *fc.Thresholds
	}
	if fc.Limits.MaxSQLRows > 0 {
		c.Limits.MaxSQLRows = fc.Limits.MaxSQLRows
	}
	if fc.Limits.MaxTableRows > 0 {
		c.Limits.MaxTableRows = fc.Limits.MaxTableRows
	}
	if p := strings.TrimSpace(fc.LLM.Provider); p != "" {
		c.LLM.Provider = strings.ToLower(p)
	}
	if t := strings.TrimSpace(fc.LLM.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return eris.Wrapf(err, "config: llm.timeout %q", t)
		}
		c.LLM.Timeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if envPort := env("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			c.Port = envPort
		} else {
			c.Port = ":" + envPort
		}
	}
	c.Env = firstNonEmpty(env("APP_ENV"), c.Env)

	c.LLM.Provider = strings.ToLower(firstNonEmpty(env("LLM_PROVIDER"), c.LLM.Provider))
	c.LLM.OpenAI.APIKey = env("OPENAI_API_KEY")
	c.LLM.OpenAI.Model = firstNonEmpty(env("OPENAI_MODEL"), c.LLM.OpenAI.Model)
	c.LLM.OpenAI.BaseURL = env("OPENAI_BASE_URL")
	c.LLM.Gemini.APIKey = firstNonEmpty(env("GEMINI_API_KEY"), env("GOOGLE_API_KEY"))
	c.LLM.Gemini.Model = firstNonEmpty(env("GEMINI_MODEL"), c.LLM.Gemini.Model)
	if raw := env("OPENAI_TEMPERATURE"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return eris.Wrapf(err, "config: OPENAI_TEMPERATURE %q", raw)
		}
		c.LLM.OpenAI.Temperature = translator.ClampTemperature(t)
		c.LLM.Gemini.Temperature = c.LLM.OpenAI.Temperature
	}
	if raw := env("LLM_TIMEOUT"); raw != "" {
		d, err := parseDuration(raw)
		if err != nil {
			return eris.Wrapf(err, "config: LLM_TIMEOUT %q", raw)
		}
		c.LLM.Timeout = d
	}

	c.Source.ReviewPath = firstNonEmpty(env("REVIEW_CSV_PATH"), c.Source.ReviewPath)
	c.Source.SalesPath = firstNonEmpty(env("SALES_REPORT_PATH"), c.Source.SalesPath)
	c.Source.ExcelPassword = env("EXCEL_PASSWORD")
	c.Source.SalesBranch = firstNonEmpty(env("SALES_BRANCH_NAME"), c.Source.SalesBranch)

	var err error
	if c.Limits.MaxSQLRows, err = positiveInt("MAX_SQL_ROWS", c.Limits.MaxSQLRows); err != nil {
		return err
	}
	if c.Limits.MaxTableRows, err = positiveInt("MAX_TABLE_ROWS", c.Limits.MaxTableRows); err != nil {
		return err
	}

	c.Store.Driver = strings.ToLower(firstNonEmpty(env("STORE_DRIVER"), c.Store.Driver))
	c.Store.DatabaseURL = env("DATABASE_URL")

	c.S3 = ingest.S3Config{
		Endpoint:  env("S3_ENDPOINT"),
		Region:    firstNonEmpty(env("S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(env("S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(env("S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
		UseSSL:    parseBool(env("S3_USE_SSL"), true),
	}
	return nil
}

// Production reports whether APP_ENV selects production behavior.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// ============================================================================
// BUILDERS
// ============================================================================

// NewLogger returns a production logger for production, a development logger
// otherwise.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Opener returns the store backend selected by STORE_DRIVER.
func (c *Config) Opener() (store.Opener, error) {
	switch c.Store.Driver {
	case "", DriverSQLite:
		return store.OpenSQLite, nil
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			return nil, eris.New("config: STORE_DRIVER=postgres requires DATABASE_URL")
		}
		return store.OpenPostgres(c.Store.DatabaseURL), nil
	}
	return nil, eris.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
}

// NewTranslator builds the SQL translator for the configured provider. It
// returns nil for provider "none", which leaves the chain template-only.
func (c *Config) NewTranslator(ctx context.Context, logger *zap.Logger) (translator.Translator, error) {
	var (
		llm translator.LLM
		err error
	)
	switch c.LLM.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderOpenAI:
		llm, err = translator.NewOpenAI(c.LLM.OpenAI)
	case ProviderGemini:
		llm, err = translator.NewGemini(ctx, c.LLM.Gemini)
	default:
		return nil, eris.Errorf("config: unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "config: %s client", c.LLM.Provider)
	}
	return translator.New(llm,
		translator.WithCache(translator.NewCache(c.LLM.CacheEntries)),
		translator.WithMaxRows(c.Limits.MaxSQLRows),
		translator.WithLogger(logger),
	), nil
}

// EngineOptions maps the configuration onto engine options.
func (c *Config) EngineOptions(tr translator.Translator, logger *zap.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMaxSQLRows(c.Limits.MaxSQLRows),
		engine.WithMaxTableRows(c.Limits.MaxTableRows),
		engine.WithThresholds(c.Thresholds),
		engine.WithBranches(c.Branches),
		engine.WithLLMTimeout(c.LLM.Timeout),
	}
	if tr != nil {
		opts = append(opts, engine.WithTranslator(tr))
	}
	return opts
}

// ============================================================================
// HELPERS
// ============================================================================

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func positiveInt(key string, def int) (int, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, eris.Errorf("config: %s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

// parseDuration accepts Go durations ("45s") and bare seconds ("45").
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/config"
	"github.com/spektr-org/insightbot/engine"
	"github.com/spektr-org/insightbot/ingest"
	"github.com/spektr-org/insightbot/server"
	"github.com/spektr-org/insightbot/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open, err := cfg.Opener()
	if err != nil {
		logger.Fatal("❌ store driver", zap.Error(err))
	}
	fetch, err := ingest.NewFetcher(cfg.S3)
	if err != nil {
		logger.Fatal("❌ object storage", zap.Error(err))
	}

	reviews := store.New(open, logger)
	defer reviews.Close()
	ds, err := ingest.LoadReviews(ctx, fetch, cfg.Source.ReviewPath)
	if err != nil {
		logger.Fatal("❌ load reviews", zap.String("path", cfg.Source.ReviewPath), zap.Error(err))
	}
	if err := reviews.Replace(ctx, ds); err != nil {
		logger.Fatal("❌ load reviews", zap.Error(err))
	}

	// A missing or unreadable sales report leaves the sales engine not ready;
	// it can be loaded later through POST /api/sales/source.
	sales := store.New(open, logger)
	defer sales.Close()
	loader := ingest.NewSalesLoader(fetch, cfg.Source.SalesBranch, logger)
	if cfg.Source.SalesPath != "" {
		ds, err := loader.Load(ctx, cfg.Source.SalesPath, cfg.Source.ExcelPassword)
		if err == nil {
			err = sales.Replace(ctx, ds)
		}
		if err != nil {
			logger.Warn("⚠️ sales report not loaded", zap.String("path", cfg.Source.SalesPath), zap.Error(err))
		}
	}

	tr, err := cfg.NewTranslator(ctx, logger)
	if err != nil {
		logger.Warn("⚠️ LLM disabled, templates only", zap.Error(err))
		tr = nil
	}
	assistant := engine.New(reviews, sales, cfg.EngineOptions(tr, logger)...)

	srv := server.New(assistant, reviews, sales, loader,
		server.WithLogger(logger),
		server.WithExcelPassword(cfg.Source.ExcelPassword),
	)
	if err := srv.Run(ctx, cfg.Port); err != nil {
		logger.Error("❌ server stopped", zap.Error(err))
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

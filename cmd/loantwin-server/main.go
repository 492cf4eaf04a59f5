// Command loantwin-server runs the loan workspace API: loan and document
// management, synchronous DLR extraction, and the probe/metrics sidecar
// port for deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/config"
	"github.com/loantwindb/loantwin-go/healthserver"
	"github.com/loantwindb/loantwin-go/llm"
	"github.com/loantwindb/loantwin-go/loansaf"
	"github.com/loantwindb/loantwin-go/logging"
	"github.com/loantwindb/loantwin-go/reading"
	"github.com/loantwindb/loantwin-go/server"
	"github.com/loantwindb/loantwin-go/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// .env is optional; environment overrides still apply without it.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(&cfg.Logging)
	defer logger.Sync()

	if dir := filepath.Dir(cfg.Store.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("failed to create data dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()
	if err := st.Init(); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to build llm client", zap.Error(err))
	}
	if client == nil {
		logger.Warn("no llm provider configured, extraction runs regex-only")
	} else {
		client = loansaf.InstrumentLLM(client, cfg.LLM.Provider)
		logger.Info("llm client ready",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
	}

	runner := reading.NewExecRunner(logger)
	engines := loansaf.NewEnginePool(cfg.OCR, client, runner, logger)
	loader := loansaf.NewLoader(nil, logger)
	extractor := loansaf.NewExtractor(loader, engines, client, logger)

	healthserver.Start(logger, cfg.Health.Port, func() bool {
		// Capability resolution is lazy; touching it here keeps the first
		// upload from blocking on backend probing.
		engines.Capabilities()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return st.Ping(pingCtx) == nil
	})

	gin.SetMode(gin.ReleaseMode)
	api := server.New(st, extractor, logger, cfg.Server.UploadDir, cfg.Server.MaxUploadMB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

// Command orchestratord runs the orchestration pipeline server: it loads
// configuration, connects the LLM/memory/action-exec collaborators, and
// serves the HTTP/WebSocket API until signaled to stop (§4.7).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/orchestrator/pkg/api"
	"github.com/codeready-toolchain/orchestrator/pkg/audit"
	"github.com/codeready-toolchain/orchestrator/pkg/clients"
	"github.com/codeready-toolchain/orchestrator/pkg/config"
	"github.com/codeready-toolchain/orchestrator/pkg/executor"
	"github.com/codeready-toolchain/orchestrator/pkg/pipeline"
	"github.com/codeready-toolchain/orchestrator/pkg/safety"
	"github.com/codeready-toolchain/orchestrator/pkg/session"
	"github.com/codeready-toolchain/orchestrator/pkg/version"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting", slog.String("version", version.Full()))

	llm := clients.NewLLMClient(cfg.LLMEndpoint, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMMaxTokens, 0, logger)
	memory := clients.NewMemoryClient(cfg.MemoryServiceURL, "orchestrator_memory", 0, logger)
	action := clients.NewActionClient(cfg.ActionExecutorURL, 0, logger)

	policy, err := safety.LoadPolicyFile(cfg.PolicyFile, cfg)
	if err != nil {
		logger.Error("failed to load safety policy", slog.String("error", err.Error()))
		os.Exit(2)
	}

	var auditStore *audit.Store
	if cfg.AuditLogEnabled {
		if cfg.DatabaseURL == "" {
			logger.Error("AUDIT_LOG_ENABLED is true but DATABASE_URL is empty")
			os.Exit(2)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		auditStore, err = audit.Open(ctx, cfg.DatabaseURL, logger)
		cancel()
		if err != nil {
			logger.Error("failed to open audit store", slog.String("error", err.Error()))
			os.Exit(2)
		}
		defer auditStore.Close()
	}

	validator := safety.NewValidator(policy, cfg)
	exec := executor.New(action, cfg.ActionTimeout, cfg.DryRunMode, logger)

	var auditSink pipeline.AuditSink
	if auditStore != nil {
		auditSink = auditStore
	}
	pl := pipeline.New(llm, memory, validator, exec, auditSink, "", cfg.AllowedActions, cfg.RequestTimeout, logger)

	sessions := session.NewManager(logger)

	server := api.NewServer(cfg, pl, sessions, llm, memory, action, policy, auditStore, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
		logger.Info("listening", slog.String("addr", addr))
		errCh <- server.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	_ = action.Close()
	_ = memory.Close()
	_ = llm.Close()
	logger.Info("shutdown complete")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

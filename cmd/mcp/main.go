package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/engineering-analysis-ai/internal/adapters/mcp"
	"github.com/kirillkom/engineering-analysis-ai/internal/bootstrap"
	"github.com/kirillkom/engineering-analysis-ai/internal/config"
	"github.com/kirillkom/engineering-analysis-ai/internal/observability/logging"
)

const (
	serviceName = "engai-mcp"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol stream.
	slog.SetDefault(logging.NewJSONLogger(os.Stderr, serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("mcp_server_starting", "transport", "stdio")
	if err := mcpadapter.NewServer(app.Analysis, version).ServeStdio(); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}

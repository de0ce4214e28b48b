package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/athlete-rag/internal/adapters/mcp"
	"github.com/kirillkom/athlete-rag/internal/bootstrap"
	"github.com/kirillkom/athlete-rag/internal/config"
	"github.com/kirillkom/athlete-rag/internal/observability/logging"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	// stdout carries the MCP protocol, so logs go to stderr.
	logger := logging.NewTextLogger(os.Stderr, "mcp", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server, err := mcpadapter.NewServer(&mcpadapter.Ports{
		Query:    app.QueryUC,
		Entities: app.Catalog.Labels(),
		TopK:     cfg.RAGTopK,
	})
	if err != nil {
		logger.Error("mcp_init_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("mcp_serving_stdio", "collection", app.Collection.Name)
	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/kirillkom/athlete-rag/internal/adapters/cli"
	"github.com/kirillkom/athlete-rag/internal/bootstrap"
	"github.com/kirillkom/athlete-rag/internal/config"
	"github.com/kirillkom/athlete-rag/internal/observability/logging"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger := logging.NewTextLogger(os.Stderr, "ragctl", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context) (*cli.Services, error) {
		app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Query:    app.QueryUC,
			Ingestor: app.IngestUC,
			Status:   app.Readiness,
			Entities: app.Catalog.Labels(),
			TopK:     cfg.RAGTopK,
			Close:    app.Close,
		}, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

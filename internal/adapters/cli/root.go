// Package cli is the ragctl command line front end. It only calls the ingestion and query
// pipelines and holds no pipeline state of its own.
package cli

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

// Services are built lazily by a Provider so that help and flag errors never dial the
// vector store or the model server.
type Services struct {
	Query    ports.QueryService
	Ingestor ports.CorpusIngestor
	Status   ports.CorpusStatusReader
	Entities []string
	TopK     int
	Close    func()
}

type Provider func(ctx context.Context) (*Services, error)

var errNotConfigured = errors.New("service not configured")

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

type app struct {
	provide  Provider
	services *Services
}

func NewRootCommand(provide Provider) *cobra.Command {
	a := &app{provide: provide}

	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Ask questions about athletes from an indexed document corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}
			return a.load(cmd.Context())
		},
	}
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(
		newIngestCommand(a),
		newDropCommand(a),
		newAskCommand(a),
		newChatCommand(a),
		newStatusCommand(a),
		newEntitiesCommand(a),
	)
	for _, sub := range root.Commands() {
		closeAfterRun(a, sub)
	}
	return root
}

// closeAfterRun releases the services once the command returns, including on error.
func closeAfterRun(a *app, cmd *cobra.Command) {
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return run(cmd, args)
	}
}

func (a *app) load(ctx context.Context) error {
	if a.services != nil {
		return nil
	}
	if a.provide == nil {
		return errNotConfigured
	}
	if ctx == nil {
		ctx = context.Background()
	}
	services, err := a.provide(ctx)
	if err != nil {
		return err
	}
	a.services = services
	return nil
}

func (a *app) close() {
	if a.services != nil && a.services.Close != nil {
		a.services.Close()
	}
	a.services = nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

func newIngestCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the collection from the entity catalog",
		Long: `Fetches one document per catalog entity, chunks and embeds them, and replaces
the collection. Entities whose document cannot be fetched are skipped and reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.services.Ingestor == nil {
				return errNotConfigured
			}
			report, err := a.services.Ingestor.Rebuild(cmd.Context())
			if asJSON {
				if encErr := writeJSON(cmd, report); encErr != nil {
					return encErr
				}
				return err
			}
			printSkipped(cmd, report.Skipped)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			out := cmd.OutOrStdout()
			success.Fprintf(out, "Indexed %d chunks from %d documents into %s", report.Indexed, report.Documents, report.Collection)
			faint.Fprintf(out, " (%s)\n", report.Duration().Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the ingestion report as JSON")
	return cmd
}

func newDropCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop the collection without --yes")
			}
			if a.services.Ingestor == nil {
				return errNotConfigured
			}
			if err := a.services.Ingestor.Drop(cmd.Context()); err != nil {
				return fmt.Errorf("drop failed: %w", err)
			}
			success.Fprintln(cmd.OutOrStdout(), "Deleted collection")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest collection rebuild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.services.Status == nil {
				return errNotConfigured
			}
			run, err := a.services.Status.LatestRun(cmd.Context())
			if err != nil {
				if domain.IsKind(err, domain.ErrNotFound) {
					warning.Fprintln(cmd.OutOrStdout(), "No rebuild recorded yet. Run `ragctl ingest`.")
					return nil
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, run)
			}
			printRun(cmd, run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	return cmd
}

func newEntitiesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the athletes in the entity catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, label := range a.services.Entities {
				fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	}
}

func printSkipped(cmd *cobra.Command, skipped []domain.SkippedEntity) {
	for _, s := range skipped {
		warning.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", s.Entity, s.Reason)
	}
}

func printRun(cmd *cobra.Command, run *domain.IngestionRun) {
	out := cmd.OutOrStdout()
	statusColor := success
	switch run.Status {
	case domain.RunStatusRunning, domain.RunStatusDropped:
		statusColor = warning
	case domain.RunStatusFailed:
		statusColor = failure
	}
	fmt.Fprintf(out, "Collection: %s\n", run.Collection)
	fmt.Fprint(out, "Status:     ")
	statusColor.Fprintln(out, run.Status)
	fmt.Fprintf(out, "Chunks:     %d\n", run.ChunkCount)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Finished:   %s\n", run.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if run.Error != "" {
		failure.Fprintf(out, "Error:      %s\n", run.Error)
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

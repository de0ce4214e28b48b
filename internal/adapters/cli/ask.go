package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

type askOptions struct {
	limit       int
	showSources bool
	asJSON      bool
}

func newAskCommand(a *app) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the indexed corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.services.Query == nil {
				return errNotConfigured
			}
			question := strings.Join(args, " ")
			answer, err := a.services.Query.Answer(cmd.Context(), question, a.limit(opts.limit))
			if opts.asJSON && answer != nil {
				if encErr := writeJSON(cmd, answer); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				if answer != nil && opts.showSources {
					printSources(cmd, answer.Sources)
				}
				return err
			}
			printAnswer(cmd, answer, opts.showSources)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "number of chunks to retrieve (0 = configured default)")
	cmd.Flags().BoolVarP(&opts.showSources, "sources", "s", false, "print the retrieved passages")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the answer as JSON")
	return cmd
}

func newChatCommand(a *app) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively; type exit or quit to leave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.services.Query == nil {
				return errNotConfigured
			}
			out := cmd.OutOrStdout()
			accent.Fprintln(out, "Athlete RAG chat. Type 'exit' to quit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "\nYou: ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if isExit(question) {
					fmt.Fprintln(out, "Goodbye!")
					return nil
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}

				answer, err := a.services.Query.Answer(cmd.Context(), question, a.limit(opts.limit))
				if err != nil {
					failure.Fprintf(out, "Error: %v\n", err)
					if answer != nil && opts.showSources {
						printSources(cmd, answer.Sources)
					}
					continue
				}
				printAnswer(cmd, answer, opts.showSources)
			}
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "number of chunks to retrieve (0 = configured default)")
	cmd.Flags().BoolVarP(&opts.showSources, "sources", "s", false, "print the retrieved passages")
	return cmd
}

func (a *app) limit(flag int) int {
	if flag > 0 {
		return flag
	}
	return a.services.TopK
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	default:
		return false
	}
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer, showSources bool) {
	out := cmd.OutOrStdout()
	accent.Fprint(out, "Answer: ")
	fmt.Fprintln(out, answer.Text)
	if answer.Filter.IsSet() {
		faint.Fprintf(out, "(searched %s only)\n", answer.Filter.Entity)
	}
	if showSources {
		printSources(cmd, answer.Sources)
	}
}

func printSources(cmd *cobra.Command, sources domain.RetrievalResult) {
	out := cmd.OutOrStdout()
	if len(sources) == 0 {
		faint.Fprintln(out, "No sources retrieved.")
		return
	}
	fmt.Fprintln(out, "Sources:")
	for i, s := range sources {
		fmt.Fprintf(out, "  [%d] %s ", i+1, s.Entity)
		faint.Fprintf(out, "(%.2f) %s\n", s.Score, s.SourceID)
		fmt.Fprintf(out, "      %s\n", strings.TrimSpace(s.Text))
	}
}

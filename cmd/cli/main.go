// Package main provides the movierec command-line client.
// Uses Cobra for command parsing.
//
// Run with: go run ./cmd/cli recommend "slow-burn sci-fi with a twist"
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/config"
	"github.com/drakeRAGE/movie-recommendation-app/internal/llm"
	"github.com/drakeRAGE/movie-recommendation-app/internal/model"
	"github.com/drakeRAGE/movie-recommendation-app/internal/recommend"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd creates the root command. Cobra builds a tree of commands:
// movierec recommend <query...>
// movierec interactive
func rootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "movierec",
		Short:        "Movie recommendations from a free-text preference",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log each completion attempt")

	root.AddCommand(recommendCmd(&verbose))
	root.AddCommand(interactiveCmd(&verbose))
	return root
}

func recommendCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <query...>",
		Short: "Recommend movies for one preference",
		Args:  cobra.MinimumNArgs(1),
		// RunE returns an error (vs Run which doesn't). Cobra prints the error automatically.
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(*verbose)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := svc.Recommend(ctx, strings.Join(args, " "))
			if err != nil {
				return failure(err)
			}
			return printMovies(cmd.OutOrStdout(), res.Movies)
		},
	}
}

func interactiveCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Read preferences line by line; each new line replaces the one in flight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(*verbose)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runInteractive(ctx, recommend.NewLatest(svc), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runInteractive submits every non-blank input line. Only the newest line's
// result is printed; answers to superseded lines are dropped. At end of input
// the last query still runs to completion; an interrupt abandons it.
func runInteractive(ctx context.Context, latest *recommend.Latest, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Describe what you feel like watching (Ctrl+D to finish).")

	deliver := func(res recommend.Result, err error) {
		if err != nil {
			fmt.Fprintf(out, "%s (%s)\n", recommend.UserMessage, recommend.KindOf(err))
			return
		}
		_ = printMovies(out, res.Movies)
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			latest.Cancel()
			return nil
		case line, ok := <-lines:
			if !ok {
				// End of input: let the last query finish unless interrupted.
				finished := make(chan struct{})
				go func() {
					latest.Wait()
					close(finished)
				}()
				select {
				case <-finished:
				case <-ctx.Done():
					latest.Cancel()
					<-finished
				}
				return <-scanErr
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			latest.Submit(ctx, line, deliver)
		}
	}
}

func newService(verbose bool) (*recommend.Service, func(), error) {
	cfg, err := config.Load(os.Getenv("MOVIEREC_CONFIG_PATH"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		// Development logs go to stderr, leaving stdout for results.
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("creating llm client: %w", err)
	}

	cleanup := func() { _ = logger.Sync() }
	return recommend.NewService(client, cfg.LLM, logger), cleanup, nil
}

func printMovies(out io.Writer, movies []model.Movie) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tYEAR\tREASON")
	for i, m := range movies {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, m.Title, orDash(m.Year), orDash(m.Reason))
	}
	return tw.Flush()
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// failure turns a recommendation error into the CLI's one-line message. The
// detail stays in the verbose log.
func failure(err error) error {
	kind := recommend.KindOf(err)
	if kind == recommend.KindValidation {
		return errors.New("please describe what you'd like to watch")
	}
	return fmt.Errorf("%s (%s)", recommend.UserMessage, kind)
}

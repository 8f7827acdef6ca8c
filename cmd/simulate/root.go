package main

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/pairrank/internal/simulation"
)

// defaultRunTimeout bounds a whole simulation run.
const defaultRunTimeout = 10 * time.Minute

func newRootCommand() *cobra.Command {
	var (
		cfg        simulation.Config
		logFile    string
		runTimeout time.Duration
		printJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a pairrank server with a simulated rater",
		Long: `Simulate repeatedly fetches a pair from a running pairrank server, judges
it with a hidden preference (optionally flipped by noise), and submits the
judgment with a fresh request_id. It then compares the server's standings
with the hidden ordering and reports Kendall tau plus the progress report.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog, err := simulation.SetupLogging(logFile, cfg.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx := cmd.Context()
			if runTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runTimeout)
				defer cancel()
			}

			rep, err := simulation.Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			if printJSON {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kendall tau %.3f over %d items (%d submitted, %d replayed, %d failed)\n",
				rep.KendallTau, len(rep.Observed), rep.Submitted, rep.Replayed, rep.Failed)
			if rep.Progress != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "confidence %.1f%%: %s\n", rep.Progress.AdjustedConfidence, rep.Progress.Advice)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", simulation.DefaultBaseURL, "Base URL of the service")
	f.IntVarP(&cfg.Rounds, "rounds", "n", simulation.DefaultRounds, "Number of pairs to judge")
	f.IntVarP(&cfg.Workers, "workers", "w", simulation.DefaultWorkers, "Number of concurrent raters")
	f.Float64Var(&cfg.Noise, "noise", 0, "Probability of flipping a judgment")
	f.Float64Var(&cfg.Replay, "replay", 0, "Probability of resending a submission with the same request_id")
	f.Int64Var(&cfg.Seed, "seed", 0, "Seed for the hidden ordering and noise (0 = random)")
	f.DurationVar(&cfg.Timeout, "timeout", simulation.DefaultTimeout, "HTTP request timeout")
	f.IntVar(&cfg.TopN, "top", simulation.DefaultTopN, "Rows of the final standings to report")
	f.StringVarP(&cfg.Output, "output", "o", "", "Write the JSON report to this file")
	f.StringVar(&logFile, "log", "", "Also write logs to this file")
	f.DurationVar(&runTimeout, "deadline", defaultRunTimeout, "Upper bound for the whole run (0 = none)")
	f.BoolVar(&printJSON, "json", false, "Print the report as JSON")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every judgment")

	return cmd
}

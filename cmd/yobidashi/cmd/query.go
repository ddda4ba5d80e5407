package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/yobidashi/internal/cli"
	"github.com/hyperjump/yobidashi/internal/search"
)

type queryOptions struct {
	limit  int
	output string
	stats  bool
	wait   bool
}

func (o *queryOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 10, "maximum number of results (0 = all)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "text", "output format: text, compact, or json")
	cmd.Flags().BoolVar(&o.stats, "stats", false, "print per-handler timings")
	cmd.Flags().BoolVar(&o.wait, "wait", true, "wait for indexing to finish before querying")
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <term...>",
		Short: "Run one query and print the ranked results",
		Example: `  yobidashi query fire
  yobidashi query web brow --output json
  yobidashi query gg golang generics`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), root.configPath, root.debug)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.start(cmd.Context(), opts.wait); err != nil {
				return err
			}
			s, elapsed, err := a.runQuery(cmd.Context(), joinArgs(args))
			if err != nil {
				return err
			}
			report := cli.NewReport(s, elapsed, opts.limit, a.weight)
			return cli.WriteResults(cmd.OutOrStdout(), report, format, opts.stats)
		},
	}
	opts.bind(cmd)
	return cmd
}

// runQuery runs term to completion.
func (a *app) runQuery(ctx context.Context, term string) (*search.Session, time.Duration, error) {
	start := time.Now()
	s := a.coordinator.Query(ctx, term, nil)
	if err := s.Wait(ctx); err != nil {
		return nil, 0, err
	}
	return s, time.Since(start), nil
}

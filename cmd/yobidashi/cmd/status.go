package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/cli"
	"github.com/hyperjump/yobidashi/internal/extension/applications"
	"github.com/hyperjump/yobidashi/internal/extension/bookmarks"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var output string
	var withMetrics bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Index providers and show item counts, paths and usage storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), root.configPath, root.debug)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.start(cmd.Context(), true); err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), a.collectStatus(cmd.Context(), withMetrics), format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "include collected metrics")
	return cmd
}

func (a *app) collectStatus(ctx context.Context, withMetrics bool) *cli.Status {
	st := &cli.Status{
		ConfigPath:   a.cfgPath,
		DatabasePath: a.store.Path(),
	}
	if n, err := a.store.CountUsages(ctx); err == nil {
		st.Usages = n
	} else {
		a.logger.Warn("count usages", zap.Error(err))
	}
	if size, err := a.store.DiskUsage(); err == nil {
		st.DiskUsageBytes = size
	}
	for _, p := range a.providers {
		last := p.Manager().LastStats()
		ps := cli.ProviderStatus{
			Name:     p.Name(),
			Items:    p.Index().Size(),
			Fuzzy:    p.Fuzzy(),
			Running:  p.Manager().Running(),
			Skipped:  last.Skipped,
			Status:   a.statusText(p.Name()),
			LastRun:  last.RunID,
			Duration: last.Duration.Milliseconds(),
		}
		if last.Err != nil {
			ps.LastErr = last.Err.Error()
		}
		switch prov := p.(type) {
		case *applications.Provider:
			ps.Paths = prov.Paths()
		case *bookmarks.Provider:
			if path := prov.Path(); path != "" {
				ps.Paths = []string{path}
			}
		}
		st.Providers = append(st.Providers, ps)
	}
	if withMetrics {
		var b strings.Builder
		if err := a.metrics.WriteSummary(&b); err == nil {
			st.Metrics = b.String()
		}
	}
	return st
}

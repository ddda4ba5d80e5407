// Package cmd provides the CLI commands for yobidashi.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperjump/yobidashi/internal/config"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "yobidashi",
		Short: "Quick launcher for applications, bookmarks and web searches",
		Long: `yobidashi indexes desktop applications and browser bookmarks and answers
search-as-you-type queries over them, ranked by match quality and usage.`,
		Version:       Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("yobidashi version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file path")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newShellCmd(opts))
	cmd.AddCommand(newActivateCmd(opts))
	cmd.AddCommand(newPathsCmd(opts))
	cmd.AddCommand(newFuzzyCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command. Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// joinArgs joins positional args so multi-word queries work with or without quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newActivateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <rank> <term...>",
		Short: "Run a query and activate the result at the given rank",
		Long: `Run a query and activate the result at the given 1-based rank. The activation is
recorded so the item ranks higher for future queries.`,
		Example: "  yobidashi activate 1 firefox",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := strconv.Atoi(args[0])
			if err != nil || rank < 1 {
				return fmt.Errorf("invalid rank %q", args[0])
			}
			a, err := newApp(cmd.Context(), root.configPath, root.debug)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.start(cmd.Context(), true); err != nil {
				return err
			}
			s, _, err := a.runQuery(cmd.Context(), joinArgs(args[1:]))
			if err != nil {
				return err
			}
			if err := s.Activate(cmd.Context(), rank-1); err != nil {
				return err
			}
			item := s.Results()[rank-1].Item
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Activated %s\n", item.Text)
			return err
		},
	}
}

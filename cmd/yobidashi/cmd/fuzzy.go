package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/yobidashi/internal/config"
	"github.com/hyperjump/yobidashi/internal/extract"
)

func newFuzzyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fuzzy [<provider> on|off]",
		Short: "Show or set typo-tolerant matching per provider",
		Example: `  yobidashi fuzzy
  yobidashi fuzzy applications on`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or <provider> on|off")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(root.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "%s: %s\n", extract.ProviderApplications, onOff(cfg.Applications.Fuzzy))
				fmt.Fprintf(out, "%s: %s\n", extract.ProviderBookmarks, onOff(cfg.Bookmarks.Fuzzy))
				return nil
			}
			enabled, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			if err := setFuzzyConfig(cfg, args[0], enabled); err != nil {
				return err
			}
			if err := config.Save(root.configPath, cfg); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s: %s\n", args[0], onOff(enabled))
			return err
		},
	}
}

// setFuzzy applies the flag to a running provider and persists it.
func (a *app) setFuzzy(provider string, enabled bool) error {
	p, err := a.provider(provider)
	if err != nil {
		return err
	}
	if err := setFuzzyConfig(a.cfg, provider, enabled); err != nil {
		return err
	}
	p.Index().SetFuzzy(enabled)
	return config.Save(a.cfgPath, a.cfg)
}

func setFuzzyConfig(cfg *config.Config, provider string, enabled bool) error {
	switch provider {
	case extract.ProviderApplications:
		cfg.Applications.Fuzzy = enabled
	case extract.ProviderBookmarks:
		cfg.Bookmarks.Fuzzy = enabled
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

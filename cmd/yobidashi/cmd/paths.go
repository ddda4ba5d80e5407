package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/yobidashi/internal/config"
	"github.com/hyperjump/yobidashi/internal/extension/applications"
	"github.com/hyperjump/yobidashi/internal/pathset"
)

func newPathsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Manage the directories scanned for applications",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List scanned directories",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, set, err := loadPaths(root.configPath)
				if err != nil {
					return err
				}
				for _, p := range set.List() {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <dir>",
			Short: "Add a directory; directories below it are replaced by it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, set, err := loadPaths(root.configPath)
				if err != nil {
					return err
				}
				removed, err := set.Add(args[0])
				if err != nil {
					return describePathError(err)
				}
				for _, r := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s (now covered)\n", r)
				}
				return savePaths(cmd, root.configPath, cfg, set)
			},
		},
		&cobra.Command{
			Use:   "remove <dir>",
			Short: "Stop scanning a directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, set, err := loadPaths(root.configPath)
				if err != nil {
					return err
				}
				if err := set.Remove(args[0]); err != nil {
					return describePathError(err)
				}
				return savePaths(cmd, root.configPath, cfg, set)
			},
		},
		&cobra.Command{
			Use:   "restore",
			Short: "Reset to the XDG application directories",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, set, err := loadPaths(root.configPath)
				if err != nil {
					return err
				}
				set.Restore(applications.DefaultRoots())
				return savePaths(cmd, root.configPath, cfg, set)
			},
		},
	)
	return cmd
}

func loadPaths(path string) (*config.Config, *pathset.Set, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, err
	}
	roots := cfg.Applications.Paths
	if roots == nil {
		roots = applications.DefaultRoots()
	}
	return cfg, pathset.New(roots...), nil
}

func savePaths(cmd *cobra.Command, path string, cfg *config.Config, set *pathset.Set) error {
	cfg.Applications.Paths = set.List()
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	for _, p := range cfg.Applications.Paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// applicationPaths returns the roots of the running applications provider.
func (a *app) applicationPaths() ([]string, error) {
	if a.apps == nil {
		return nil, errors.New("applications provider is disabled")
	}
	return a.apps.Paths(), nil
}

// editPaths applies op to the running applications provider, waits for the rebuild it
// triggers and persists the new roots.
func (a *app) editPaths(ctx context.Context, op, path string) ([]string, error) {
	if a.apps == nil {
		return nil, errors.New("applications provider is disabled")
	}
	var (
		removed []string
		err     error
	)
	switch op {
	case "add":
		removed, err = a.apps.AddPath(path)
	case "remove":
		err = a.apps.RemovePath(path)
	case "restore":
		err = a.apps.RestorePaths()
	default:
		return nil, fmt.Errorf("unknown paths operation %q", op)
	}
	if err != nil {
		return nil, describePathError(err)
	}
	if err := a.apps.Manager().Wait(ctx); err != nil {
		return nil, err
	}
	a.cfg.Applications.Paths = a.apps.Paths()
	return removed, config.Save(a.cfgPath, a.cfg)
}

func (a *app) bookmarksPath() (string, error) {
	if a.bookmarks == nil {
		return "", errors.New("bookmarks provider is disabled")
	}
	return a.bookmarks.Path(), nil
}

// setBookmarksPath points the running bookmarks provider at path and persists it.
func (a *app) setBookmarksPath(ctx context.Context, path string) error {
	if a.bookmarks == nil {
		return errors.New("bookmarks provider is disabled")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := a.bookmarks.SetPath(abs); err != nil {
		return err
	}
	if err := a.bookmarks.Manager().Wait(ctx); err != nil {
		return err
	}
	a.cfg.Bookmarks.Path = abs
	return config.Save(a.cfgPath, a.cfg)
}

// describePathError maps path edit failures to messages suitable for the terminal.
func describePathError(err error) error {
	var pe *pathset.PathError
	if !errors.As(err, &pe) {
		return err
	}
	switch {
	case errors.Is(err, pathset.ErrAlreadyIndexed):
		return fmt.Errorf("%s is already scanned", pe.Path)
	case errors.Is(err, pathset.ErrSubdirectoryOfExisting):
		return fmt.Errorf("%s is inside %s, which is already scanned", pe.Path, pe.Root)
	case errors.Is(err, pathset.ErrNotFound):
		return fmt.Errorf("%s does not exist", pe.Path)
	case errors.Is(err, pathset.ErrNotADirectory):
		return fmt.Errorf("%s is not a directory", pe.Path)
	case errors.Is(err, pathset.ErrNotIndexed):
		return fmt.Errorf("%s is not scanned", pe.Path)
	default:
		return err
	}
}

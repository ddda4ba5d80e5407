package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/readline"
	"github.com/spf13/cobra"

	"github.com/hyperjump/yobidashi/internal/cli"
	"github.com/hyperjump/yobidashi/internal/extract"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/search"
)

const shellHelp = `Type a query and press enter. Commands:
  :open <rank>              activate a result of the last query
  :fuzzy <provider> on|off  toggle fuzzy matching
  :paths [add|remove <dir>|restore]
                            show or edit the scanned application directories
  :bookmarks [<file>]       show or switch the bookmarks file
  :status                   show provider status
  :quit                     exit
`

func newShellCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive query loop; each line replaces the previous query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			out := &syncWriter{w: cmd.OutOrStdout()}
			sh := &shell{app: a, out: out, format: format, limit: opts.limit, stats: opts.stats}
			return sh.run(cmd.Context(), cmd.InOrStdin(), isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()))
		},
	}
	opts.bind(cmd)
	return cmd
}

func onOffItems() []*readline.PrefixCompleter {
	return []*readline.PrefixCompleter{readline.PcItem("on"), readline.PcItem("off")}
}

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem(":open"),
	readline.PcItem(":fuzzy",
		readline.PcItem(extract.ProviderApplications, onOffItems()...),
		readline.PcItem(extract.ProviderBookmarks, onOffItems()...),
	),
	readline.PcItem(":paths",
		readline.PcItem("add"),
		readline.PcItem("remove"),
		readline.PcItem("restore"),
	),
	readline.PcItem(":bookmarks"),
	readline.PcItem(":status"),
	readline.PcItem(":quit"),
)

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// shell reads one query per line. A new line invalidates the session of the previous one,
// so late results of an abandoned query are never printed.
type shell struct {
	app    *app
	out    io.Writer
	format cli.OutputFormat
	limit  int
	stats  bool

	mu      sync.Mutex
	current *search.Session
}

// syncWriter serializes writes from the session timer and the read loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

func (sh *shell) run(ctx context.Context, in io.Reader, interactive bool) error {
	fmt.Fprint(sh.out, shellHelp)
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    shellCompleter,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdin:           io.NopCloser(in),
		Stdout:          sh.out,
		Stderr:          sh.out,
		FuncIsTerminal:  func() bool { return interactive },
	})
	if err != nil {
		return fmt.Errorf("open line editor: %w", err)
	}
	defer rl.Close()

	for {
		raw, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if raw == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, ":") {
			quit, err := sh.command(ctx, line)
			if err != nil {
				fmt.Fprintf(sh.out, "error: %v\n", err)
			}
			if quit {
				break
			}
			continue
		}
		sh.query(ctx, line)
	}
	sh.mu.Lock()
	if sh.current != nil {
		sh.current.Invalidate()
	}
	sh.mu.Unlock()
	return nil
}

// query starts line as a new session and prints its results once it has finished. The
// session is waited on before the next line is read.
func (sh *shell) query(ctx context.Context, line string) {
	sh.mu.Lock()
	if sh.current != nil {
		sh.current.Invalidate()
	}
	start := time.Now()
	s := sh.app.coordinator.Query(ctx, line, search.ObserverFuncs{
		OnResultsReady: func(s *search.Session, list []models.Candidate) {
			if s.IsRunning() {
				fmt.Fprintf(sh.out, "… %d results so far\n", len(list))
			}
		},
	})
	sh.current = s
	sh.mu.Unlock()

	if err := s.Wait(ctx); err != nil {
		return
	}
	if !s.IsValid() {
		return
	}
	report := cli.NewReport(s, time.Since(start), sh.limit, sh.app.weight)
	if err := cli.WriteResults(sh.out, report, sh.format, sh.stats); err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
}

func (sh *shell) command(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		fmt.Fprint(sh.out, shellHelp)
		return false, nil
	}
	switch fields[0] {
	case "quit", "q", "exit":
		return true, nil
	case "open":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: :open <rank>")
		}
		rank, err := strconv.Atoi(fields[1])
		if err != nil || rank < 1 {
			return false, fmt.Errorf("invalid rank %q", fields[1])
		}
		sh.mu.Lock()
		s := sh.current
		sh.mu.Unlock()
		if s == nil {
			return false, fmt.Errorf("no query yet")
		}
		if err := s.Activate(ctx, rank-1); err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "Activated %s\n", s.Results()[rank-1].Item.Text)
	case "fuzzy":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: :fuzzy <provider> on|off")
		}
		enabled, err := parseOnOff(fields[2])
		if err != nil {
			return false, err
		}
		if err := sh.app.setFuzzy(fields[1], enabled); err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "fuzzy %s for %s\n", fields[2], fields[1])
	case "paths":
		return false, sh.paths(ctx, fields[1:])
	case "bookmarks":
		return false, sh.bookmarksFile(ctx, fields[1:])
	case "status":
		return false, cli.WriteStatus(sh.out, sh.app.collectStatus(ctx, false), cli.OutputText)
	default:
		fmt.Fprint(sh.out, shellHelp)
	}
	return false, nil
}

// paths edits the roots of the running applications provider. The next query sees the
// rebuilt index.
func (sh *shell) paths(ctx context.Context, args []string) error {
	if len(args) == 0 {
		list, err := sh.app.applicationPaths()
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Fprintln(sh.out, p)
		}
		return nil
	}
	var path string
	switch args[0] {
	case "add", "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: :paths %s <dir>", args[0])
		}
		path = args[1]
	case "restore":
		if len(args) != 1 {
			return fmt.Errorf("usage: :paths restore")
		}
	default:
		return fmt.Errorf("usage: :paths [add|remove <dir>|restore]")
	}
	removed, err := sh.app.editPaths(ctx, args[0], path)
	if err != nil {
		return err
	}
	for _, r := range removed {
		fmt.Fprintf(sh.out, "removed %s (now covered)\n", r)
	}
	fmt.Fprintln(sh.out, sh.app.statusText(extract.ProviderApplications))
	return nil
}

func (sh *shell) bookmarksFile(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		path, err := sh.app.bookmarksPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, path)
		return nil
	case 1:
		if err := sh.app.setBookmarksPath(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, sh.app.statusText(extract.ProviderBookmarks))
		return nil
	default:
		return fmt.Errorf("usage: :bookmarks [<file>]")
	}
}

// Package cli renders query results and provider status for the yobidashi command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/search"
	"github.com/hyperjump/yobidashi/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// Result is one ranked row.
type Result struct {
	Rank     int     `json:"rank"`
	Score    int16   `json:"score"`
	Weight   float64 `json:"weight,omitempty"`
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Subtext  string  `json:"subtext,omitempty"`
	Provider string  `json:"provider"`
	Action   string  `json:"action,omitempty"`
}

// Runtime is the outcome of one handler.
type Runtime struct {
	Handler    string `json:"handler"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Report is the outcome of one query.
type Report struct {
	Query     string    `json:"query"`
	QueryTime int64     `json:"query_time_ms"`
	Total     int       `json:"total"`
	Fallback  bool      `json:"fallback,omitempty"`
	Results   []Result  `json:"results"`
	Runtimes  []Runtime `json:"runtimes,omitempty"`
}

// NewReport builds a report from a finished session. limit <= 0 keeps every result;
// weight may be nil.
func NewReport(s *search.Session, elapsed time.Duration, limit int, weight func(id string) float64) *Report {
	list := s.Results()
	r := &Report{
		Query:     s.Term().Raw(),
		QueryTime: elapsed.Milliseconds(),
		Total:     len(list),
		Fallback:  s.FallbacksPromoted(),
		Results:   []Result{},
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	for i, c := range list {
		r.Results = append(r.Results, newResult(i+1, c, weight))
	}
	for _, rt := range s.Runtimes() {
		row := Runtime{Handler: rt.Handler, DurationMS: rt.Duration.Milliseconds()}
		if rt.Err != nil {
			row.Error = rt.Err.Error()
		}
		r.Runtimes = append(r.Runtimes, row)
	}
	return r
}

func newResult(rank int, c models.Candidate, weight func(id string) float64) Result {
	res := Result{
		Rank:     rank,
		Score:    c.Score,
		ID:       c.Item.ID,
		Text:     c.Item.Text,
		Subtext:  c.Item.Subtext,
		Provider: c.Item.Provider,
	}
	if weight != nil {
		res.Weight = weight(c.Item.ID)
	}
	if c.Item.Action != nil {
		res.Action = c.Item.Action.Name()
	}
	return res
}

// WriteResults writes report to w in the given format. Unknown formats are written as text.
func WriteResults(w io.Writer, report *Report, format OutputFormat, withStats bool) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case OutputCompact:
		for _, r := range report.Results {
			if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Rank, r.Provider, r.Text, r.Subtext); err != nil {
				return err
			}
		}
		return nil
	default:
		writeResultsText(w, report, withStats)
		return nil
	}
}

func writeResultsText(w io.Writer, report *Report, withStats bool) {
	switch {
	case report.Total == 0:
		fmt.Fprintf(w, "\nNo results for %q (%dms)\n", report.Query, report.QueryTime)
	case report.Fallback:
		fmt.Fprintf(w, "\nNo matches for %q; %d fallbacks (%dms)\n\n", report.Query, report.Total, report.QueryTime)
	default:
		fmt.Fprintf(w, "\nFound %d results in %dms\n\n", report.Total, report.QueryTime)
	}
	for _, r := range report.Results {
		fmt.Fprintf(w, "%3d. %s", r.Rank, r.Text)
		if r.Subtext != "" {
			fmt.Fprintf(w, "  (%s)", utils.Truncate(r.Subtext, 60))
		}
		fmt.Fprintf(w, "\n     [%s] Score: %d", r.Provider, r.Score)
		if r.Weight > 0 {
			fmt.Fprintf(w, " | Usage: %.3f", r.Weight)
		}
		if r.Action != "" {
			fmt.Fprintf(w, " | %s", r.Action)
		}
		fmt.Fprintln(w)
	}
	if withStats && len(report.Runtimes) > 0 {
		fmt.Fprintln(w, "\n--- Handlers ---")
		for _, rt := range report.Runtimes {
			fmt.Fprintf(w, "%-14s %5dms", rt.Handler, rt.DurationMS)
			if rt.Error != "" {
				fmt.Fprintf(w, "  error: %s", rt.Error)
			}
			fmt.Fprintln(w)
		}
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

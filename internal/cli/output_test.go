package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/ranking"
	"github.com/hyperjump/yobidashi/internal/search"
)

type handler struct {
	name string
	fn   func(q extension.Query) error
}

func (h handler) Name() string { return h.name }
func (h handler) HandleQuery(_ context.Context, q extension.Query) error { return h.fn(q) }

func finishedSession(t *testing.T, raw string, handlers ...extension.Handler) *search.Session {
	t.Helper()
	c, err := search.NewCoordinator(handlers, ranking.NewMatchOrder(nil), search.WithUXTimeout(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	s := c.Query(context.Background(), raw, nil)
	if err := s.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleReport(t *testing.T) *Report {
	t.Helper()
	apps := handler{name: "applications", fn: func(q extension.Query) error {
		q.AddMatch(&models.Item{ID: "apps:calc", Text: "Calculator", Subtext: "Do math", Provider: "applications",
			Action: &models.CommandAction{Argv: []string{"calc"}}}, 80)
		q.AddMatch(&models.Item{ID: "apps:cal", Text: "Calendar", Provider: "applications"}, 60)
		return nil
	}}
	broken := handler{name: "broken", fn: func(extension.Query) error { return errors.New("boom") }}
	s := finishedSession(t, "ca", apps, broken)
	return NewReport(s, 12*time.Millisecond, 0, func(id string) float64 {
		if id == "apps:calc" {
			return 0.5
		}
		return 0
	})
}

func TestNewReport(t *testing.T) {
	r := sampleReport(t)
	if r.Query != "ca" || r.Total != 2 || r.QueryTime != 12 || r.Fallback {
		t.Fatalf("unexpected report header: %+v", r)
	}
	if r.Results[0].Text != "Calculator" || r.Results[0].Rank != 1 || r.Results[0].Action != "Run" || r.Results[0].Weight != 0.5 {
		t.Errorf("unexpected first result: %+v", r.Results[0])
	}
	if len(r.Runtimes) != 2 {
		t.Fatalf("runtimes: got %d", len(r.Runtimes))
	}
	var failed int
	for _, rt := range r.Runtimes {
		if rt.Error != "" {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected one failed handler, got %+v", r.Runtimes)
	}
}

func TestNewReport_limit(t *testing.T) {
	limited := NewReport(finishedSession(t, "ca", handler{name: "h", fn: func(q extension.Query) error {
		for _, text := range []string{"a", "b", "c"} {
			q.AddMatch(&models.Item{ID: text, Text: text}, 1)
		}
		return nil
	}}), 0, 2, nil)
	if limited.Total != 3 || len(limited.Results) != 2 {
		t.Errorf("limit: total=%d results=%d", limited.Total, len(limited.Results))
	}
	empty := NewReport(finishedSession(t, "x"), 0, 0, nil)
	if empty.Results == nil {
		t.Error("results should never be nil")
	}
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleReport(t), OutputJSON, false); err != nil {
		t.Fatalf("WriteResults(json): %v", err)
	}
	var decoded Report
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Total != 2 || len(decoded.Results) != 2 || decoded.Results[0].ID != "apps:calc" {
		t.Errorf("decoded results: got %+v", decoded)
	}
}

func TestWriteResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleReport(t), OutputText, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 results", "12ms", "1. Calculator", "(Do math)", "[applications] Score: 80", "Usage: 0.500", "Handlers", "error: boom"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteResults_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleReport(t), OutputCompact, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "1\tapplications\tCalculator\tDo math" {
		t.Errorf("compact output: %q", lines)
	}
}

func TestWriteResults_empty(t *testing.T) {
	var buf bytes.Buffer
	r := NewReport(finishedSession(t, "zzz"), 0, 0, nil)
	if err := WriteResults(&buf, r, OutputFormat("unknown"), false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `No results for "zzz"`) {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "compact": OutputCompact, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		s        string
		maxWords int
		want     string
	}{
		{"", 3, ""},
		{"one two", 3, "one two"},
		{"one two three four", 3, "one two three..."},
	}
	for _, tt := range tests {
		if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
			t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
		}
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// ProviderStatus describes one provider.
type ProviderStatus struct {
	Name     string   `json:"name"`
	Items    int      `json:"items"`
	Fuzzy    bool     `json:"fuzzy"`
	Running  bool     `json:"running"`
	Skipped  int      `json:"skipped"`
	Status   string   `json:"status,omitempty"`
	Paths    []string `json:"paths,omitempty"`
	LastRun  string   `json:"last_run,omitempty"`
	LastErr  string   `json:"last_error,omitempty"`
	Duration int64    `json:"last_run_ms"`
}

// Status is the state of every provider plus usage storage.
type Status struct {
	ConfigPath     string           `json:"config_path"`
	DatabasePath   string           `json:"database_path"`
	Usages         int64            `json:"usages"`
	DiskUsageBytes int64            `json:"disk_usage_bytes"`
	Providers      []ProviderStatus `json:"providers"`
	Metrics        string           `json:"-"`
}

// WriteStatus writes status in the given format. Compact is treated as text.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "Config:   %s\n", status.ConfigPath)
	fmt.Fprintf(w, "Database: %s (%s, %d activations)\n", status.DatabasePath, FormatBytes(status.DiskUsageBytes), status.Usages)
	for _, p := range status.Providers {
		fmt.Fprintf(w, "\n[%s]\n", p.Name)
		fmt.Fprintf(w, "  items: %d  skipped: %d  fuzzy: %v  running: %v\n", p.Items, p.Skipped, p.Fuzzy, p.Running)
		for _, path := range p.Paths {
			fmt.Fprintf(w, "  path: %s\n", path)
		}
		if p.Status != "" {
			fmt.Fprintf(w, "  status: %s\n", p.Status)
		}
		if p.LastErr != "" {
			fmt.Fprintf(w, "  error: %s\n", p.LastErr)
		}
	}
	if status.Metrics != "" {
		fmt.Fprintf(w, "\n--- Metrics ---\n%s", status.Metrics)
	}
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

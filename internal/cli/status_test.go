package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteStatus(t *testing.T) {
	status := &Status{
		ConfigPath:     "/home/u/.config/yobidashi/config.yaml",
		DatabasePath:   "/home/u/.local/share/yobidashi/usage.db",
		Usages:         3,
		DiskUsageBytes: 2048,
		Providers: []ProviderStatus{
			{Name: "applications", Items: 42, Fuzzy: true, Paths: []string{"/usr/share/applications"}, Status: "42 items indexed."},
		},
	}

	var text bytes.Buffer
	if err := WriteStatus(&text, status, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"2.0 KiB", "3 activations", "[applications]", "items: 42", "fuzzy: true", "path: /usr/share/applications", "42 items indexed."} {
		if !strings.Contains(text.String(), sub) {
			t.Errorf("status text missing %q:\n%s", sub, text.String())
		}
	}

	var js bytes.Buffer
	if err := WriteStatus(&js, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded Status
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Providers) != 1 || decoded.Providers[0].Items != 42 {
		t.Errorf("decoded status: %+v", decoded)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

package extract

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDesktopGroup is returned when a file has no [Desktop Entry] group.
	ErrNoDesktopGroup = errors.New("missing [Desktop Entry] group")
	// ErrNotApplication is returned for entries whose Type is not Application.
	ErrNotApplication = errors.New("not an application entry")
	// ErrHidden is returned for entries marked NoDisplay or Hidden.
	ErrHidden = errors.New("entry is hidden")
	// ErrNoExec is returned for application entries without an Exec key.
	ErrNoExec = errors.New("missing Exec key")
)

const desktopGroup = "[Desktop Entry]"

// DesktopEntry holds the keys of a freedesktop.org desktop entry used by the launcher.
// Localized keys (Name[de]) are ignored.
type DesktopEntry struct {
	Type        string
	Name        string
	GenericName string
	Comment     string
	Keywords    []string
	Categories  []string
	Exec        string
	Icon        string
	Terminal    bool
	NoDisplay   bool
	Hidden      bool
}

// ParseDesktopEntry parses the [Desktop Entry] group of content.
func ParseDesktopEntry(content []byte) (*DesktopEntry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	entry := &DesktopEntry{}
	inGroup, seenGroup := false, false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inGroup = line == desktopGroup
			seenGroup = seenGroup || inGroup
			continue
		}
		if !inGroup {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unescapeValue(strings.TrimSpace(value))
		switch key {
		case "Type":
			entry.Type = value
		case "Name":
			entry.Name = value
		case "GenericName":
			entry.GenericName = value
		case "Comment":
			entry.Comment = value
		case "Keywords":
			entry.Keywords = splitList(value)
		case "Categories":
			entry.Categories = splitList(value)
		case "Exec":
			entry.Exec = value
		case "Icon":
			entry.Icon = value
		case "Terminal":
			entry.Terminal = value == "true"
		case "NoDisplay":
			entry.NoDisplay = value == "true"
		case "Hidden":
			entry.Hidden = value == "true"
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read desktop entry: %w", err)
	}
	if !seenGroup {
		return nil, ErrNoDesktopGroup
	}
	return entry, nil
}

// Validate reports why the entry should not be offered as a launchable application.
func (e *DesktopEntry) Validate() error {
	if e.Type != "" && e.Type != "Application" {
		return fmt.Errorf("%w: type %q", ErrNotApplication, e.Type)
	}
	if e.NoDisplay || e.Hidden {
		return ErrHidden
	}
	if strings.TrimSpace(e.Exec) == "" {
		return ErrNoExec
	}
	if e.Name == "" {
		return errors.New("missing Name key")
	}
	return nil
}

// Argv splits Exec into arguments, dropping field codes such as %f and %U.
func (e *DesktopEntry) Argv() []string {
	var out []string
	for _, arg := range splitExec(e.Exec) {
		if len(arg) == 2 && arg[0] == '%' && arg[1] != '%' {
			continue
		}
		out = append(out, strings.ReplaceAll(arg, "%%", "%"))
	}
	return out
}

// splitExec tokenizes an Exec value, honoring double quotes and backslash escapes
// inside them.
func splitExec(s string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		escaped bool
		hasArg  bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			hasArg = true
		case !quoted && (r == ' ' || r == '\t'):
			if hasArg || cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
				hasArg = false
			}
		default:
			cur.WriteRune(r)
		}
	}
	if hasArg || cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

// splitList splits a semicolon-separated list, dropping empty elements.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var valueEscapes = strings.NewReplacer(`\s`, " ", `\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, `\`)

func unescapeValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return valueEscapes.Replace(s)
}

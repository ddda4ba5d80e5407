// Package extract turns launcher item sources (desktop entries, browser bookmarks) into
// indexable items.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/yobidashi/internal/itemid"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/pkg/utils"
)

// Provider names stamped on extracted items.
const (
	ProviderApplications = "applications"
	ProviderBookmarks    = "bookmarks"
)

// Source kinds recognized by ExtractBytes.
const (
	KindDesktop   = ".desktop"
	KindBookmarks = "bookmarks"
)

// Extractor converts source files to items.
type Extractor struct {
	terminal []string
	opener   string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTerminal sets the command prefix for desktop entries with Terminal=true.
func WithTerminal(argv ...string) Option {
	return func(e *Extractor) {
		if len(argv) > 0 {
			e.terminal = argv
		}
	}
}

// WithOpener sets the URL opener for bookmarks.
func WithOpener(opener string) Option {
	return func(e *Extractor) { e.opener = opener }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{terminal: []string{"x-terminal-emulator", "-e"}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Kind returns the source kind of path, or "" when unsupported.
func Kind(path string) string {
	switch {
	case strings.EqualFold(filepath.Ext(path), KindDesktop):
		return KindDesktop
	case filepath.Base(path) == "Bookmarks" || strings.EqualFold(filepath.Ext(path), ".json"):
		return KindBookmarks
	default:
		return ""
	}
}

// Extract reads the file at path and returns its items.
func (e *Extractor) Extract(path string) ([]models.Item, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(absPath, content, Kind(absPath))
}

// ExtractBytes converts content of the given kind. path identifies the source for IDs.
func (e *Extractor) ExtractBytes(path string, content []byte, kind string) ([]models.Item, error) {
	switch kind {
	case KindDesktop:
		item, err := e.desktopItem(path, content)
		if err != nil {
			return nil, err
		}
		return []models.Item{item}, nil
	case KindBookmarks:
		return e.bookmarkItems(content)
	default:
		return nil, fmt.Errorf("unsupported source %q", filepath.Base(path))
	}
}

func (e *Extractor) desktopItem(path string, content []byte) (models.Item, error) {
	entry, err := ParseDesktopEntry([]byte(validUTF8(content)))
	if err != nil {
		return models.Item{}, err
	}
	if err := entry.Validate(); err != nil {
		return models.Item{}, err
	}
	argv := entry.Argv()
	if entry.Terminal {
		argv = append(append([]string(nil), e.terminal...), argv...)
	}
	var keywords []string
	if entry.GenericName != "" {
		keywords = append(keywords, entry.GenericName)
	}
	keywords = append(keywords, entry.Keywords...)
	if base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)); base != "" {
		keywords = append(keywords, base)
	}
	subtext := entry.Comment
	if subtext == "" {
		subtext = entry.GenericName
	}
	return models.Item{
		ID:       itemid.ForPath(ProviderApplications, path),
		Text:     utils.CollapseSpace(entry.Name),
		Subtext:  utils.CollapseSpace(subtext),
		Keywords: keywords,
		Provider: ProviderApplications,
		Action:   &models.CommandAction{Label: "Run", Argv: argv},
	}, nil
}

func (e *Extractor) bookmarkItems(content []byte) ([]models.Item, error) {
	bookmarks, err := ParseBookmarks(content)
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(bookmarks))
	for _, b := range bookmarks {
		items = append(items, models.Item{
			ID:       itemid.ForKey(ProviderBookmarks, b.ID),
			Text:     utils.CollapseSpace(b.Name),
			Subtext:  b.URL,
			Keywords: b.Folders,
			Provider: ProviderBookmarks,
			Action:   &models.URLAction{URL: b.URL, Opener: e.opener},
		})
	}
	return items, nil
}

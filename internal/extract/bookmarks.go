package extract

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Bookmark is one URL entry of a Chromium bookmarks file.
type Bookmark struct {
	ID      string
	Name    string
	URL     string
	Folders []string
}

type bookmarkNode struct {
	ID       string         `json:"id"`
	GUID     string         `json:"guid"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	URL      string         `json:"url"`
	Children []bookmarkNode `json:"children"`
}

type bookmarkFile struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

// ParseBookmarks returns every URL bookmark in a Chromium/Chrome "Bookmarks" JSON file,
// walking the roots in name order. Names of the folders below each root are recorded on
// each entry.
func ParseBookmarks(content []byte) ([]Bookmark, error) {
	var file bookmarkFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	if file.Roots == nil {
		return nil, fmt.Errorf("decode bookmarks: missing roots")
	}
	names := make([]string, 0, len(file.Roots))
	for name := range file.Roots {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Bookmark
	for _, name := range names {
		var root bookmarkNode
		// Non-folder roots (e.g. sync_transaction_version) are skipped.
		if err := json.Unmarshal(file.Roots[name], &root); err != nil {
			continue
		}
		// Root folder names ("Bookmarks bar") are not useful search terms.
		for _, child := range root.Children {
			walkBookmarks(child, nil, &out)
		}
	}
	return out, nil
}

func walkBookmarks(node bookmarkNode, folders []string, out *[]Bookmark) {
	switch node.Type {
	case "url":
		if node.URL == "" {
			return
		}
		id := node.GUID
		if id == "" {
			id = node.URL
		}
		name := node.Name
		if name == "" {
			name = node.URL
		}
		*out = append(*out, Bookmark{
			ID:      id,
			Name:    name,
			URL:     node.URL,
			Folders: append([]string(nil), folders...),
		})
	case "folder":
		if node.Name != "" {
			folders = append(folders[:len(folders):len(folders)], node.Name)
		}
		for _, child := range node.Children {
			walkBookmarks(child, folders, out)
		}
	}
}

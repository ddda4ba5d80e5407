package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".local/share/yobidashi/usage.db"
	}
	if cfg.Query.UXTimeout == 0 {
		cfg.Query.UXTimeout = Duration(50 * time.Millisecond)
	}
	if cfg.Query.NotifyInterval == 0 {
		cfg.Query.NotifyInterval = Duration(100 * time.Millisecond)
	}
	if cfg.Query.PoolSize == 0 {
		cfg.Query.PoolSize = 16
	}
	if cfg.Query.Dedup == "" {
		cfg.Query.Dedup = "none"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "token"
	}
	if cfg.Index.MaxDistance == 0 {
		cfg.Index.MaxDistance = 2
	}
	if cfg.Index.CacheSize == 0 {
		cfg.Index.CacheSize = 256
	}
	if cfg.Applications.UpdateDelay == 0 {
		cfg.Applications.UpdateDelay = Duration(time.Second)
	}
	if len(cfg.Applications.Extensions) == 0 {
		cfg.Applications.Extensions = []string{".desktop"}
	}
	if cfg.Bookmarks.UpdateDelay == 0 {
		cfg.Bookmarks.UpdateDelay = Duration(time.Second)
	}
	if len(cfg.WebSearch.Engines) == 0 {
		cfg.WebSearch.Engines = []Engine{
			{Name: "Google", URL: "https://www.google.com/search?q=%s", Trigger: "gg"},
			{Name: "DuckDuckGo", URL: "https://duckduckgo.com/?q=%s", Trigger: "ddg"},
			{Name: "Wikipedia", URL: "https://en.wikipedia.org/wiki/Special:Search?search=%s", Trigger: "wp"},
		}
	}
}

// Package index provides the in-memory offline index each provider searches during a query.
package index

import (
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/models"
)

// Backend selects the structure used for fuzzy matching.
type Backend string

const (
	// BackendToken scans the term dictionary with a bounded Levenshtein distance.
	BackendToken Backend = "token"
	// BackendBleve builds a memory-only bleve index per snapshot and runs fuzzy queries on it.
	BackendBleve Backend = "bleve"
)

const (
	defaultMaxDistance = 2
	defaultCacheSize   = 256
)

// OfflineIndex serves searches from the currently installed snapshot. Searches hold the
// read lock for the whole lookup so they always see one consistent snapshot and fuzzy flag.
type OfflineIndex struct {
	mu          sync.RWMutex
	snap        *Snapshot
	fuzzy       bool
	maxDistance int
	backend     Backend
	generation  uint64
	cache       *lru.Cache[string, []*models.Item]
	logger      *zap.Logger
}

// Option configures an OfflineIndex.
type Option func(*OfflineIndex)

// WithFuzzy sets the initial fuzzy flag.
func WithFuzzy(enabled bool) Option {
	return func(x *OfflineIndex) { x.fuzzy = enabled }
}

// WithMaxDistance caps the edit distance tolerated by fuzzy matching.
func WithMaxDistance(d int) Option {
	return func(x *OfflineIndex) {
		if d > 0 {
			x.maxDistance = d
		}
	}
}

// WithCacheSize sets the number of cached search results. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(x *OfflineIndex) {
		if n <= 0 {
			x.cache = nil
			return
		}
		c, err := lru.New[string, []*models.Item](n)
		if err == nil {
			x.cache = c
		}
	}
}

// WithBackend selects the fuzzy backend used by builders from this index.
func WithBackend(b Backend) Option {
	return func(x *OfflineIndex) {
		if b == BackendToken || b == BackendBleve {
			x.backend = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(x *OfflineIndex) {
		if l != nil {
			x.logger = l
		}
	}
}

// New returns an empty index.
func New(opts ...Option) *OfflineIndex {
	cache, _ := lru.New[string, []*models.Item](defaultCacheSize)
	x := &OfflineIndex{
		maxDistance: defaultMaxDistance,
		backend:     BackendToken,
		cache:       cache,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// NewBuilder returns a builder matching this index's backend.
func (x *OfflineIndex) NewBuilder() *Builder {
	return NewBuilder(x.backend)
}

// Install swaps in snap and releases the previous snapshot. Candidates still pointing into
// the old arena remain valid.
func (x *OfflineIndex) Install(snap *Snapshot) {
	x.mu.Lock()
	old := x.snap
	x.generation++
	snap.generation = x.generation
	x.snap = snap
	if x.cache != nil {
		x.cache.Purge()
	}
	x.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			x.logger.Warn("close previous snapshot", zap.Error(err))
		}
	}
	x.logger.Debug("snapshot installed",
		zap.Uint64("generation", snap.generation),
		zap.Int("items", snap.Len()))
}

// SetFuzzy toggles fuzzy matching. Searches already in flight finish with the old mode.
func (x *OfflineIndex) SetFuzzy(enabled bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.fuzzy == enabled {
		return
	}
	x.fuzzy = enabled
	if x.cache != nil {
		x.cache.Purge()
	}
}

// Fuzzy reports whether fuzzy matching is enabled.
func (x *OfflineIndex) Fuzzy() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.fuzzy
}

// Size returns the number of items in the installed snapshot.
func (x *OfflineIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.snap.Len()
}

// Generation returns how many snapshots have been installed.
func (x *OfflineIndex) Generation() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.generation
}

// Close releases the installed snapshot.
func (x *OfflineIndex) Close() error {
	x.mu.Lock()
	snap := x.snap
	x.snap = nil
	x.mu.Unlock()
	return snap.Close()
}

// Search returns every item matching term, case-insensitively, in arena order. An empty or
// whitespace-only term matches nothing.
func (x *OfflineIndex) Search(term string) []*models.Item {
	return x.SearchTerm(models.NewTerm(term))
}

// SearchTerm is Search for an already normalized term.
func (x *OfflineIndex) SearchTerm(term models.Term) []*models.Item {
	if term.IsEmpty() {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.snap == nil || x.snap.Len() == 0 {
		return nil
	}
	if x.cache != nil {
		if hit, ok := x.cache.Get(term.String()); ok {
			return hit
		}
	}

	handles := x.matchExact(x.snap, term)
	if x.fuzzy {
		handles = union(handles, x.matchFuzzy(x.snap, term))
	}
	out := make([]*models.Item, len(handles))
	for i, h := range handles {
		out[i] = x.snap.Item(h)
	}
	if x.cache != nil {
		x.cache.Add(term.String(), out)
	}
	return out
}

// matchExact returns items where every word prefixes some token, or where the whole term
// is a substring of the searchable text.
func (x *OfflineIndex) matchExact(snap *Snapshot, term models.Term) []Handle {
	var result []Handle
	for i, w := range term.Words() {
		lo, hi := snap.prefixRange(w)
		var hits []Handle
		for t := lo; t < hi; t++ {
			hits = union(hits, snap.postings[t])
		}
		if i == 0 {
			result = hits
		} else {
			result = intersect(result, hits)
		}
		if len(result) == 0 {
			break
		}
	}

	q := term.String()
	var substr []Handle
	for i, text := range snap.texts {
		if strings.Contains(text, q) {
			substr = append(substr, Handle(i))
		}
	}
	return union(result, substr)
}

// matchFuzzy returns items where every word is within the fuzzy bound of a token or of the
// token's same-length prefix.
func (x *OfflineIndex) matchFuzzy(snap *Snapshot, term models.Term) []Handle {
	words := make([][]rune, len(term.Words()))
	for i, w := range term.Words() {
		words[i] = []rune(w)
	}
	if snap.fuzzy != nil {
		handles, err := snap.fuzzy.search(words, x.maxDistance)
		if err == nil {
			slices.Sort(handles)
			return handles
		}
		x.logger.Warn("bleve fuzzy search failed, falling back to token scan", zap.Error(err))
	}

	var result []Handle
	for i, w := range words {
		bound := fuzzyBound(w, x.maxDistance)
		var hits []Handle
		for t, tok := range snap.tokens {
			if withinDistance(w, tok, bound) ||
				(len(tok) > len(w) && withinDistance(w, tok[:len(w)], bound)) {
				hits = union(hits, snap.postings[t])
			}
		}
		if i == 0 {
			result = hits
		} else {
			result = intersect(result, hits)
		}
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

// union merges two ascending handle lists.
func union(a, b []Handle) []Handle {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]Handle, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// intersect returns the handles present in both ascending lists.
func intersect(a, b []Handle) []Handle {
	var out []Handle
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

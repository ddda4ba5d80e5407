package index

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hyperjump/yobidashi/internal/models"
)

// Handle addresses an item inside a snapshot's arena.
type Handle int32

// Snapshot is an immutable, fully built index. It is replaced as a whole by
// OfflineIndex.Install and never mutated afterwards.
type Snapshot struct {
	items      []models.Item
	texts      []string // lower-cased searchable text per handle
	tokens     [][]rune // token runes, parallel to terms
	terms      []string // sorted term dictionary
	postings   [][]Handle
	fuzzy      *bleveIndex
	generation uint64
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Item returns the item at h. The pointer stays valid for as long as it is referenced.
func (s *Snapshot) Item(h Handle) *models.Item {
	return &s.items[h]
}

// Generation returns the install sequence number, 0 until installed.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Terms returns the sorted term dictionary. The slice must not be modified.
func (s *Snapshot) Terms() []string { return s.terms }

// Close releases the optional fuzzy structure.
func (s *Snapshot) Close() error {
	if s == nil || s.fuzzy == nil {
		return nil
	}
	return s.fuzzy.Close()
}

// prefixRange returns the dictionary range [lo, hi) of terms starting with word.
func (s *Snapshot) prefixRange(word string) (int, int) {
	lo := sort.SearchStrings(s.terms, word)
	hi := lo
	for hi < len(s.terms) && strings.HasPrefix(s.terms[hi], word) {
		hi++
	}
	return lo, hi
}

// Builder accumulates items off-lock and produces a Snapshot.
type Builder struct {
	backend Backend
	items   []models.Item
}

// NewBuilder returns an empty builder for the given fuzzy backend.
func NewBuilder(backend Backend) *Builder {
	return &Builder{backend: backend}
}

// Add appends a copy of item to the arena and returns its handle.
func (b *Builder) Add(item models.Item) Handle {
	b.items = append(b.items, item)
	return Handle(len(b.items) - 1)
}

// Len returns the number of items added so far.
func (b *Builder) Len() int { return len(b.items) }

// Build produces the snapshot. The builder must not be reused afterwards.
func (b *Builder) Build() (*Snapshot, error) {
	snap := &Snapshot{
		items: b.items,
		texts: make([]string, len(b.items)),
	}
	byTerm := make(map[string][]Handle)
	for i := range snap.items {
		h := Handle(i)
		text := snap.items[i].SearchableText()
		snap.texts[i] = strings.ToLower(text)
		for _, tok := range models.Tokenize(text) {
			posting := byTerm[tok]
			if n := len(posting); n > 0 && posting[n-1] == h {
				continue
			}
			byTerm[tok] = append(posting, h)
		}
	}

	snap.terms = make([]string, 0, len(byTerm))
	for term := range byTerm {
		snap.terms = append(snap.terms, term)
	}
	slices.Sort(snap.terms)
	snap.tokens = make([][]rune, len(snap.terms))
	snap.postings = make([][]Handle, len(snap.terms))
	for i, term := range snap.terms {
		snap.tokens[i] = []rune(term)
		snap.postings[i] = byTerm[term]
	}

	if b.backend == BackendBleve {
		fi, err := buildBleveIndex(snap)
		if err != nil {
			return nil, fmt.Errorf("build fuzzy index: %w", err)
		}
		snap.fuzzy = fi
	}
	b.items = nil
	return snap, nil
}

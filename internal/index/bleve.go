package index

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// bleveIndex is a memory-only bleve index over a snapshot's searchable text, used as the
// fuzzy structure when BackendBleve is selected. Document IDs are decimal handles.
type bleveIndex struct {
	index bleve.Index
	size  int
}

type bleveDoc struct {
	Text string `json:"text"`
}

func buildBleveIndex(snap *Snapshot) (*bleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Simple analyzer (letters + lowercase) so no stop words vanish from short item names.
	textFieldMapping.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := idx.NewBatch()
	for i, text := range snap.texts {
		if err := batch.Index(strconv.Itoa(i), bleveDoc{Text: text}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index item %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to apply Bleve batch: %w", err)
	}
	return &bleveIndex{index: idx, size: len(snap.texts)}, nil
}

// search returns the handles whose text matches every word either by prefix or within
// the per-word fuzzy bound.
func (b *bleveIndex) search(words [][]rune, maxDistance int) ([]Handle, error) {
	if len(words) == 0 || b.size == 0 {
		return nil, nil
	}
	conjuncts := make([]blevequery.Query, 0, len(words))
	for _, w := range words {
		word := string(w)
		fq := bleve.NewFuzzyQuery(word)
		fq.SetField("text")
		// bleve caps fuzziness at 2.
		fq.SetFuzziness(min(fuzzyBound(w, maxDistance), 2))
		pq := bleve.NewPrefixQuery(word)
		pq.SetField("text")
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(fq, pq))
	}
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(conjuncts...))
	req.Size = b.size
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Handle, 0, len(res.Hits))
	for _, hit := range res.Hits {
		n, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, Handle(n))
	}
	return out, nil
}

// Close closes the Bleve index.
func (b *bleveIndex) Close() error {
	return b.index.Close()
}

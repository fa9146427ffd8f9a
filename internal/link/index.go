// Package link cross-references enriched documents through the
// entities they share.
//
// The entity index is an inverted mapping from normalized entity value
// to the set of documents mentioning it. It is a scratch structure:
// rebuilt from the document snapshot on every linking run, never
// persisted. Linking itself is a pure function over the snapshot —
// persistence is the caller's concern.
package link

import (
	"sort"
	"strings"

	"github.com/tesseralab/tessera/internal/document"
)

// NormalizeEntity is the index key transform: trim, lower-case.
// "Giuseppe Rava" and "  giuseppe rava " collapse to the same key.
func NormalizeEntity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Index is the result of scanning a document collection.
type Index struct {
	// Docs maps document id to the document itself. Every scanned
	// document appears here, entities or not.
	Docs map[string]*document.Document

	// Entities maps each normalized entity value to the set of ids of
	// documents that mention it, in any category. A document counts
	// once per distinct value regardless of category or repetition.
	Entities map[string]map[string]bool
}

// BuildIndex scans docs and produces the id mapping plus the inverted
// entity index. Later documents win id collisions.
func BuildIndex(docs []*document.Document) *Index {
	idx := &Index{
		Docs:     make(map[string]*document.Document, len(docs)),
		Entities: map[string]map[string]bool{},
	}
	for _, doc := range docs {
		idx.Docs[doc.DocumentID] = doc
		for _, category := range [][]string{
			doc.Entities.Persons,
			doc.Entities.Organizations,
			doc.Entities.Locations,
			doc.Entities.Dates,
		} {
			for _, v := range category {
				norm := NormalizeEntity(v)
				if norm == "" {
					continue
				}
				if idx.Entities[norm] == nil {
					idx.Entities[norm] = map[string]bool{}
				}
				idx.Entities[norm][doc.DocumentID] = true
			}
		}
	}
	return idx
}

// EntityValues returns the distinct normalized entity values in sorted
// order — the input to consolidation.
func (idx *Index) EntityValues() []string {
	values := make([]string, 0, len(idx.Entities))
	for v := range idx.Entities {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

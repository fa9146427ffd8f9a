package link

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tesseralab/tessera/internal/document"
)

// RelationStrongLink marks links asserted on shared date, person, or
// organization entities.
const RelationStrongLink = "strong_link"

// Link evaluates every ordered pair of distinct documents and returns
// the link records each document should carry. Both directions of a
// pair are evaluated, so a shared entity links A→B and B→A.
//
// Shared dates, persons, and organizations (in that order) each
// contribute a reason; shared locations deliberately do not — too many
// unrelated documents mention the same city for a place to be a strong
// signal. Every id in docs gets an entry, possibly empty: after a
// linking run, "no links" is an explicit finding.
//
// aliases maps normalized variant spellings to their canonical form
// (from consolidation); nil links on raw normalized values. Documents
// and shared values are visited in sorted order so output is stable
// across runs.
func Link(docs map[string]*document.Document, aliases map[string]string) map[string][]document.LinkRecord {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string][]document.LinkRecord, len(ids))
	for _, id := range ids {
		doc := docs[id]
		records := []document.LinkRecord{}

		for _, otherID := range ids {
			if otherID == id {
				continue
			}
			other := docs[otherID]

			var reasons document.Reasons
			if shared := sharedValues(doc.Entities.Dates, other.Entities.Dates, aliases); len(shared) > 0 {
				reasons = append(reasons, fmt.Sprintf("Both documents mention the exact date(s): %s", strings.Join(shared, ", ")))
			}
			if shared := sharedValues(doc.Entities.Persons, other.Entities.Persons, aliases); len(shared) > 0 {
				reasons = append(reasons, fmt.Sprintf("Both documents mention the same person(s): %s", strings.Join(shared, ", ")))
			}
			if shared := sharedValues(doc.Entities.Organizations, other.Entities.Organizations, aliases); len(shared) > 0 {
				reasons = append(reasons, fmt.Sprintf("Both documents mention the same organization(s): %s", strings.Join(shared, ", ")))
			}

			if len(reasons) > 0 {
				records = append(records, document.LinkRecord{
					RelatedDocumentID: otherID,
					Relation:          RelationStrongLink,
					Reason:            reasons,
				})
			}
		}
		out[id] = records
	}
	return out
}

// Apply writes the computed link records onto the documents. Separate
// from Link so the pairwise comparison stays a pure function.
func Apply(docs map[string]*document.Document, links map[string][]document.LinkRecord) {
	for id, doc := range docs {
		records, ok := links[id]
		if !ok {
			records = []document.LinkRecord{}
		}
		doc.Links = records
	}
}

// canonical resolves a raw entity value through normalization and the
// alias map.
func canonical(v string, aliases map[string]string) string {
	norm := NormalizeEntity(v)
	if canon, ok := aliases[norm]; ok {
		return canon
	}
	return norm
}

// sharedValues intersects two entity lists under canonicalization and
// returns the shared canonical values, sorted.
func sharedValues(a, b []string, aliases map[string]string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		if c := canonical(v, aliases); c != "" {
			inA[c] = true
		}
	}
	var shared []string
	seen := map[string]bool{}
	for _, v := range b {
		c := canonical(v, aliases)
		if c != "" && inA[c] && !seen[c] {
			seen[c] = true
			shared = append(shared, c)
		}
	}
	sort.Strings(shared)
	return shared
}

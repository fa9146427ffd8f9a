// Package enrich derives structured metadata from free text.
//
// The primary path asks a generative-language service to extract
// entities, tags, timeline events, and geolocations as strict JSON.
// Any failure — service unavailable, breaker open, malformed response —
// drops to a local rule-based fallback, so enrichment itself never
// fails: every document with text produces a record.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tesseralab/tessera/internal/document"
	"github.com/tesseralab/tessera/internal/llm"
)

const extractionSystemPrompt = `You extract structured metadata from historical document text. Respond with strict JSON only, matching the requested schema exactly. Do not invent entities that are not in the text.`

const extractionSchema = `{
  "entities": {
    "persons": ["string"],
    "organizations": ["string"],
    "locations": ["string"],
    "dates": ["string"]
  },
  "tags": ["string"],
  "timeline": [{"event": "string", "date": "string"}],
  "geolocations": [{"place": "string", "coordinates": {"lat": 0.0, "lon": 0.0}}],
  "links": [{"related_document_id": "string", "relation": "string"}]
}`

// fallbackEventLabel is the placeholder event name for dates found by
// the local extractor, which knows when something happened but not what.
const fallbackEventLabel = "Event mentioned in text"

// PlaceResolver turns a place name into a geolocation, or nil when the
// lookup fails. Failures are swallowed at this boundary.
type PlaceResolver interface {
	Lookup(ctx context.Context, place string) *document.Geolocation
}

// Enricher produces enriched documents from normalized text.
type Enricher struct {
	// Provider is the extraction service. Nil disables the primary
	// path entirely: every document takes the local fallback. This is
	// the single credential policy — a missing API key is a feature
	// flag, never a fatal error.
	Provider llm.Provider

	// Places optionally backfills coordinates for fallback-path
	// locations. Nil leaves fallback geolocations empty.
	Places PlaceResolver

	// Warnf receives fallback activations and other non-fatal
	// diagnostics. Nil logs to stderr.
	Warnf func(format string, args ...any)
}

// Enrich builds the enriched record for one document. It never fails:
// the primary path's error is reported through Warnf and the local
// fallback supplies the result.
func (e *Enricher) Enrich(ctx context.Context, text, docID string) *document.Document {
	if e.Provider != nil {
		doc, err := e.enrichRemote(ctx, text, docID)
		if err == nil {
			return doc
		}
		e.warnf("enrichment failed for %s: %v (using local fallback)", docID, err)
	}
	return e.enrichLocal(ctx, text, docID)
}

func (e *Enricher) enrichRemote(ctx context.Context, text, docID string) (*document.Document, error) {
	prompt := fmt.Sprintf("Extract structured metadata in strict JSON format from the following text.\nSchema:\n%s\n\nText:\n%s", extractionSchema, text)

	response, err := e.Provider.Complete(ctx, prompt, llm.CompletionOpts{
		Temperature: 0.1,
		Format:      "json",
		System:      extractionSystemPrompt,
	})
	if err != nil {
		return nil, err
	}

	cleaned, err := CleanModelJSON(response)
	if err != nil {
		return nil, fmt.Errorf("%w (raw: %s)", err, truncateForError(response, 300))
	}

	var doc document.Document
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON from model: %w (raw: %s)", err, truncateForError(response, 300))
	}

	doc.DocumentID = docID
	doc.EnsureShape()
	return &doc, nil
}

func (e *Enricher) enrichLocal(ctx context.Context, text, docID string) *document.Document {
	dates := ExtractDates(text)
	timeline := make([]document.TimelineEvent, 0, len(dates))
	for _, d := range dates {
		timeline = append(timeline, document.TimelineEvent{Event: fallbackEventLabel, Date: d})
	}

	doc := &document.Document{
		DocumentID:   docID,
		Entities:     ExtractEntities(text),
		Tags:         ClassifyTags(text),
		Timeline:     timeline,
		Geolocations: []document.Geolocation{},
		Links:        []document.LinkRecord{},
	}

	if e.Places != nil {
		for _, place := range doc.Entities.Locations {
			if g := e.Places.Lookup(ctx, place); g != nil {
				doc.Geolocations = append(doc.Geolocations, *g)
			}
		}
	}
	return doc
}

func (e *Enricher) warnf(format string, args ...any) {
	if e.Warnf != nil {
		e.Warnf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

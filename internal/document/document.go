// Package document defines the enriched-document schema shared by every
// pipeline stage, plus JSON file persistence for input and output
// collections.
//
// A document starts life as an arbitrary JSON object produced upstream.
// After enrichment it has a fixed shape: entities grouped into four
// categories, category tags, a timeline, geolocations, and (after the
// linking stage) cross-document links.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entities groups named entities by category. A category may be absent
// or empty; order within a category is preserved as extracted.
type Entities struct {
	Persons       []string `json:"persons,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	Dates         []string `json:"dates,omitempty"`
}

// TimelineEvent is a dated event mentioned in the text.
type TimelineEvent struct {
	Event string `json:"event"`
	Date  string `json:"date"`
}

// Coordinates is a WGS84 lat/lon pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geolocation resolves a place mention to coordinates.
type Geolocation struct {
	Place       string      `json:"place"`
	Coordinates Coordinates `json:"coordinates"`
}

// Reasons is a list of human-readable link justifications. Upstream
// producers (the model, older outputs) sometimes emit a bare string
// instead of a list, so unmarshaling accepts both.
type Reasons []string

func (r *Reasons) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*r = Reasons{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*r = Reasons(many)
	return nil
}

// LinkRecord asserts a relationship to another document in the same
// collection. Links are stored on the originating document only; the
// linker evaluates both directions of every pair, so the output as a
// whole is a complete directed representation of an undirected relation.
type LinkRecord struct {
	RelatedDocumentID string  `json:"related_document_id"`
	Relation          string  `json:"relation"`
	Reason            Reasons `json:"reason"`
}

// Document is the enriched-document record.
//
// Links uses omitzero rather than omitempty: a nil slice means the
// linking stage has not run and the field is omitted, while an empty
// non-nil slice means "linked, found nothing" and serializes as [].
type Document struct {
	DocumentID   string          `json:"document_id"`
	Entities     Entities        `json:"entities"`
	Tags         []string        `json:"tags"`
	Timeline     []TimelineEvent `json:"timeline"`
	Geolocations []Geolocation   `json:"geolocations"`
	Links        []LinkRecord    `json:"links,omitzero"`
}

// EnsureShape replaces nil collection fields (except Links) with empty
// ones so the persisted schema always carries tags, timeline, and
// geolocations even when the extractor returned nothing.
func (d *Document) EnsureShape() {
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Timeline == nil {
		d.Timeline = []TimelineEvent{}
	}
	if d.Geolocations == nil {
		d.Geolocations = []Geolocation{}
	}
}

// PathFor returns the output path for a document id inside dir, with a
// .json suffix enforced if the id does not already carry one.
func PathFor(dir, id string) string {
	name := filepath.Base(id)
	if !strings.HasSuffix(strings.ToLower(name), ".json") {
		name += ".json"
	}
	return filepath.Join(dir, name)
}

// Write persists a document to path, pretty-printed with HTML escaping
// disabled so non-ASCII characters survive literally.
func Write(path string, doc *Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding %s: %w", doc.DocumentID, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Read loads a single enriched document from path.
func Read(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.DocumentID == "" {
		doc.DocumentID = filepath.Base(path)
	}
	return &doc, nil
}

// ReadDir loads every .json document in dir. Files that fail to parse
// are skipped and reported through warn (nil = silent): one bad file
// must not abort a linking run.
func ReadDir(dir string, warn func(path string, err error)) ([]*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var docs []*Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		doc, err := Read(path)
		if err != nil {
			if warn != nil {
				warn(path, err)
			}
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

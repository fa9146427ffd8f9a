// Package pipeline drives the end-to-end enrichment run: scan the input
// directory, enrich each document, persist the results, then build
// cross-document links over everything in the output directory.
//
// One bad document never aborts a batch. Per-document failures are
// recorded and the run keeps going.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/tesseralab/tessera/internal/document"
	"github.com/tesseralab/tessera/internal/enrich"
	"github.com/tesseralab/tessera/internal/ingest"
	"github.com/tesseralab/tessera/internal/link"
	"github.com/tesseralab/tessera/internal/llm"
)

// Pipeline holds the wiring for a run. Enricher is required; Provider
// is optional and only used for entity consolidation before linking.
type Pipeline struct {
	InputDir  string
	OutputDir string
	Enricher  *enrich.Enricher
	Provider  llm.Provider

	// Logf receives operator progress lines. Defaults to stdout.
	Logf func(format string, args ...any)
}

// Stats summarizes a run.
type Stats struct {
	Scanned    int
	Enriched   int
	Skipped    int
	Linked     int
	LinkedDocs int
	Errors     []ingest.ScanError
}

// Run enriches every input document and then links the output set.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	stats, err := p.EnrichAll(ctx)
	if err != nil {
		return stats, err
	}
	linkStats, err := p.LinkAll(ctx)
	if err != nil {
		return stats, err
	}
	stats.Linked = linkStats.Linked
	stats.LinkedDocs = linkStats.LinkedDocs
	stats.Errors = append(stats.Errors, linkStats.Errors...)
	return stats, nil
}

// EnrichAll scans the input directory and writes one enriched document
// per input file into the output directory.
func (p *Pipeline) EnrichAll(ctx context.Context) (*Stats, error) {
	raws, scan, err := ingest.ScanDir(p.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", p.InputDir, err)
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", p.OutputDir, err)
	}

	stats := &Stats{Scanned: scan.FilesScanned, Errors: scan.Errors}
	for _, se := range scan.Errors {
		p.logf("  skipping %s: %s", se.File, se.Message)
	}

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		id := raw.ID()
		text := ingest.Normalize(ingest.ExtractText(raw.Fields))
		if text == "" {
			stats.Skipped++
			p.logf("  %s: no usable text, skipped", id)
			continue
		}

		doc := p.Enricher.Enrich(ctx, text, id)
		path := document.PathFor(p.OutputDir, id)
		if err := document.Write(path, doc); err != nil {
			stats.Errors = append(stats.Errors, ingest.ScanError{File: path, Message: err.Error()})
			p.logf("  %s: write failed: %v", id, err)
			continue
		}
		stats.Enriched++
		p.logf("  %s: enriched (%d entities, %d tags)", id, entityCount(doc), len(doc.Tags))
	}
	return stats, nil
}

// LinkAll reads every document in the output directory, consolidates
// entity variants when a provider is available, computes strong links,
// and rewrites the documents with their links populated.
func (p *Pipeline) LinkAll(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	docs, err := document.ReadDir(p.OutputDir, func(path string, err error) {
		stats.Errors = append(stats.Errors, ingest.ScanError{File: path, Message: err.Error()})
		p.logf("  skipping %s: %v", path, err)
	})
	if err != nil {
		return stats, fmt.Errorf("reading %s: %w", p.OutputDir, err)
	}
	if len(docs) == 0 {
		p.logf("  nothing to link in %s", p.OutputDir)
		return stats, nil
	}

	idx := link.BuildIndex(docs)

	var aliases map[string]string
	if p.Provider != nil {
		groups, err := enrich.Consolidate(ctx, p.Provider, idx.EntityValues())
		if err != nil {
			p.logf("  entity consolidation unavailable: %v", err)
		} else {
			aliases = enrich.AliasMap(groups)
			if len(aliases) > 0 {
				p.logf("  consolidated %d entity variants", len(aliases))
			}
		}
	}

	links := link.Link(idx.Docs, aliases)
	link.Apply(idx.Docs, links)

	ids := make([]string, 0, len(idx.Docs))
	for id := range idx.Docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		doc := idx.Docs[id]
		path := document.PathFor(p.OutputDir, id)
		if err := document.Write(path, doc); err != nil {
			stats.Errors = append(stats.Errors, ingest.ScanError{File: path, Message: err.Error()})
			p.logf("  %s: write failed: %v", id, err)
			continue
		}
		if n := len(doc.Links); n > 0 {
			stats.Linked += n
			stats.LinkedDocs++
		}
	}
	p.logf("  linked %d document(s), %d link(s) total", stats.LinkedDocs, stats.Linked)
	return stats, nil
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
		return
	}
	fmt.Printf(format+"\n", args...)
}

func entityCount(doc *document.Document) int {
	return len(doc.Entities.Persons) + len(doc.Entities.Organizations) +
		len(doc.Entities.Locations) + len(doc.Entities.Dates)
}

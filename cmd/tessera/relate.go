package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tesseralab/tessera/internal/config"
	"github.com/tesseralab/tessera/internal/document"
	"github.com/tesseralab/tessera/internal/relate"
)

// runRelate scores pairwise document relatedness from embeddings of the
// enriched summaries. Advisory output only; it never touches links.
func runRelate(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(flags.opts)
	if err != nil {
		return err
	}
	if cfg.EmbedEndpoint.Value == "" || cfg.EmbedModel.Value == "" {
		return fmt.Errorf("relate requires an embeddings service: set embed.endpoint and embed.model in %s (or TESSERA_EMBED_ENDPOINT / TESSERA_EMBED_MODEL)", cfg.ConfigPath)
	}

	scorer, err := relate.New(relate.Config{
		Endpoint: cfg.EmbedEndpoint.Value,
		Model:    cfg.EmbedModel.Value,
		APIKey:   cfg.EmbedAPIKey.Value,
	})
	if err != nil {
		return err
	}

	docs, err := document.ReadDir(cfg.OutputDir.Value, func(path string, err error) {
		fmt.Printf("  skipping %s: %v\n", path, err)
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.OutputDir.Value, err)
	}

	var ids, texts []string
	for _, d := range docs {
		text := relatableText(d)
		if text == "" {
			continue
		}
		ids = append(ids, d.DocumentID)
		texts = append(texts, text)
	}
	if len(ids) < 2 {
		fmt.Println("Need at least two documents with text to compare.")
		return nil
	}

	fmt.Printf("Embedding %d document(s) via %s\n", len(ids), cfg.EmbedModel.Value)
	scores, err := scorer.Scores(context.Background(), texts)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	type pair struct {
		a, b  string
		score float64
	}
	var pairs []pair
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, pair{ids[i], ids[j], scores[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	fmt.Println()
	for _, p := range pairs {
		fmt.Printf("  %.4f  %s <-> %s\n", p.score, p.a, p.b)
	}
	return nil
}

// relatableText builds a text stand-in for a document from its entity
// mentions and tags. Raw input text is not persisted, so the enriched
// metadata is what there is to embed.
func relatableText(d *document.Document) string {
	var parts []string
	parts = append(parts, d.Entities.Persons...)
	parts = append(parts, d.Entities.Organizations...)
	parts = append(parts, d.Entities.Locations...)
	parts = append(parts, d.Tags...)
	for _, ev := range d.Timeline {
		parts = append(parts, ev.Event)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

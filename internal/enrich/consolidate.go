package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tesseralab/tessera/internal/llm"
)

// Group is one canonical entity with the variant spellings the service
// folded into it.
type Group struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants"`
}

const consolidateSystemPrompt = `You merge variant spellings of the same real-world entity from historical documents. "G. Rava" and "Giuseppe Rava" are the same person; an abbreviation and its expansion are the same organization. Never merge entities that are merely similar. Return ONLY a JSON array:
[{"canonical": "full preferred form", "variants": ["every input string you merged into it, including the canonical form itself"]}]
Entities that match nothing else become a group with a single variant.`

// Consolidate asks the service to merge near-duplicate entity strings
// into canonical groups. Best-effort: a nil provider yields (nil, nil),
// and the caller treats a nil result as the identity mapping —
// consolidation never blocks the pipeline.
func Consolidate(ctx context.Context, provider llm.Provider, entities []string) ([]Group, error) {
	if provider == nil || len(entities) == 0 {
		return nil, nil
	}

	sorted := append([]string(nil), entities...)
	sort.Strings(sorted)

	var sb strings.Builder
	sb.WriteString("Entities:\n")
	for _, e := range sorted {
		sb.WriteString("- ")
		sb.WriteString(e)
		sb.WriteString("\n")
	}

	response, err := provider.Complete(ctx, sb.String(), llm.CompletionOpts{
		Temperature: 0.1,
		Format:      "json",
		System:      consolidateSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("consolidation call failed: %w", err)
	}

	cleaned, err := CleanModelJSON(response)
	if err != nil {
		return nil, fmt.Errorf("consolidation response: %w (raw: %s)", err, truncateForError(response, 300))
	}

	var groups []Group
	if err := json.Unmarshal([]byte(cleaned), &groups); err != nil {
		return nil, fmt.Errorf("invalid consolidation JSON: %w (raw: %s)", err, truncateForError(response, 300))
	}
	return groups, nil
}

// AliasMap flattens groups into a normalized variant → canonical
// mapping for the linker. Variants equal to their canonical form are
// omitted. A nil or empty result means "link on raw values".
func AliasMap(groups []Group) map[string]string {
	if len(groups) == 0 {
		return nil
	}
	aliases := map[string]string{}
	for _, g := range groups {
		canonical := strings.ToLower(strings.TrimSpace(g.Canonical))
		if canonical == "" {
			continue
		}
		for _, v := range g.Variants {
			variant := strings.ToLower(strings.TrimSpace(v))
			if variant == "" || variant == canonical {
				continue
			}
			aliases[variant] = canonical
		}
	}
	if len(aliases) == 0 {
		return nil
	}
	return aliases
}

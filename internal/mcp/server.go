// Package mcp provides a Model Context Protocol server for Tessera.
//
// It exposes the enrichment pipeline as MCP tools (enrich, link, get,
// list) and document collection statistics as an MCP resource, served
// over stdio transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tesseralab/tessera/internal/document"
	"github.com/tesseralab/tessera/internal/enrich"
	"github.com/tesseralab/tessera/internal/ingest"
	"github.com/tesseralab/tessera/internal/llm"
	"github.com/tesseralab/tessera/internal/pipeline"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	OutputDir string
	Enricher  *enrich.Enricher
	Provider  llm.Provider // optional, for entity consolidation during linking
	Version   string
}

// docMu serializes all MCP tool calls that touch the output directory.
// The mcp-go library dispatches handlers concurrently via goroutines,
// and linking rewrites every document file. A global mutex ensures an
// enrich completes before a link pass reads its output.
var docMu sync.Mutex

// NewServer creates a configured MCP server with all Tessera tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Tessera",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerEnrichTool(s, cfg)
	registerLinkTool(s, cfg)
	registerGetTool(s, cfg)
	registerListTool(s, cfg)

	registerStatsResource(s, cfg)

	return s
}

// --- Tools ---

func registerEnrichTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("tessera_enrich",
		mcp.WithDescription("Enrich a piece of text into a structured document: entities (persons, organizations, locations, dates), tags, timeline, and geolocations. The document is written to the output directory and returned."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The raw text to enrich"),
		),
		mcp.WithString("document_id",
			mcp.Description("Document identifier. A UUID is generated when omitted."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docMu.Lock()
		defer docMu.Unlock()

		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcp.NewToolResultError("text is required"), nil
		}

		id := ""
		if v, err := req.RequireString("document_id"); err == nil && strings.TrimSpace(v) != "" {
			id = strings.TrimSpace(v)
		}
		if id == "" {
			id = uuid.NewString()
		}

		doc := cfg.Enricher.Enrich(ctx, ingest.Normalize(text), id)
		if err := document.Write(document.PathFor(cfg.OutputDir, id), doc); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("writing document: %v", err)), nil
		}

		data, _ := json.MarshalIndent(doc, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerLinkTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("tessera_link",
		mcp.WithDescription("Recompute cross-document links over every enriched document in the output directory. Documents sharing a person, organization, or exact date get symmetric strong_link records."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docMu.Lock()
		defer docMu.Unlock()

		p := &pipeline.Pipeline{
			OutputDir: cfg.OutputDir,
			Enricher:  cfg.Enricher,
			Provider:  cfg.Provider,
			Logf:      func(string, ...any) {},
		}
		stats, err := p.LinkAll(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("link error: %v", err)), nil
		}

		payload := map[string]any{
			"linked_documents": stats.LinkedDocs,
			"total_links":      stats.Linked,
		}
		if len(stats.Errors) > 0 {
			payload["errors"] = stats.Errors
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerGetTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("tessera_get",
		mcp.WithDescription("Fetch one enriched document by id, including its links."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document identifier"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docMu.Lock()
		defer docMu.Unlock()

		id, err := req.RequireString("document_id")
		if err != nil || strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("document_id is required"), nil
		}

		doc, err := document.Read(document.PathFor(cfg.OutputDir, strings.TrimSpace(id)))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("document %q not found: %v", id, err)), nil
		}

		data, _ := json.MarshalIndent(doc, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerListTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("tessera_list",
		mcp.WithDescription("List every enriched document with its tags, entity counts, and link count."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docMu.Lock()
		defer docMu.Unlock()

		docs, err := document.ReadDir(cfg.OutputDir, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing documents: %v", err)), nil
		}

		type docSummary struct {
			DocumentID  string   `json:"document_id"`
			Tags        []string `json:"tags"`
			EntityCount int      `json:"entity_count"`
			LinkCount   int      `json:"link_count"`
		}

		items := make([]docSummary, 0, len(docs))
		for _, d := range docs {
			items = append(items, docSummary{
				DocumentID:  d.DocumentID,
				Tags:        d.Tags,
				EntityCount: len(d.Entities.Persons) + len(d.Entities.Organizations) + len(d.Entities.Locations) + len(d.Entities.Dates),
				LinkCount:   len(d.Links),
			})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].DocumentID < items[j].DocumentID })

		payload := map[string]any{
			"documents": items,
			"count":     len(items),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerStatsResource(s *server.MCPServer, cfg ServerConfig) {
	resource := mcp.NewResource(
		"tessera://documents/stats",
		"Document Collection Stats",
		mcp.WithResourceDescription("Counts of documents, entities, tags, and links across the enriched collection."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docMu.Lock()
		defer docMu.Unlock()

		docs, err := document.ReadDir(cfg.OutputDir, nil)
		if err != nil {
			return nil, fmt.Errorf("reading documents for stats: %w", err)
		}

		var persons, orgs, locations, dates, links, linked int
		tagCounts := map[string]int{}
		for _, d := range docs {
			persons += len(d.Entities.Persons)
			orgs += len(d.Entities.Organizations)
			locations += len(d.Entities.Locations)
			dates += len(d.Entities.Dates)
			links += len(d.Links)
			if len(d.Links) > 0 {
				linked++
			}
			for _, tag := range d.Tags {
				tagCounts[tag]++
			}
		}

		payload := map[string]any{
			"documents":        len(docs),
			"linked_documents": linked,
			"total_links":      links,
			"entities": map[string]int{
				"persons":       persons,
				"organizations": orgs,
				"locations":     locations,
				"dates":         dates,
			},
			"tags": tagCounts,
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

package mcp

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tesseralab/tessera/internal/document"
	"github.com/tesseralab/tessera/internal/enrich"
)

func setupServer(t *testing.T) (*server.MCPServer, string) {
	t.Helper()
	out := t.TempDir()
	srv := NewServer(ServerConfig{
		OutputDir: out,
		Enricher:  &enrich.Enricher{Warnf: t.Logf},
	})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	return srv, out
}

// callTool invokes an MCP tool through the JSON-RPC entry point.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}
	return callResult
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func TestEnrichTool(t *testing.T) {
	srv, out := setupServer(t)

	result := callTool(t, srv, "tessera_enrich", map[string]interface{}{
		"text":        "Giuseppe Rava signed the contract on 28 August 1929.",
		"document_id": "contract_001",
	})
	if result.IsError {
		t.Fatalf("tool error: %s", getTextContent(t, result))
	}

	var doc document.Document
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &doc); err != nil {
		t.Fatalf("parsing enriched document: %v", err)
	}
	if doc.DocumentID != "contract_001" {
		t.Errorf("document_id = %q", doc.DocumentID)
	}
	if len(doc.Entities.Persons) == 0 {
		t.Error("expected at least one person entity")
	}
	if len(doc.Entities.Dates) != 1 || doc.Entities.Dates[0] != "1929-08-28" {
		t.Errorf("dates = %v", doc.Entities.Dates)
	}
	if _, err := os.Stat(document.PathFor(out, "contract_001")); err != nil {
		t.Errorf("document not persisted: %v", err)
	}
}

func TestEnrichToolGeneratesID(t *testing.T) {
	srv, _ := setupServer(t)

	result := callTool(t, srv, "tessera_enrich", map[string]interface{}{
		"text": "A factory report.",
	})
	if result.IsError {
		t.Fatalf("tool error: %s", getTextContent(t, result))
	}

	var doc document.Document
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &doc); err != nil {
		t.Fatalf("parsing enriched document: %v", err)
	}
	if doc.DocumentID == "" {
		t.Error("expected a generated document_id")
	}
}

func TestEnrichToolRequiresText(t *testing.T) {
	srv, _ := setupServer(t)

	result := callTool(t, srv, "tessera_enrich", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected an error for missing text")
	}
}

func TestLinkAndGetTools(t *testing.T) {
	srv, out := setupServer(t)

	for id, text := range map[string]string{
		"a": "Giuseppe Rava visited the factory.",
		"b": "A portrait of Giuseppe Rava.",
	} {
		result := callTool(t, srv, "tessera_enrich", map[string]interface{}{
			"text":        text,
			"document_id": id,
		})
		if result.IsError {
			t.Fatalf("enrich %s: %s", id, getTextContent(t, result))
		}
	}

	result := callTool(t, srv, "tessera_link", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("link error: %s", getTextContent(t, result))
	}
	var linkStats struct {
		LinkedDocuments int `json:"linked_documents"`
		TotalLinks      int `json:"total_links"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &linkStats); err != nil {
		t.Fatalf("parsing link stats: %v", err)
	}
	if linkStats.LinkedDocuments != 2 || linkStats.TotalLinks != 2 {
		t.Errorf("link stats = %+v, want 2 docs with 1 link each", linkStats)
	}

	result = callTool(t, srv, "tessera_get", map[string]interface{}{
		"document_id": "a",
	})
	if result.IsError {
		t.Fatalf("get error: %s", getTextContent(t, result))
	}
	var doc document.Document
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &doc); err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	if len(doc.Links) != 1 || doc.Links[0].RelatedDocumentID != "b" {
		t.Errorf("a.Links = %+v", doc.Links)
	}

	// sanity: files really are on disk where link left them
	if _, err := os.Stat(document.PathFor(out, "b")); err != nil {
		t.Errorf("b missing from output dir: %v", err)
	}
}

func TestGetToolMissingDocument(t *testing.T) {
	srv, _ := setupServer(t)

	result := callTool(t, srv, "tessera_get", map[string]interface{}{
		"document_id": "nope",
	})
	if !result.IsError {
		t.Fatal("expected an error for a missing document")
	}
}

func TestListTool(t *testing.T) {
	srv, _ := setupServer(t)

	callTool(t, srv, "tessera_enrich", map[string]interface{}{
		"text":        "A factory report.",
		"document_id": "r1",
	})

	result := callTool(t, srv, "tessera_list", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("list error: %s", getTextContent(t, result))
	}
	var payload struct {
		Count     int `json:"count"`
		Documents []struct {
			DocumentID string   `json:"document_id"`
			Tags       []string `json:"tags"`
		} `json:"documents"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &payload); err != nil {
		t.Fatalf("parsing list payload: %v", err)
	}
	if payload.Count != 1 || payload.Documents[0].DocumentID != "r1" {
		t.Errorf("list payload = %+v", payload)
	}
	if len(payload.Documents[0].Tags) == 0 {
		t.Error("expected the factory tag")
	}
}

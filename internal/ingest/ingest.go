// Package ingest reads raw JSON documents from an input directory and
// pulls a best-effort text string out of each one.
//
// Raw documents have no enforced schema: only a known, ordered set of
// text-bearing field names is recognized. A document yielding no text is
// skipped, not an error — the batch keeps going.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Raw is one input document: the parsed JSON object plus its source path.
type Raw struct {
	Fields map[string]any
	Path   string
}

// ID returns the document identifier: an explicit document_id field,
// else a filename field, else the source file's base name.
func (r *Raw) ID() string {
	for _, key := range []string{"document_id", "filename"} {
		if v, ok := r.Fields[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return filepath.Base(r.Path)
}

// Result summarizes a directory scan.
type Result struct {
	FilesScanned int
	FilesSkipped int
	Errors       []ScanError
}

// ScanError records a non-fatal per-file failure.
type ScanError struct {
	File    string
	Message string
}

// Load parses a single raw JSON document. The top-level value must be an
// object; anything else is rejected.
func Load(path string) (*Raw, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return &Raw{Fields: fields, Path: path}, nil
}

// ScanDir loads every .json file in dir, in sorted name order.
// Unparseable files are recorded in the result and skipped.
func ScanDir(dir string) ([]*Raw, *Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	res := &Result{}
	var raws []*Raw
	for _, name := range names {
		res.FilesScanned++
		raw, err := Load(filepath.Join(dir, name))
		if err != nil {
			res.FilesSkipped++
			res.Errors = append(res.Errors, ScanError{File: name, Message: err.Error()})
			continue
		}
		raws = append(raws, raw)
	}
	return raws, res, nil
}

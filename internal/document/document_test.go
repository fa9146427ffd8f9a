package document

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestPathFor(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"report-1929", filepath.Join("out", "report-1929.json")},
		{"report-1929.json", filepath.Join("out", "report-1929.json")},
		{"report-1929.JSON", filepath.Join("out", "report-1929.JSON")},
		{"nested/dir/report.json", filepath.Join("out", "report.json")},
	}
	for _, tt := range tests {
		if got := PathFor("out", tt.id); got != tt.want {
			t.Errorf("PathFor(out, %q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{
		DocumentID: "foto_042.json",
		Entities: Entities{
			Persons:       []string{"Giuseppe Rava"},
			Organizations: []string{"Società Anonima"},
			Locations:     []string{"Milano"},
			Dates:         []string{"1929-08-28"},
		},
		Tags:     []string{"factory"},
		Timeline: []TimelineEvent{{Event: "Factory inaugurated", Date: "1929-08-28"}},
		Geolocations: []Geolocation{
			{Place: "Milano", Coordinates: Coordinates{Lat: 45.4642, Lon: 9.19}},
		},
		Links: []LinkRecord{},
	}

	path := PathFor(dir, doc.DocumentID)
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, doc)
	}
}

func TestWritePreservesNonASCII(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{
		DocumentID: "it.json",
		Entities:   Entities{Persons: []string{"Società & Figli"}},
	}
	doc.EnsureShape()

	path := PathFor(dir, doc.DocumentID)
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if !strings.Contains(string(raw), "Società & Figli") {
		t.Errorf("non-ASCII or & was escaped in output:\n%s", raw)
	}
}

func TestLinksFieldPresence(t *testing.T) {
	// Nil links: not yet linked, field omitted.
	unlinked := &Document{DocumentID: "a"}
	b, err := json.Marshal(unlinked)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), `"links"`) {
		t.Errorf("nil links should be omitted, got %s", b)
	}

	// Empty non-nil links: linked, found nothing, serializes as [].
	linked := &Document{DocumentID: "a", Links: []LinkRecord{}}
	b, err = json.Marshal(linked)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"links":[]`) {
		t.Errorf("empty links should serialize as [], got %s", b)
	}
}

func TestReasonsAcceptsStringOrList(t *testing.T) {
	var rec LinkRecord
	if err := json.Unmarshal([]byte(`{"related_document_id":"b","relation":"strong_link","reason":"shared date"}`), &rec); err != nil {
		t.Fatalf("string reason: %v", err)
	}
	if len(rec.Reason) != 1 || rec.Reason[0] != "shared date" {
		t.Errorf("string reason = %v", rec.Reason)
	}

	if err := json.Unmarshal([]byte(`{"reason":["a","b"]}`), &rec); err != nil {
		t.Fatalf("list reason: %v", err)
	}
	if len(rec.Reason) != 2 {
		t.Errorf("list reason = %v", rec.Reason)
	}
}

func TestEnsureShape(t *testing.T) {
	doc := &Document{DocumentID: "a"}
	doc.EnsureShape()
	if doc.Tags == nil || doc.Timeline == nil || doc.Geolocations == nil {
		t.Error("EnsureShape left a nil collection")
	}
	if doc.Links != nil {
		t.Error("EnsureShape must not touch Links")
	}
}

func TestReadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := &Document{DocumentID: "good.json"}
	good.EnsureShape()
	if err := Write(PathFor(dir, "good"), good); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	var warned []string
	docs, err := ReadDir(dir, func(path string, err error) { warned = append(warned, path) })
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentID != "good.json" {
		t.Fatalf("expected the one good document, got %+v", docs)
	}
	if len(warned) != 1 {
		t.Errorf("expected 1 warning for bad.json, got %v", warned)
	}
}

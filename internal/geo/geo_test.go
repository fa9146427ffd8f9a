package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/time/rate"

	"github.com/tesseralab/tessera/internal/document"
)

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	var requests int
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.URL.Query().Get("q"); got != "Milano" {
			t.Errorf("q = %q", got)
		}
		w.Write([]byte(`[{"lat": "45.4642", "lon": "9.1900"}]`))
	})

	g := New(Config{Endpoint: srv.URL, RateLimit: rate.Inf})
	loc := g.Lookup(context.Background(), "Milano")
	if loc == nil {
		t.Fatal("Lookup returned nil")
	}
	if loc.Place != "Milano" || loc.Coordinates.Lat != 45.4642 || loc.Coordinates.Lon != 9.19 {
		t.Errorf("loc = %+v", loc)
	}

	// Second lookup hits the in-memory cache.
	if g.Lookup(context.Background(), "milano") == nil {
		t.Fatal("cached lookup returned nil")
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestLookup_FailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"empty result", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}},
		{"invalid payload", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not": "an array"}`))
		}},
		{"unparseable coordinates", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"lat": "north", "lon": "west"}]`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, tt.handler)
			g := New(Config{Endpoint: srv.URL, RateLimit: rate.Inf})
			if loc := g.Lookup(context.Background(), "Nowhere"); loc != nil {
				t.Errorf("expected nil, got %+v", loc)
			}
		})
	}
}

func TestLookup_NegativeResultIsCached(t *testing.T) {
	var requests int
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`[]`))
	})
	g := New(Config{Endpoint: srv.URL, RateLimit: rate.Inf})

	g.Lookup(context.Background(), "Atlantis")
	g.Lookup(context.Background(), "Atlantis")
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (negative result not cached)", requests)
	}
}

func TestLookup_EmptyPlace(t *testing.T) {
	g := New(Config{Endpoint: "http://invalid.test", RateLimit: rate.Inf})
	if loc := g.Lookup(context.Background(), "   "); loc != nil {
		t.Errorf("expected nil for blank place, got %+v", loc)
	}
}

func TestPersistentCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocache.db")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if _, ok := cache.Get(ctx, "milano"); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	want := document.Coordinates{Lat: 45.4642, Lon: 9.19}
	if err := cache.Put(ctx, "milano", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := cache.Get(ctx, "milano")
	if !ok || got != want {
		t.Errorf("Get = %v, %v", got, ok)
	}

	// Upsert overwrites.
	updated := document.Coordinates{Lat: 1, Lon: 2}
	if err := cache.Put(ctx, "milano", updated); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	if got, _ := cache.Get(ctx, "milano"); got != updated {
		t.Errorf("after update Get = %v", got)
	}
}

func TestGeocoderUsesPersistentCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocache.db")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Put(ctx, "milano", document.Coordinates{Lat: 45.4642, Lon: 9.19}); err != nil {
		t.Fatal(err)
	}

	// Endpoint that fails the test if reached: the cache must answer.
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("network request despite persistent cache hit")
	})
	g := New(Config{Endpoint: srv.URL, Cache: cache, RateLimit: rate.Inf})

	loc := g.Lookup(ctx, "Milano")
	if loc == nil || loc.Coordinates.Lat != 45.4642 {
		t.Errorf("loc = %+v", loc)
	}
}

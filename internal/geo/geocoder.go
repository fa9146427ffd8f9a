// Package geo resolves place names to coordinates through a
// Nominatim-compatible endpoint.
//
// The boundary contract is strict: Lookup returns a geolocation or
// nothing. Network failures, bad payloads, and unknown places are all
// swallowed — geocoding is decoration, never a reason to fail a
// document. Requests are rate-limited to one per second per the public
// Nominatim usage policy, with an in-memory TTL cache and an optional
// persistent SQLite cache in front so repeated place names never hit
// the network twice.
package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tesseralab/tessera/internal/document"
)

// DefaultEndpoint is the public Nominatim search API.
const DefaultEndpoint = "https://nominatim.openstreetmap.org/search"

const userAgent = "tessera-geocoder/0.1"

// negative is the in-memory marker for places Nominatim could not
// resolve, so a batch full of the same unknown place costs one request.
type negative struct{}

// Config configures a Geocoder. The zero value is usable.
type Config struct {
	Endpoint   string        // default: DefaultEndpoint
	Cache      *Cache        // optional persistent cache
	HTTPClient *http.Client  // default: 10s timeout client
	RateLimit  rate.Limit    // default: 1 req/s
	MemoryTTL  time.Duration // default: 24h
}

// Geocoder turns place names into coordinates, best-effort.
type Geocoder struct {
	endpoint string
	cache    *Cache
	client   *http.Client
	limiter  *rate.Limiter
	mem      *gocache.Cache
}

// New creates a Geocoder from cfg.
func New(cfg Config) *Geocoder {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Limit(1)
	}
	ttl := cfg.MemoryTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Geocoder{
		endpoint: endpoint,
		cache:    cfg.Cache,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		mem:      gocache.New(ttl, ttl),
	}
}

// Lookup resolves place to a geolocation, or nil when anything at all
// goes wrong.
func (g *Geocoder) Lookup(ctx context.Context, place string) *document.Geolocation {
	key := strings.ToLower(strings.TrimSpace(place))
	if key == "" {
		return nil
	}

	if v, ok := g.mem.Get(key); ok {
		if coords, ok := v.(document.Coordinates); ok {
			return &document.Geolocation{Place: place, Coordinates: coords}
		}
		return nil // negative entry
	}

	if g.cache != nil {
		if coords, ok := g.cache.Get(ctx, key); ok {
			g.mem.Set(key, coords, gocache.DefaultExpiration)
			return &document.Geolocation{Place: place, Coordinates: coords}
		}
	}

	coords, ok := g.fetch(ctx, place)
	if !ok {
		g.mem.Set(key, negative{}, gocache.DefaultExpiration)
		return nil
	}

	g.mem.Set(key, coords, gocache.DefaultExpiration)
	if g.cache != nil {
		// Cache write failures are as ignorable as lookup failures.
		_ = g.cache.Put(ctx, key, coords)
	}
	return &document.Geolocation{Place: place, Coordinates: coords}
}

func (g *Geocoder) fetch(ctx context.Context, place string) (document.Coordinates, bool) {
	if err := g.limiter.Wait(ctx); err != nil {
		return document.Coordinates{}, false
	}

	query := url.Values{}
	query.Set("q", place)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return document.Coordinates{}, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return document.Coordinates{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return document.Coordinates{}, false
	}

	// Nominatim serializes lat/lon as strings.
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil || len(results) == 0 {
		return document.Coordinates{}, false
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return document.Coordinates{}, false
	}
	return document.Coordinates{Lat: lat, Lon: lon}, true
}

package enrich

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestConsolidate(t *testing.T) {
	provider := &mockProvider{response: `[
		{"canonical": "giuseppe rava", "variants": ["g. rava", "giuseppe rava"]},
		{"canonical": "banca commerciale", "variants": ["banca commerciale"]}
	]`}

	groups, err := Consolidate(context.Background(), provider, []string{"g. rava", "giuseppe rava", "banca commerciale"})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}

	aliases := AliasMap(groups)
	want := map[string]string{"g. rava": "giuseppe rava"}
	if !reflect.DeepEqual(aliases, want) {
		t.Errorf("AliasMap = %v, want %v", aliases, want)
	}
}

func TestConsolidate_NilProviderIsIdentity(t *testing.T) {
	groups, err := Consolidate(context.Background(), nil, []string{"a", "b"})
	if err != nil || groups != nil {
		t.Errorf("expected identity (nil, nil), got %v, %v", groups, err)
	}
}

func TestConsolidate_ServiceFailure(t *testing.T) {
	provider := &mockProvider{err: errors.New("quota exceeded")}
	groups, err := Consolidate(context.Background(), provider, []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if groups != nil {
		t.Errorf("groups should be nil on failure, got %v", groups)
	}
	// The caller falls back to the identity mapping.
	if AliasMap(groups) != nil {
		t.Error("AliasMap(nil) must be nil")
	}
}

func TestConsolidate_MalformedResponse(t *testing.T) {
	provider := &mockProvider{response: "not json at all"}
	if _, err := Consolidate(context.Background(), provider, []string{"a"}); err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestAliasMap_EmptyGroups(t *testing.T) {
	if AliasMap(nil) != nil {
		t.Error("AliasMap(nil) must be nil")
	}
	if AliasMap([]Group{{Canonical: "x", Variants: []string{"x"}}}) != nil {
		t.Error("self-only groups must yield a nil map")
	}
}

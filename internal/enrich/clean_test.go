package enrich

import (
	"errors"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"bare object",
			`{"tags": []}`,
			`{"tags": []}`,
		},
		{
			"fenced object",
			"```json\n{\"tags\": []}\n```",
			`{"tags": []}`,
		},
		{
			"fence without language",
			"```\n[1, 2]\n```",
			`[1, 2]`,
		},
		{
			"object in prose",
			`Here is the result: {"tags": ["factory"]} — hope that helps!`,
			`{"tags": ["factory"]}`,
		},
		{
			"array in prose",
			`The merged entities are ["giuseppe rava"] as requested.`,
			`["giuseppe rava"]`,
		},
		{
			"object containing arrays stays an object",
			`{"entities": {"persons": ["a"]}}`,
			`{"entities": {"persons": ["a"]}}`,
		},
		{
			"fence plus surrounding prose",
			"Sure!\n```json\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanModelJSON(tt.raw)
			if err != nil {
				t.Fatalf("CleanModelJSON: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanModelJSON_NoPayload(t *testing.T) {
	for _, raw := range []string{"", "no json here", "unbalanced { only", "] backwards ["} {
		if _, err := CleanModelJSON(raw); !errors.Is(err, ErrNoJSON) {
			t.Errorf("CleanModelJSON(%q): expected ErrNoJSON, got %v", raw, err)
		}
	}
}

package flatten

import (
	"reflect"
	"testing"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

func TestTrimSynonyms(t *testing.T) {
	tests := []struct {
		name     string
		synonyms any
		wantLen  int
		trimmed  bool
	}{
		{name: "longer than max", synonyms: []any{"a", "b", "c", "d", "e", "f", "g"}, wantLen: 5, trimmed: true},
		{name: "exactly max", synonyms: []any{"a", "b", "c", "d", "e"}, wantLen: 5},
		{name: "shorter than max", synonyms: []any{"a", "b"}, wantLen: 2},
		{name: "empty sequence", synonyms: []any{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.Record{"id": 1, "synonyms": tt.synonyms}
			out := TrimSynonyms([]api.Record{rec}, MaxSynonyms)

			if len(out) != 1 {
				t.Fatalf("len(out) = %d, want 1", len(out))
			}
			syns := out[0]["synonyms"].([]any)
			if len(syns) != tt.wantLen {
				t.Fatalf("len(synonyms) = %d, want %d", len(syns), tt.wantLen)
			}

			// Retained prefix preserves order and element identity.
			in := tt.synonyms.([]any)
			for i := range syns {
				if syns[i] != in[i] {
					t.Errorf("synonyms[%d] = %v, want %v", i, syns[i], in[i])
				}
			}

			// The input record is never mutated.
			if len(rec["synonyms"].([]any)) != len(in) {
				t.Errorf("input synonyms mutated")
			}
			if tt.trimmed && reflect.ValueOf(out[0]).Pointer() == reflect.ValueOf(rec).Pointer() {
				t.Errorf("trimmed record shares map with input, want shallow copy")
			}
		})
	}
}

func TestTrimSynonyms_NonSequencePassesThrough(t *testing.T) {
	records := []api.Record{
		{"id": 1},
		{"id": 2, "synonyms": "oops"},
		{"id": 3, "synonyms": nil},
	}

	out := TrimSynonyms(records, MaxSynonyms)

	for i := range records {
		if reflect.ValueOf(out[i]).Pointer() != reflect.ValueOf(records[i]).Pointer() {
			t.Errorf("record %d copied, want passed through unchanged", i)
		}
	}
	if _, present := out[0]["synonyms"]; present {
		t.Errorf("synonyms added to record without one, want left absent")
	}
}

func TestFirstSourceWithURL(t *testing.T) {
	tests := []struct {
		name    string
		sources any
		want    any // expected "name" attribute, or nil for absence
	}{
		{
			name: "earliest truthy url wins",
			sources: []any{
				map[string]any{"name": "first", "url": ""},
				map[string]any{"name": "second", "url": "https://a"},
				map[string]any{"name": "third", "url": "https://b"},
			},
			want: "second",
		},
		{
			name: "null entries skipped",
			sources: []any{
				nil,
				nil,
				map[string]any{"name": "only", "url": "https://a"},
			},
			want: "only",
		},
		{name: "no qualifying entry", sources: []any{map[string]any{"name": "x"}}, want: nil},
		{name: "empty input", sources: []any{}, want: nil},
		{name: "nil input", sources: nil, want: nil},
		{name: "non-sequence input", sources: "oops", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstSourceWithURL(tt.sources)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("FirstSourceWithURL() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("FirstSourceWithURL() = nil, want entry %v", tt.want)
			}
			if got["name"] != tt.want {
				t.Errorf("name = %v, want %v", got["name"], tt.want)
			}
		})
	}
}

package flatten

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// record decodes a JSON object the way API responses arrive (numbers as
// float64), so tests exercise the same shapes as production.
func record(t *testing.T, raw string) api.Record {
	t.Helper()
	var rec api.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("invalid test record: %v", err)
	}
	return rec
}

func TestFlatten_SummaryFieldsCopiedVerbatim(t *testing.T) {
	summary := record(t, `{
		"id": 123,
		"common_name": "Oak",
		"slug": "quercus-robur",
		"scientific_name": "Quercus robur",
		"year": 1753,
		"author": "L.",
		"status": "accepted",
		"rank": "species",
		"vegetable": false
	}`)

	out := Flatten(summary, api.Record{})

	checks := map[string]any{
		"id":              float64(123),
		"common_name":     "Oak",
		"slug":            "quercus-robur",
		"scientific_name": "Quercus robur",
		"year":            float64(1753),
		"author":          "L.",
		"status":          "accepted",
		"rank":            "species",
		"vegetable":       false,
	}
	for k, want := range checks {
		if got := out[k]; !reflect.DeepEqual(got, want) {
			t.Errorf("out[%q] = %v, want %v", k, got, want)
		}
	}

	// Absent summary fields are still present, as nil.
	for _, k := range []string{"bibliography", "family_common_name", "genus_id", "image_url", "observations"} {
		v, present := out[k]
		if !present {
			t.Errorf("out[%q] missing, want present with nil", k)
		}
		if v != nil {
			t.Errorf("out[%q] = %v, want nil", k, v)
		}
	}
}

func TestFlatten_SynonymsTruncated(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    []any
	}{
		{
			name:    "seven synonyms keep first five",
			summary: `{"synonyms": ["s1","s2","s3","s4","s5","s6","s7"]}`,
			want:    []any{"s1", "s2", "s3", "s4", "s5"},
		},
		{
			name:    "three synonyms kept as-is",
			summary: `{"synonyms": ["a","b","c"]}`,
			want:    []any{"a", "b", "c"},
		},
		{
			name:    "absent synonyms become empty sequence",
			summary: `{}`,
			want:    []any{},
		},
		{
			name:    "non-sequence synonyms become empty sequence",
			summary: `{"synonyms": "oops"}`,
			want:    []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Flatten(record(t, tt.summary), api.Record{})
			if got := out["synonyms"]; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("synonyms = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_DetailWinsOnRankAndObservations(t *testing.T) {
	summary := record(t, `{"rank": "species", "observations": "Europe"}`)
	detail := record(t, `{"main_species": {"rank": "var", "observations": "Europe, Asia"}}`)

	out := Flatten(summary, detail)

	if out["rank"] != "var" {
		t.Errorf("rank = %v, want detail value", out["rank"])
	}
	if out["observations"] != "Europe, Asia" {
		t.Errorf("observations = %v, want detail value", out["observations"])
	}
}

func TestFlatten_SummaryRankSurvivesMissingMainSpecies(t *testing.T) {
	summary := record(t, `{"rank": "species", "observations": "Europe", "common_name": "Oak"}`)
	detail := record(t, `{"id": 1}`)

	out := Flatten(summary, detail)

	if out["rank"] != "species" {
		t.Errorf("rank = %v, want summary value preserved", out["rank"])
	}
	if out["observations"] != "Europe" {
		t.Errorf("observations = %v, want summary value preserved", out["observations"])
	}
	// Detail-derived fields are present as nil.
	for _, k := range []string{"duration", "edible_part", "edible", "genus", "family", "source"} {
		v, present := out[k]
		if !present || v != nil {
			t.Errorf("out[%q] = %v (present=%v), want present nil", k, v, present)
		}
	}
}

func TestFlatten_Images(t *testing.T) {
	detail := record(t, `{"main_species": {"images": {
		"flower": [
			{"image_url": "u1", "copyright": "c1", "id": 9},
			{"image_url": "u2"},
			{"image_url": "u3"}
		],
		"bark": [{"id": 4}],
		"": [{"image_url": "hidden"}],
		"leaf": [],
		"habit": "not-a-sequence"
	}}}`)

	out := Flatten(api.Record{}, detail)
	images, ok := out["images"].(api.Record)
	if !ok {
		t.Fatalf("images = %T, want api.Record", out["images"])
	}

	flower, ok := images["flower"].([]any)
	if !ok {
		t.Fatalf("images.flower missing")
	}
	if len(flower) != 2 {
		t.Fatalf("len(flower) = %d, want 2 (first two entries)", len(flower))
	}
	first := flower[0].(api.Record)
	if first["image_url"] != "u1" || first["copyright"] != "c1" {
		t.Errorf("first projection = %v", first)
	}
	if _, leaked := first["id"]; leaked {
		t.Errorf("projection leaked extra field: %v", first)
	}
	second := flower[1].(api.Record)
	if second["image_url"] != "u2" || second["copyright"] != nil {
		t.Errorf("second projection = %v", second)
	}

	// bark's only entry projects to both-absent and is dropped; the key
	// goes with it. Empty keys, empty sequences, and non-sequences are
	// skipped.
	for _, k := range []string{"bark", "", "leaf", "habit"} {
		if _, present := images[k]; present {
			t.Errorf("images[%q] present, want dropped", k)
		}
	}
}

func TestFlatten_ImagesNonMappingEntryPassesThrough(t *testing.T) {
	detail := record(t, `{"main_species": {"images": {"misc": ["just-a-url", {"copyright": "c"}]}}}`)

	out := Flatten(api.Record{}, detail)
	misc := out["images"].(api.Record)["misc"].([]any)

	if len(misc) != 2 {
		t.Fatalf("len(misc) = %d, want 2", len(misc))
	}
	if misc[0] != "just-a-url" {
		t.Errorf("non-mapping entry = %v, want passed through unmodified", misc[0])
	}
}

func TestFlatten_DistributionsSortedAndBounded(t *testing.T) {
	detail := record(t, `{"main_species": {"distributions": {
		"native": [
			{"name": "a", "species_count": 3, "extra": true},
			{"name": "b", "species_count": 10},
			{"name": "c"},
			{"name": "d", "species_count": 10},
			{"name": "e", "species_count": 7},
			{"name": "f", "species_count": 1},
			{"name": "g", "species_count": 4}
		],
		"introduced": []
	}}}`)

	out := Flatten(api.Record{}, detail)
	dists := out["distributions"].(api.Record)

	native, ok := dists["native"].([]any)
	if !ok {
		t.Fatalf("distributions.native missing")
	}
	if len(native) != MaxDistributions {
		t.Fatalf("len(native) = %d, want %d", len(native), MaxDistributions)
	}

	// Descending by count; b before d preserves original order on ties;
	// c (missing count) sorts as 0 and falls off the truncation.
	wantNames := []string{"b", "d", "e", "g", "a"}
	for i, want := range wantNames {
		entry := native[i].(api.Record)
		if entry["name"] != want {
			t.Errorf("native[%d].name = %v, want %s", i, entry["name"], want)
		}
		if _, leaked := entry["extra"]; leaked {
			t.Errorf("native[%d] leaked extra field", i)
		}
	}

	if _, present := dists["introduced"]; present {
		t.Errorf("empty introduced key present, want omitted")
	}
}

func TestFlatten_AttributeGroups(t *testing.T) {
	detail := record(t, `{"main_species": {
		"flower": {"color": "white", "conspicuous": true},
		"foliage": {"texture": "fine"},
		"fruit_or_seed": {}
	}}`)

	out := Flatten(api.Record{}, detail)

	if out["flower_color"] != "white" || out["flower_conspicuous"] != true {
		t.Errorf("flower fields = %v / %v", out["flower_color"], out["flower_conspicuous"])
	}
	if out["foliage_texture"] != "fine" {
		t.Errorf("foliage_texture = %v", out["foliage_texture"])
	}
	// Missing attributes yield nil, field still present.
	for _, k := range []string{"foliage_color", "foliage_leaf_retention", "fruit_conspicuous", "fruit_color", "fruit_shape", "fruit_seed_persistence"} {
		v, present := out[k]
		if !present || v != nil {
			t.Errorf("out[%q] = %v (present=%v), want present nil", k, v, present)
		}
	}
}

func TestFlatten_SourceSelection(t *testing.T) {
	detail := record(t, `{"main_species": {"sources": [
		null,
		{"name": "no-url"},
		{"name": "empty-url", "url": ""},
		{"name": "winner", "url": "https://example.org"},
		{"name": "later", "url": "https://example.com"}
	]}}`)

	out := Flatten(api.Record{}, detail)
	source, ok := out["source"].(api.Record)
	if !ok {
		t.Fatalf("source = %T, want api.Record", out["source"])
	}
	if source["name"] != "winner" {
		t.Errorf("source.name = %v, want earliest entry with truthy url", source["name"])
	}
}

func TestFlatten_SpecificationsAndGrowth(t *testing.T) {
	detail := record(t, `{"main_species": {
		"specifications": {
			"ligneous_type": "tree",
			"toxicity": "none",
			"average_height": {"cm": 2500},
			"maximum_height": {"cm": 4000}
		},
		"growth": {
			"light": 7,
			"ph_minimum": 4.5,
			"row_spacing": {"cm": 90},
			"minimum_precipitation": {"mm": 400},
			"minimum_temperature": {"deg_f": -26, "deg_c": -32},
			"maximum_temperature": {"deg_c": 35}
		}
	}}`)

	out := Flatten(api.Record{}, detail)

	checks := map[string]any{
		"spec_ligneous_type":               "tree",
		"spec_toxicity":                    "none",
		"spec_average_height_cm":           float64(2500),
		"spec_maximum_height_cm":           float64(4000),
		"growth_light":                     float64(7),
		"growth_ph_minimum":                4.5,
		"growth_row_spacing_cm":            float64(90),
		"growth_minimum_precipitation_mm":  float64(400),
		"growth_minimum_temperature_deg_f": float64(-26),
		"growth_minimum_temperature_deg_c": float64(-32),
		"growth_maximum_temperature_deg_c": float64(35),
	}
	for k, want := range checks {
		if got := out[k]; !reflect.DeepEqual(got, want) {
			t.Errorf("out[%q] = %v, want %v", k, got, want)
		}
	}

	// Temperature expands into both units; the missing one is nil but
	// present.
	if v, present := out["growth_maximum_temperature_deg_f"]; !present || v != nil {
		t.Errorf("growth_maximum_temperature_deg_f = %v (present=%v), want present nil", v, present)
	}
	// Every spec_ and growth_ field in the rule set exists.
	for _, k := range []string{"spec_growth_form", "spec_growth_habit", "spec_growth_rate", "spec_nitrogen_fixation", "spec_shape_and_orientation", "growth_description", "growth_sowing", "growth_days_to_harvest", "growth_soil_texture", "growth_spread_cm", "growth_minimum_root_depth_cm"} {
		if _, present := out[k]; !present {
			t.Errorf("out[%q] missing, want present", k)
		}
	}
}

func TestFlatten_GenusAndFamilyShapes(t *testing.T) {
	tests := []struct {
		name       string
		detail     string
		wantGenus  any
		wantFamily any
	}{
		{
			name:       "string genus and mapping family",
			detail:     `{"main_species": {"genus": "Quercus", "family": {"name": "Fagaceae"}}}`,
			wantGenus:  "Quercus",
			wantFamily: "Fagaceae",
		},
		{
			name:       "mapping without name",
			detail:     `{"main_species": {"genus": {"id": 4}, "family": {}}}`,
			wantGenus:  nil,
			wantFamily: nil,
		},
		{
			name:       "absent values",
			detail:     `{"main_species": {}}`,
			wantGenus:  nil,
			wantFamily: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Flatten(api.Record{}, record(t, tt.detail))
			if !reflect.DeepEqual(out["genus"], tt.wantGenus) {
				t.Errorf("genus = %v, want %v", out["genus"], tt.wantGenus)
			}
			if !reflect.DeepEqual(out["family"], tt.wantFamily) {
				t.Errorf("family = %v, want %v", out["family"], tt.wantFamily)
			}
		})
	}
}

// Mirrors the documented end-to-end example: 7 synonyms trim to 5, genus
// arrives as a string, family as a mapping.
func TestFlatten_OakScenario(t *testing.T) {
	summary := record(t, `{
		"id": 123,
		"common_name": "Oak",
		"synonyms": ["s1","s2","s3","s4","s5","s6","s7"]
	}`)
	detail := record(t, `{"main_species": {"genus": "Quercus", "family": {"name": "Fagaceae"}}}`)

	out := Flatten(summary, detail)

	syns := out["synonyms"].([]any)
	if len(syns) != 5 {
		t.Fatalf("len(synonyms) = %d, want 5", len(syns))
	}
	if !reflect.DeepEqual(syns, []any{"s1", "s2", "s3", "s4", "s5"}) {
		t.Errorf("synonyms = %v", syns)
	}
	if out["genus"] != "Quercus" {
		t.Errorf("genus = %v, want Quercus", out["genus"])
	}
	if out["family"] != "Fagaceae" {
		t.Errorf("family = %v, want Fagaceae", out["family"])
	}
	if out["common_name"] != "Oak" {
		t.Errorf("common_name = %v, want Oak", out["common_name"])
	}
}

func TestFlatten_PureAndIdempotent(t *testing.T) {
	rawSummary := `{"id": 1, "rank": "species", "synonyms": ["a","b","c","d","e","f"]}`
	rawDetail := `{"main_species": {
		"rank": "var",
		"genus": "Quercus",
		"distributions": {"native": [{"name": "x", "species_count": 2}, {"name": "y"}]},
		"sources": [{"name": "s", "url": "https://example.org"}]
	}}`

	summary := record(t, rawSummary)
	detail := record(t, rawDetail)

	first := Flatten(summary, detail)
	second := Flatten(summary, detail)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("two calls with identical inputs differ")
	}

	// Inputs are not mutated.
	if !reflect.DeepEqual(summary, record(t, rawSummary)) {
		t.Errorf("summary mutated by Flatten")
	}
	if !reflect.DeepEqual(detail, record(t, rawDetail)) {
		t.Errorf("detail mutated by Flatten")
	}
}

// Package flatten implements the data-enrichment flattening pipeline: the
// merge of a summary plant record with its detail record into a single flat
// record suitable for tabular storage, with bounded nested collections.
//
// The truncation counts, sort order, field selection, and defaulting rules
// here define the output format; changing them breaks compatibility with
// previously written files.
package flatten

import (
	"encoding/json"
	"sort"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// Collection bounds applied during flattening.
const (
	// MaxSynonyms is the number of synonyms kept per record.
	MaxSynonyms = 5

	// MaxImagesPerType is the number of images kept per image-type key.
	MaxImagesPerType = 2

	// MaxDistributions is the number of zones kept per distribution key.
	MaxDistributions = 5
)

// summaryFields are copied verbatim from the summary record (rule 1).
var summaryFields = []string{
	"id", "common_name", "slug", "scientific_name", "year", "bibliography",
	"author", "status", "rank", "family_common_name", "genus_id",
	"image_url", "observations", "vegetable",
}

// flowerFields etc. map attribute-group members to prefixed output fields
// (rule 6).
var (
	flowerFields  = []string{"color", "conspicuous"}
	foliageFields = []string{"texture", "color", "leaf_retention"}
	fruitFields   = []string{"conspicuous", "color", "shape", "seed_persistence"}
)

// specFields are the specifications attributes (rule 8). Height fields are
// unit-nested and flattened to _cm.
var specFields = []string{
	"ligneous_type", "growth_form", "growth_habit", "growth_rate",
	"nitrogen_fixation", "shape_and_orientation", "toxicity",
}

// growthFields are the flat growth attributes (rule 9). Unit-nested growth
// attributes are handled separately in growthUnitFields.
var growthFields = []string{
	"description", "sowing", "days_to_harvest", "ph_maximum", "ph_minimum",
	"light", "atmospheric_humidity", "growth_months", "bloom_months",
	"fruit_months", "soil_nutriments", "soil_salinity", "soil_texture",
	"soil_humidity",
}

// growthUnitFields lists unit-nested growth attributes and the unit
// sub-attributes each expands into. Temperatures expand into two output
// fields, one per unit.
var growthUnitFields = []struct {
	attr  string
	units []string
}{
	{"row_spacing", []string{"cm"}},
	{"spread", []string{"cm"}},
	{"minimum_precipitation", []string{"mm"}},
	{"maximum_precipitation", []string{"mm"}},
	{"minimum_root_depth", []string{"cm"}},
	{"minimum_temperature", []string{"deg_f", "deg_c"}},
	{"maximum_temperature", []string{"deg_f", "deg_c"}},
}

// Flatten merges a summary record and its detail record into one flat
// record. It is a pure function: no I/O, no mutation of its inputs, and it
// never fails on missing nested structures; every nested access defaults to
// an empty object or sequence before projection. Every field in the rule set
// is present in the output, nil when the source path is missing.
func Flatten(summary, detail api.Record) api.Record {
	out := make(api.Record, 80)

	// Rule 1: fixed root fields, verbatim.
	for _, k := range summaryFields {
		out[k] = summary[k]
	}

	// Rule 2: synonyms, first MaxSynonyms in original order.
	out["synonyms"] = trimSequence(summary.Slice("synonyms"), MaxSynonyms)

	ms := detail.Map("main_species")

	// Rule 3: species-level fields. rank and observations also exist at
	// the summary level; the detail value wins when main_species carries
	// the key, otherwise the summary value survives.
	for _, k := range []string{"rank", "observations"} {
		if v, ok := ms[k]; ok {
			out[k] = v
		}
	}
	for _, k := range []string{"duration", "edible_part", "edible"} {
		out[k] = ms[k]
	}

	// Rule 4: images, bounded and projected per type.
	out["images"] = flattenImages(ms.Map("images"))

	// Rule 5: distributions, sorted and bounded per key.
	out["distributions"] = flattenDistributions(ms.Map("distributions"))

	// Rule 6: attribute groups to prefixed fields.
	copyGroup(out, ms.Map("flower"), "flower_", flowerFields)
	copyGroup(out, ms.Map("foliage"), "foliage_", foliageFields)
	copyGroup(out, ms.Map("fruit_or_seed"), "fruit_", fruitFields)

	// Rule 7: first source with a usable URL. The explicit nil keeps the
	// stored value untyped so absence checks stay simple.
	if src := FirstSourceWithURL(ms["sources"]); src != nil {
		out["source"] = src
	} else {
		out["source"] = nil
	}

	// Rule 8: specifications.
	specs := ms.Map("specifications")
	for _, k := range specFields {
		out["spec_"+k] = specs[k]
	}
	out["spec_average_height_cm"] = specs.Map("average_height")["cm"]
	out["spec_maximum_height_cm"] = specs.Map("maximum_height")["cm"]

	// Rule 9: growth.
	growth := ms.Map("growth")
	for _, k := range growthFields {
		out["growth_"+k] = growth[k]
	}
	for _, uf := range growthUnitFields {
		nested := growth.Map(uf.attr)
		for _, unit := range uf.units {
			out["growth_"+uf.attr+"_"+unit] = nested[unit]
		}
	}

	// Rule 10: genus/family arrive as either a bare string or an object
	// with a name attribute.
	out["genus"] = api.NormalizeNamed(ms["genus"]).Name
	out["family"] = api.NormalizeNamed(ms["family"]).Name

	return out
}

// trimSequence returns at most max leading elements of s, or an empty
// sequence when s is nil. The retained prefix shares element identity with
// the input.
func trimSequence(s []any, max int) []any {
	if s == nil {
		return []any{}
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}

// flattenImages applies rule 4: per image-type key, keep the first
// MaxImagesPerType entries projected to {image_url, copyright}; drop
// projections where both attributes are absent; keep the type key only if an
// entry survives. Non-object entries pass through unmodified.
func flattenImages(images api.Record) api.Record {
	out := api.Record{}
	for key, v := range images {
		if key == "" {
			continue
		}
		entries, ok := v.([]any)
		if !ok || len(entries) == 0 {
			continue
		}
		if len(entries) > MaxImagesPerType {
			entries = entries[:MaxImagesPerType]
		}

		kept := make([]any, 0, len(entries))
		for _, entry := range entries {
			m, ok := api.AsRecord(entry)
			if !ok {
				kept = append(kept, entry)
				continue
			}
			proj := api.Record{
				"image_url": m["image_url"],
				"copyright": m["copyright"],
			}
			if proj["image_url"] == nil && proj["copyright"] == nil {
				continue
			}
			kept = append(kept, proj)
		}
		if len(kept) > 0 {
			out[key] = kept
		}
	}
	return out
}

// flattenDistributions applies rule 5 to the native and introduced keys:
// project to {name, species_count}, sort descending by species_count with a
// stable tie-break, keep the first MaxDistributions, and include the key
// only when non-empty.
func flattenDistributions(dists api.Record) api.Record {
	out := api.Record{}
	for _, key := range []string{"native", "introduced"} {
		entries := dists.Slice(key)
		projected := make([]any, 0, len(entries))
		for _, entry := range entries {
			m, ok := api.AsRecord(entry)
			if !ok {
				projected = append(projected, entry)
				continue
			}
			projected = append(projected, api.Record{
				"name":          m["name"],
				"species_count": m["species_count"],
			})
		}

		sort.SliceStable(projected, func(i, j int) bool {
			return speciesCount(projected[i]) > speciesCount(projected[j])
		})

		if len(projected) > MaxDistributions {
			projected = projected[:MaxDistributions]
		}
		if len(projected) > 0 {
			out[key] = projected
		}
	}
	return out
}

// speciesCount extracts the sort key of a distribution entry; absent or
// non-numeric counts sort as 0.
func speciesCount(entry any) float64 {
	m, ok := api.AsRecord(entry)
	if !ok {
		return 0
	}
	switch v := m["species_count"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// copyGroup copies group attributes into out under prefix. Missing
// attributes yield nil, the field is still present.
func copyGroup(out api.Record, group api.Record, prefix string, fields []string) {
	for _, k := range fields {
		out[prefix+k] = group[k]
	}
}

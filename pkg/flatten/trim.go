package flatten

import "github.com/verdantio/trefle-fetch/pkg/api"

// TrimSynonyms returns a new sequence of records where any record whose
// synonyms field is a sequence longer than max is shallow-copied with the
// field truncated to the first max entries. Records without a sequence
// synonyms field pass through unchanged; the field is left absent, not set
// to empty. The input is never mutated.
func TrimSynonyms(records []api.Record, max int) []api.Record {
	out := make([]api.Record, 0, len(records))
	for _, rec := range records {
		syns, ok := rec["synonyms"].([]any)
		if !ok || len(syns) <= max {
			out = append(out, rec)
			continue
		}

		trimmed := make(api.Record, len(rec))
		for k, v := range rec {
			trimmed[k] = v
		}
		trimmed["synonyms"] = syns[:max]
		out = append(out, trimmed)
	}
	return out
}

// FirstSourceWithURL returns the first object in sources with a truthy url
// attribute, or nil when sources is not a non-empty sequence or no entry
// qualifies. Null and non-object entries are skipped without error.
func FirstSourceWithURL(sources any) api.Record {
	entries, ok := sources.([]any)
	if !ok {
		return nil
	}
	for _, entry := range entries {
		m, ok := api.AsRecord(entry)
		if !ok {
			continue
		}
		if truthy(m["url"]) {
			return m
		}
	}
	return nil
}

// truthy mirrors the loose presence check applied to source URLs: nil,
// empty string, and false are falsy; anything else counts.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	default:
		return true
	}
}

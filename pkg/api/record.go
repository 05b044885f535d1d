package api

import (
	"encoding/json"
	"strconv"
)

// Record is a loosely typed JSON object as returned by the plant API.
// List and search endpoints return sequences of summary records; single-item
// endpoints return a detail record carrying a main_species sub-object.
type Record map[string]any

// Str returns the string value for key, or "" if absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Map returns the nested object at key, or an empty Record if the value is
// absent or not an object. Never returns nil, so chained lookups are safe.
func (r Record) Map(key string) Record {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	default:
		return Record{}
	}
}

// Slice returns the sequence at key, or nil if absent or not a sequence.
func (r Record) Slice(key string) []any {
	s, _ := r[key].([]any)
	return s
}

// ID returns the record identifier as a string. JSON numbers arrive as
// float64; string ids (slugs) pass through.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// AsRecord converts a decoded JSON value to a Record if it is an object.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Record(m), true
	case Record:
		return m, true
	default:
		return nil, false
	}
}

// Named is the normalized form of a value the API serves either as a bare
// string or as an object with a "name" attribute (genus, family).
type Named struct {
	// Name is the resolved name value, nil when the source carried none.
	Name any

	// FromObject reports whether the source value was an object rather
	// than a bare string.
	FromObject bool
}

// NormalizeNamed inspects the runtime shape of v once and returns the
// tagged form. Absent or unusable values yield a Named with a nil Name.
func NormalizeNamed(v any) Named {
	switch t := v.(type) {
	case string:
		return Named{Name: t}
	case map[string]any:
		return Named{Name: t["name"], FromObject: true}
	case Record:
		return Named{Name: t["name"], FromObject: true}
	default:
		return Named{FromObject: true}
	}
}

package batch

import (
	"fmt"
	"strings"
)

// enrichedSuffix marks output files produced with enrichment on.
const enrichedSuffix = "_enriched"

// PagedName builds the output filename for a paginated batch:
// {category}_pages_{start}-{end}{_enriched}?{ext}. ext includes the leading
// dot ("".json"", "".json.gz"", ...).
func PagedName(category string, startPage, endPage int, enriched bool, ext string) string {
	return fmt.Sprintf("%s_pages_%d-%d%s%s",
		category, startPage, endPage, suffix(enriched), ext)
}

// SearchName builds the output filename for search results:
// {safe_query}_results{_enriched}?{ext}.
func SearchName(query string, enriched bool, ext string) string {
	return fmt.Sprintf("%s_results%s%s", SafeName(query), suffix(enriched), ext)
}

// ItemName builds the output filename for a by-ID fetch:
// {slug|"plant_"+id}_{id}{_enriched}?{ext}.
func ItemName(slug, id string, enriched bool, ext string) string {
	base := slug
	if base == "" {
		base = "plant_" + id
	}
	return fmt.Sprintf("%s_%s%s%s", SafeName(base), id, suffix(enriched), ext)
}

// SafeName lowercases s and replaces every run of characters outside
// [a-z0-9_-] with a single underscore, so arbitrary query strings yield
// portable filenames.
func SafeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		safe := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		if safe {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func suffix(enriched bool) string {
	if enriched {
		return enrichedSuffix
	}
	return ""
}

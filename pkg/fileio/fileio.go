// Package fileio persists fetched data to local files in multiple formats
// and reads them back. Formats: json, json.gz, csv, txt, with auto-detection
// from the file extension.
package fileio

import (
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatJSONGz Format = "json.gz"
	FormatCSV    Format = "csv"
	FormatTxt    Format = "txt"
	FormatAuto   Format = "auto"
)

// Ext returns the file extension for a format, including the leading dot.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatJSONGz:
		return ".json.gz"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

// ParseFormat validates a format name from configuration.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatJSONGz, FormatCSV, FormatTxt, FormatAuto:
		return Format(s), nil
	case "":
		return FormatJSON, nil
	default:
		return "", &api.ValidationError{Field: "format", Reason: "must be one of json, json.gz, csv, txt, auto"}
	}
}

// Detect infers a format from the file extension.
func Detect(path string) Format {
	switch {
	case strings.HasSuffix(path, ".json.gz"):
		return FormatJSONGz
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	case strings.HasSuffix(path, ".csv"):
		return FormatCSV
	default:
		return FormatTxt
	}
}

// Write persists data to path in the given format, creating intermediate
// directories as needed. FormatAuto resolves from the extension. CSV
// requires a non-empty sequence of records and fails with a validation
// error otherwise.
func Write(data any, path string, format Format) error {
	if err := api.RequireNonEmpty("filepath", path); err != nil {
		return err
	}
	if format == FormatAuto || format == "" {
		format = Detect(path)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatJSON:
		return writeJSON(f, data)
	case FormatJSONGz:
		gz := gzip.NewWriter(f)
		if err := writeJSON(gz, data); err != nil {
			gz.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("close gzip stream: %w", err)
		}
		return nil
	case FormatCSV:
		return writeCSV(f, data)
	case FormatTxt:
		return writeTxt(f, data)
	default:
		return &api.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}

// Read loads data from path in the given format. FormatAuto resolves from
// the extension. A missing file is an error.
func Read(path string, format Format) (any, error) {
	if err := api.RequireNonEmpty("filepath", path); err != nil {
		return nil, err
	}
	if format == FormatAuto || format == "" {
		format = Detect(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatJSON:
		return readJSON(f)
	case FormatJSONGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		return readJSON(gz)
	case FormatCSV:
		return readCSV(f)
	case FormatTxt:
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return string(b), nil
	default:
		return nil, &api.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func readJSON(r io.Reader) (any, error) {
	var out any
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return out, nil
}

// writeCSV renders a sequence of records. The first record's keys define
// the header row; Go maps carry no insertion order, so the header uses
// sorted key order for deterministic output.
func writeCSV(w io.Writer, data any) error {
	records, err := toRecords(data)
	if err != nil {
		return err
	}

	header := make([]string, 0, len(records[0]))
	for k := range records[0] {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			row[i] = formatCell(rec[k])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

func readCSV(r io.Reader) (any, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(rows) == 0 {
		return []api.Record{}, nil
	}

	header := rows[0]
	out := make([]api.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(api.Record, len(header))
		for i, k := range header {
			if i < len(row) {
				rec[k] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func writeTxt(w io.Writer, data any) error {
	var err error
	switch v := data.(type) {
	case string:
		_, err = io.WriteString(w, v)
	case []byte:
		_, err = w.Write(v)
	default:
		_, err = fmt.Fprintf(w, "%v", v)
	}
	if err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// toRecords coerces supported sequence shapes into []api.Record for CSV
// rendering. Anything else is a validation error.
func toRecords(data any) ([]api.Record, error) {
	switch v := data.(type) {
	case []api.Record:
		if len(v) == 0 {
			return nil, &api.ValidationError{Field: "data", Reason: "CSV output requires a non-empty record sequence"}
		}
		return v, nil
	case []map[string]any:
		if len(v) == 0 {
			return nil, &api.ValidationError{Field: "data", Reason: "CSV output requires a non-empty record sequence"}
		}
		out := make([]api.Record, len(v))
		for i, m := range v {
			out[i] = api.Record(m)
		}
		return out, nil
	case []any:
		if len(v) == 0 {
			return nil, &api.ValidationError{Field: "data", Reason: "CSV output requires a non-empty record sequence"}
		}
		out := make([]api.Record, len(v))
		for i, e := range v {
			rec, ok := api.AsRecord(e)
			if !ok {
				return nil, &api.ValidationError{Field: "data", Reason: fmt.Sprintf("CSV element %d is not an object", i)}
			}
			out[i] = rec
		}
		return out, nil
	default:
		return nil, &api.ValidationError{Field: "data", Reason: "CSV output requires a sequence of objects"}
	}
}

// formatCell renders one CSV cell. Nested structures are JSON-encoded so
// bounded collections (images, distributions) survive the tabular format.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, api.Record, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

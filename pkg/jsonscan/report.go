package jsonscan

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Write
const (
	FormatText       = "text"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatJSONSchema = "jsonschema"
)

// Report is the sorted, serializable view of a Result
type Report struct {
	Files    int         `json:"files" yaml:"files"`
	Objects  int         `json:"objects" yaml:"objects"`
	Keys     []KeyReport `json:"keys" yaml:"keys"`
	Warnings []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// KeyReport is the type distribution of one key
type KeyReport struct {
	Key   string       `json:"key" yaml:"key"`
	Total int          `json:"total" yaml:"total"`
	Types []TypeReport `json:"types" yaml:"types"`
}

// TypeReport is the share of one type among the occurrences of a key
type TypeReport struct {
	Type    string  `json:"type" yaml:"type"`
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// NewReport sorts keys and types by name
func NewReport(result *Result) *Report {
	report := &Report{
		Files:   len(result.Files),
		Objects: result.Schema.Objects,
		Keys:    []KeyReport{},
	}

	keys := make([]string, 0, len(result.Schema.Keys))
	for key := range result.Schema.Keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		counts := result.Schema.Keys[key]
		total := counts.Total()

		types := make([]string, 0, len(counts))
		for t := range counts {
			types = append(types, t)
		}
		sort.Strings(types)

		kr := KeyReport{Key: key, Total: total}
		for _, t := range types {
			kr.Types = append(kr.Types, TypeReport{
				Type:    t,
				Count:   counts[t],
				Percent: float64(counts[t]) / float64(total) * 100,
			})
		}
		report.Keys = append(report.Keys, kr)
	}

	for _, w := range result.Warnings {
		report.Warnings = append(report.Warnings, w.String())
	}
	return report
}

// Write renders the report in the given format
func Write(w io.Writer, format string, report *Report) error {
	switch format {
	case FormatText, "":
		return WriteText(w, report)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(report), "failed to encode report")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return errors.Wrap(err, "failed to encode report")
		}
		return errors.Wrap(enc.Close(), "failed to encode report")
	case FormatJSONSchema:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(BuildJSONSchema(report)), "failed to encode schema")
	default:
		return errors.Errorf("unsupported format %q", format)
	}
}

// WriteText renders the human readable report
func WriteText(w io.Writer, report *Report) error {
	if report.Files == 0 {
		_, err := fmt.Fprintln(w, "No JSON files found.")
		return err
	}

	fmt.Fprintln(w, "\n--- JSON Structure Analysis Results ---")
	if len(report.Keys) == 0 {
		_, err := fmt.Fprintln(w, "\nAnalysis complete, but no valid object structures were found.")
		return err
	}

	for _, key := range report.Keys {
		fmt.Fprintf(w, "\n## Key: '%s'\n", key.Key)
		fmt.Fprintf(w, "   - **Total Occurrences**: %d\n", key.Total)
		fmt.Fprintln(w, "   - **Type Distribution**:")
		for _, t := range key.Types {
			if _, err := fmt.Fprintf(w, "     - %-10s: %10d (%.2f%%)\n", t.Type, t.Count, t.Percent); err != nil {
				return err
			}
		}
	}
	return nil
}

// Package report formats benchmark results into per-variant tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/weiihann/transferoor/bench"
)

// sectionOrder fixes the presentation order of variants.
var sectionOrder = []struct {
	variant string
	title   string
}{
	{bench.VariantRaw, "Files"},
	{bench.VariantStream, "Streams"},
	{bench.VariantCompressed, "Compressed Streams"},
	{bench.VariantTable, "In-Memory Tables"},
}

// Generate writes markdown result tables for the given results, one
// section per round-trip variant, followed by any failures.
func Generate(w io.Writer, results []bench.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Transfer Benchmark Results")

	for _, section := range sectionOrder {
		rows := filter(results, section.variant)
		if len(rows) == 0 {
			continue
		}

		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", section.title)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Dataset | Format | Payload | Reps | Total "+
			"| Time/Byte | Mean | P99 |")
		fmt.Fprintln(w, "|---------|--------|---------|------|-------"+
			"|-----------|------|-----|")

		for _, r := range rows {
			fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s | %s | %s |\n",
				r.Dataset,
				r.Format,
				humanize.IBytes(uint64(r.PayloadBytes)),
				r.Reps,
				formatMs(r.ElapsedMs),
				formatPerByte(r.TimePerByteNs),
				formatFloatMs(r.MeanMs),
				formatFloatMs(r.P99Ms),
			)
		}
	}

	failures := filterFailed(results)
	if len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Failures")
		fmt.Fprintln(w)

		for _, r := range failures {
			fmt.Fprintf(w, "  - %s (%s): %s\n", r.Dataset, r.Variant, r.Error)
		}
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func filter(results []bench.Result, variant string) []bench.Result {
	out := make([]bench.Result, 0, len(results))

	for _, r := range results {
		if r.Variant == variant && !r.Failed() {
			out = append(out, r)
		}
	}

	return out
}

func filterFailed(results []bench.Result) []bench.Result {
	var out []bench.Result

	for _, r := range results {
		if r.Failed() {
			out = append(out, r)
		}
	}

	return out
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

func formatFloatMs(ms float64) string {
	if ms < 1 {
		return fmt.Sprintf("%.3fms", ms)
	}

	return fmt.Sprintf("%.2fms", ms)
}

func formatPerByte(ns float64) string {
	if ns == 0 {
		return "-"
	}

	if ns < 1000 {
		return fmt.Sprintf("%.2fns", ns)
	}

	return fmt.Sprintf("%.2fµs", ns/1000)
}

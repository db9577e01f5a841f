// Package datagen generates deterministic benchmark fixture files. The
// same seeded table of synthetic card transactions is written in every
// supported input format (CSV, JSON-lines, columnar stream) so round
// trips across formats transfer equivalent data.
package datagen

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/weiihann/transferoor/table"
)

var merchants = []string{
	"acme market", "corner deli", "transit", "fuel stop", "book nook",
	"cloud host", "hardware barn", "coffee cart", "pharmacy", "cinema",
}

var categories = []string{
	"groceries", "dining", "travel", "utilities", "entertainment",
}

// Config controls fixture generation parameters.
type Config struct {
	Rows     int
	HugeRows int // 0 disables the huge_ variants
	Seed     int64
}

// Summary reports what was generated.
type Summary struct {
	Files      []string
	Rows       int
	HugeRows   int
	TotalBytes int64
}

// Generator produces deterministic fixture tables from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Table generates a synthetic transaction table with the given number
// of rows.
func (g *Generator) Table(rows int) *table.Table {
	ids := make([]int64, rows)
	merchantCol := make([]string, rows)
	categoryCol := make([]string, rows)
	amounts := make([]float64, rows)
	timestamps := make([]int64, rows)

	ts := int64(1_600_000_000)

	for i := 0; i < rows; i++ {
		ids[i] = int64(i + 1)
		merchantCol[i] = merchants[g.rng.Intn(len(merchants))]
		categoryCol[i] = categories[g.rng.Intn(len(categories))]

		// Whole cents, so the decimal text round-trips exactly.
		cents := g.rng.Intn(500_00) + 1
		amounts[i] = math.Round(float64(cents)) / 100

		ts += int64(g.rng.Intn(600))
		timestamps[i] = ts
	}

	return &table.Table{Columns: []table.Column{
		{Name: "id", Type: table.Int64, Ints: ids},
		{Name: "merchant", Type: table.String, Strings: merchantCol},
		{Name: "category", Type: table.String, Strings: categoryCol},
		{Name: "amount", Type: table.Float64, Floats: amounts},
		{Name: "ts", Type: table.Int64, Ints: timestamps},
	}}
}

// WriteFiles writes test_data.{csv,json,tbl} under dir, plus huge_
// variants when HugeRows is set, and returns a Summary.
func (g *Generator) WriteFiles(dir string) (Summary, error) {
	var summary Summary

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return summary, fmt.Errorf("create fixture dir: %w", err)
	}

	summary.Rows = g.cfg.Rows
	summary.HugeRows = g.cfg.HugeRows

	tbl := g.Table(g.cfg.Rows)
	if err := g.writeSet(dir, "test_data", tbl, &summary); err != nil {
		return summary, err
	}

	if g.cfg.HugeRows > 0 {
		huge := g.Table(g.cfg.HugeRows)
		if err := g.writeSet(dir, "huge_test_data", huge, &summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (g *Generator) writeSet(
	dir, base string,
	tbl *table.Table,
	summary *Summary,
) error {
	writers := []struct {
		ext   string
		write func(*os.File, *table.Table) error
	}{
		{".csv", writeCSV},
		{".json", writeJSON},
		{".tbl", writeColumnar},
	}

	for _, w := range writers {
		path := filepath.Join(dir, base+w.ext)

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}

		if err := w.write(f, tbl); err != nil {
			f.Close()

			return fmt.Errorf("write %s: %w", path, err)
		}

		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		summary.Files = append(summary.Files, path)
		summary.TotalBytes += info.Size()
	}

	return nil
}

func writeCSV(f *os.File, tbl *table.Table) error {
	w := csv.NewWriter(f)

	if err := w.Write(tbl.ColumnNames()); err != nil {
		return err
	}

	record := make([]string, tbl.NumColumns())

	for row := 0; row < tbl.NumRows(); row++ {
		for col := range tbl.Columns {
			record[col] = cellText(&tbl.Columns[col], row)
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

func writeJSON(f *os.File, tbl *table.Table) error {
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for row := 0; row < tbl.NumRows(); row++ {
		rec := make(map[string]any, tbl.NumColumns())

		for col := range tbl.Columns {
			c := &tbl.Columns[col]

			switch c.Type {
			case table.Int64:
				rec[c.Name] = c.Ints[row]
			case table.Float64:
				rec[c.Name] = json.Number(
					strconv.FormatFloat(c.Floats[row], 'f', -1, 64))
			default:
				rec[c.Name] = c.Strings[row]
			}
		}

		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeColumnar(f *os.File, tbl *table.Table) error {
	bw := bufio.NewWriter(f)

	if err := table.WriteStream(bw, tbl); err != nil {
		return err
	}

	return bw.Flush()
}

func cellText(c *table.Column, row int) string {
	switch c.Type {
	case table.Int64:
		return strconv.FormatInt(c.Ints[row], 10)
	case table.Float64:
		return strconv.FormatFloat(c.Floats[row], 'f', -1, 64)
	default:
		return c.Strings[row]
	}
}

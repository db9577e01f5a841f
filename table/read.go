package table

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// ReadCSV parses a CSV file with a header row into a Table. Column
// types are inferred per column: int64 if every value parses as an
// integer, float64 if every value parses as a number, string otherwise.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: missing header row")
	}

	header := records[0]
	rows := records[1:]

	t := &Table{Columns: make([]Column, len(header))}

	for col, name := range header {
		values := make([]string, len(rows))
		for row := range rows {
			values[row] = rows[row][col]
		}

		t.Columns[col] = inferColumn(name, values)
	}

	return t, nil
}

// ReadCSVFile reads and parses path as CSV.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(bufio.NewReader(f))
}

// ReadJSON parses JSON-lines input (one flat object per line) into a
// Table. Column order follows the sorted key set of the first record;
// every record must carry the same keys.
func ReadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var names []string

	var records []map[string]any

	for {
		var rec map[string]any

		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("parse json record %d: %w", len(records)+1, err)
		}

		if names == nil {
			names = make([]string, 0, len(rec))
			for k := range rec {
				names = append(names, k)
			}

			sort.Strings(names)
		}

		if len(rec) != len(names) {
			return nil, fmt.Errorf(
				"json record %d has %d fields, want %d",
				len(records)+1, len(rec), len(names))
		}

		records = append(records, rec)
	}

	t := &Table{Columns: make([]Column, len(names))}

	for col, name := range names {
		values := make([]string, len(records))

		for row, rec := range records {
			v, ok := rec[name]
			if !ok {
				return nil, fmt.Errorf(
					"json record %d missing field %q", row+1, name)
			}

			values[row] = jsonScalar(v)
		}

		t.Columns[col] = inferColumn(name, values)
	}

	return t, nil
}

// ReadJSONFile reads and parses path as JSON-lines.
func ReadJSONFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadJSON(bufio.NewReader(f))
}

// ReadColumnarFile reads a canonical-stream file from disk. This is
// the on-disk pre-serialized format; its bytes are identical to what
// WriteStream produces for the same table.
func ReadColumnarFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadStream(bufio.NewReader(f))
}

func jsonScalar(v any) string {
	switch x := v.(type) {
	case json.Number:
		return x.String()
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		// Nested values are kept as their JSON text.
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}

		return string(raw)
	}
}

func inferColumn(name string, values []string) Column {
	allInt := true
	allFloat := true

	for _, v := range values {
		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}

		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}

		if !allInt && !allFloat {
			break
		}
	}

	switch {
	case allInt && len(values) > 0:
		ints := make([]int64, len(values))
		for i, v := range values {
			ints[i], _ = strconv.ParseInt(v, 10, 64)
		}

		return Column{Name: name, Type: Int64, Ints: ints}

	case allFloat && len(values) > 0:
		floats := make([]float64, len(values))
		for i, v := range values {
			floats[i], _ = strconv.ParseFloat(v, 64)
		}

		return Column{Name: name, Type: Float64, Floats: floats}

	default:
		return Column{Name: name, Type: String, Strings: values}
	}
}

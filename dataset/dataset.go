// Package dataset turns input files into benchmark fixtures. Each
// Dataset knows its on-disk size, its parsed tabular form, and the
// exact size of that table in the canonical stream format, so round
// trips can allocate size-matched store objects up front.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/weiihann/transferoor/table"
)

// Format identifies the on-disk encoding of an input file.
type Format uint8

const (
	CSV Format = iota
	JSON
	Columnar
)

func (f Format) String() string {
	switch f {
	case CSV:
		return "CSV"
	case JSON:
		return "JSON"
	case Columnar:
		return "COLUMNAR"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// UnsupportedFormatError reports a file whose extension maps to no
// known format. Such files never reach the timing code.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q for %s", e.Ext, e.Path)
}

// DetectFormat infers the Format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".json":
		return JSON, nil
	case ".tbl":
		return Columnar, nil
	default:
		return 0, &UnsupportedFormatError{
			Path: path,
			Ext:  filepath.Ext(path),
		}
	}
}

// HugePrefix marks fixture files that are large enough to merit a
// reduced repetition count (and to be skipped with --omit-huge).
const HugePrefix = "huge_"

// Dataset is one input file prepared for benchmarking.
type Dataset struct {
	Path    string
	OutPath string
	Name    string
	Format  Format
	Huge    bool

	// FileBytes is the size of the file on disk; raw and stream round
	// trips transfer exactly this many bytes.
	FileBytes int64

	// TableBytes is the size of the parsed table in the canonical
	// stream format, probed once via a counting sink.
	TableBytes int

	tbl  *table.Table
	file *os.File // lazily opened raw handle, reused across reps
}

// New builds a Dataset for path, writing round-trip output files under
// outDir. The file is parsed eagerly so that timing loops only measure
// transfer work.
func New(path, outDir string) (*Dataset, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var tbl *table.Table

	switch format {
	case CSV:
		tbl, err = table.ReadCSVFile(path)
	case JSON:
		tbl, err = table.ReadJSONFile(path)
	case Columnar:
		tbl, err = table.ReadColumnarFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	tableBytes, err := table.StreamSize(tbl)
	if err != nil {
		return nil, fmt.Errorf("probe serialized size of %s: %w", path, err)
	}

	name := filepath.Base(path)
	ext := filepath.Ext(name)
	outName := strings.TrimSuffix(name, ext) + "_out" + ext

	return &Dataset{
		Path:       path,
		OutPath:    filepath.Join(outDir, outName),
		Name:       name,
		Format:     format,
		Huge:       strings.HasPrefix(name, HugePrefix),
		FileBytes:  info.Size(),
		TableBytes: tableBytes,
		tbl:        tbl,
	}, nil
}

// SupportsRaw reports whether the whole-file round trip applies.
// Columnar files only go through the stream and table paths.
func (d *Dataset) SupportsRaw() bool {
	return d.Format == CSV || d.Format == JSON
}

// Table returns the parsed table, cached since construction.
func (d *Dataset) Table() *table.Table {
	return d.tbl
}

// File returns the raw input handle, opening it on first use and
// rewinding it on every call so repeated round trips read the whole
// file each time.
func (d *Dataset) File() (*os.File, error) {
	if d.file == nil {
		f, err := os.Open(d.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", d.Path, err)
		}

		d.file = f

		return f, nil
	}

	if _, err := d.file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", d.Path, err)
	}

	return d.file, nil
}

// Close releases the raw input handle, if open.
func (d *Dataset) Close() error {
	if d.file == nil {
		return nil
	}

	err := d.file.Close()
	d.file = nil

	return err
}

// LoadDir builds a Dataset for every supported file in dir, sorted by
// name. Files with unsupported extensions are logged and skipped; the
// run continues without them.
func LoadDir(logger *slog.Logger, dir, outDir string) ([]*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir %s: %w", dir, err)
	}

	datasets := make([]*Dataset, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		ds, err := New(path, outDir)
		if err != nil {
			var unsupported *UnsupportedFormatError
			if errors.As(err, &unsupported) {
				logger.Warn("skipping unsupported file",
					slog.String("path", path),
					slog.String("ext", unsupported.Ext),
				)

				continue
			}

			return nil, err
		}

		datasets = append(datasets, ds)
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Name < datasets[j].Name
	})

	return datasets, nil
}

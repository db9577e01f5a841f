// Package bench implements the round-trip transfer benchmark: it owns
// a connected store client and, for each dataset, times repeated
// write-seal-read cycles through the store in several variants (whole
// file, streamed, compressed, in-memory table).
package bench

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/readahead"
	"github.com/pierrec/lz4/v4"

	"github.com/weiihann/transferoor/dataset"
	"github.com/weiihann/transferoor/store"
	"github.com/weiihann/transferoor/table"
)

// ErrRawUnsupported is returned by RoundTripRaw for formats without a
// direct byte-level file path (columnar files).
var ErrRawUnsupported = errors.New("raw round trip not supported for this format")

// SizeMismatchError reports that the number of bytes read back from
// the store differs from the number written. It is a correctness
// failure, never ignored.
type SizeMismatchError struct {
	Op   string
	Want int64
	Got  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: size mismatch: wrote %d bytes, read %d",
		e.Op, e.Want, e.Got)
}

// streamChunkSize is the buffer size for readahead in the streaming
// round trip.
const streamChunkSize = 1 << 20

// Benchmark performs round trips against a single store client. It is
// single-threaded: each round trip runs to completion before the next
// begins.
type Benchmark struct {
	client store.Client
	logger *slog.Logger
}

// New creates a Benchmark over an already-connected client.
func New(client store.Client, logger *slog.Logger) *Benchmark {
	return &Benchmark{client: client, logger: logger}
}

// CheckConnection puts a probe value into the store and reads it back,
// verifying the store answers correctly before any timing starts.
func (b *Benchmark) CheckConnection() error {
	probe := []byte("testing")

	id, err := b.client.Put(probe)
	if err != nil {
		return fmt.Errorf("connection check: put: %w", err)
	}

	got, err := b.client.Get(id)
	if err != nil {
		return fmt.Errorf("connection check: get: %w", err)
	}

	if !bytes.Equal(got, probe) {
		return fmt.Errorf("connection check: got %q back, want %q", got, probe)
	}

	return nil
}

// RoundTripRaw reads the whole input file into memory, writes it into
// a freshly created store object, seals it, reads the sealed buffer
// back, and writes it to the dataset's output path. The output file is
// byte-for-byte identical to the input on success.
func (b *Benchmark) RoundTripRaw(ds *dataset.Dataset) error {
	if !ds.SupportsRaw() {
		return fmt.Errorf("%s: %w", ds.Name, ErrRawUnsupported)
	}

	f, err := ds.File()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", ds.Path, err)
	}

	id := store.RandomID()

	buf, err := b.client.Create(id, len(data))
	if err != nil {
		return err
	}

	copy(buf, data)

	if err := b.client.Seal(id); err != nil {
		return err
	}

	out, err := b.client.Get(id)
	if err != nil {
		return err
	}

	if int64(len(out)) != int64(len(data)) {
		return &SizeMismatchError{
			Op:   "roundtrip raw " + ds.Name,
			Want: int64(len(data)),
			Got:  int64(len(out)),
		}
	}

	if err := os.WriteFile(ds.OutPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ds.OutPath, err)
	}

	return nil
}

// RoundTripStream has the same contract as RoundTripRaw but streams
// the input through a readahead reader directly into the pre-sized
// store buffer instead of materializing the file first. It applies to
// all formats, columnar included.
func (b *Benchmark) RoundTripStream(ds *dataset.Dataset) error {
	f, err := ds.File()
	if err != nil {
		return err
	}

	ra, err := readahead.NewReaderSize(f, 4, streamChunkSize)
	if err != nil {
		return fmt.Errorf("readahead %s: %w", ds.Path, err)
	}
	defer ra.Close()

	id := store.RandomID()

	buf, err := b.client.Create(id, int(ds.FileBytes))
	if err != nil {
		return err
	}

	n, err := io.ReadFull(ra, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		// The file ended short of its recorded size; report it as a
		// correctness failure rather than a read failure.
		return &SizeMismatchError{
			Op:   "roundtrip stream " + ds.Name,
			Want: ds.FileBytes,
			Got:  int64(n),
		}
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", ds.Path, err)
	}

	if err := b.client.Seal(id); err != nil {
		return err
	}

	out, err := b.client.Get(id)
	if err != nil {
		return err
	}

	if int64(len(out)) != ds.FileBytes {
		return &SizeMismatchError{
			Op:   "roundtrip stream " + ds.Name,
			Want: ds.FileBytes,
			Got:  int64(len(out)),
		}
	}

	outFile, err := os.Create(ds.OutPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", ds.OutPath, err)
	}

	w := bufio.NewWriterSize(outFile, streamChunkSize)

	if _, err := w.Write(out); err != nil {
		outFile.Close()

		return fmt.Errorf("write %s: %w", ds.OutPath, err)
	}

	if err := w.Flush(); err != nil {
		outFile.Close()

		return fmt.Errorf("flush %s: %w", ds.OutPath, err)
	}

	return outFile.Close()
}

// RoundTripCompressed compresses the payload with lz4 on the way into
// the store and decompresses it on the way out. The output file is
// still byte-identical to the input; the store object holds the
// compressed frame.
func (b *Benchmark) RoundTripCompressed(ds *dataset.Dataset) error {
	f, err := ds.File()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", ds.Path, err)
	}

	var compressed bytes.Buffer

	zw := lz4.NewWriter(&compressed)

	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compress %s: %w", ds.Name, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", ds.Name, err)
	}

	id := store.RandomID()

	buf, err := b.client.Create(id, compressed.Len())
	if err != nil {
		return err
	}

	copy(buf, compressed.Bytes())

	if err := b.client.Seal(id); err != nil {
		return err
	}

	out, err := b.client.Get(id)
	if err != nil {
		return err
	}

	outFile, err := os.Create(ds.OutPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", ds.OutPath, err)
	}

	zr := lz4.NewReader(bytes.NewReader(out))

	n, err := io.Copy(outFile, zr)
	if err != nil {
		outFile.Close()

		return fmt.Errorf("decompress %s: %w", ds.Name, err)
	}

	if n != int64(len(data)) {
		outFile.Close()

		return &SizeMismatchError{
			Op:   "roundtrip compressed " + ds.Name,
			Want: int64(len(data)),
			Got:  n,
		}
	}

	return outFile.Close()
}

// RoundTripTable serializes the dataset's cached table into a store
// buffer sized by the serialized-size probe, seals it, reads it back,
// and deserializes, verifying the table reconstructs with the same
// shape and column names. No file is written.
func (b *Benchmark) RoundTripTable(ds *dataset.Dataset) error {
	tbl := ds.Table()
	id := store.RandomID()

	buf, err := b.client.Create(id, ds.TableBytes)
	if err != nil {
		return err
	}

	fw := table.NewFixedWriter(buf)

	if err := table.WriteStream(fw, tbl); err != nil {
		return fmt.Errorf("serialize %s: %w", ds.Name, err)
	}

	if fw.Size() != ds.TableBytes {
		return &SizeMismatchError{
			Op:   "roundtrip table " + ds.Name,
			Want: int64(ds.TableBytes),
			Got:  int64(fw.Size()),
		}
	}

	if err := b.client.Seal(id); err != nil {
		return err
	}

	out, err := b.client.Get(id)
	if err != nil {
		return err
	}

	got, err := table.ReadStream(bytes.NewReader(out))
	if err != nil {
		return fmt.Errorf("deserialize %s: %w", ds.Name, err)
	}

	if got.NumRows() != tbl.NumRows() || got.NumColumns() != tbl.NumColumns() {
		return fmt.Errorf(
			"table %s reconstructed as %dx%d, want %dx%d",
			ds.Name, got.NumRows(), got.NumColumns(),
			tbl.NumRows(), tbl.NumColumns())
	}

	for i, name := range got.ColumnNames() {
		if want := tbl.Columns[i].Name; name != want {
			return fmt.Errorf(
				"table %s column %d reconstructed as %q, want %q",
				ds.Name, i, name, want)
		}
	}

	return nil
}

package bench

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weiihann/transferoor/dataset"
	"github.com/weiihann/transferoor/store"
	"github.com/weiihann/transferoor/table"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureCSV is exactly 100 bytes.
var fixtureCSV = "id,name\n1," + strings.Repeat("x", 89) + "\n"

func newFixture(t *testing.T, name, content string) *dataset.Dataset {
	t.Helper()

	inDir := t.TempDir()
	outDir := t.TempDir()

	path := filepath.Join(inDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ds, err := dataset.New(path, outDir)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}

	t.Cleanup(func() { ds.Close() })

	return ds
}

func newBench(t *testing.T) *Benchmark {
	t.Helper()

	return New(store.NewMemStore(), discardLogger())
}

func TestFixtureCSVIs100Bytes(t *testing.T) {
	if len(fixtureCSV) != 100 {
		t.Fatalf("fixture is %d bytes, want 100", len(fixtureCSV))
	}
}

func TestRoundTripRawByteIdentity(t *testing.T) {
	b := newBench(t)
	ds := newFixture(t, "test_data.csv", fixtureCSV)

	if err := b.RoundTripRaw(ds); err != nil {
		t.Fatalf("RoundTripRaw failed: %v", err)
	}

	out, err := os.ReadFile(ds.OutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	if len(out) != 100 {
		t.Errorf("output is %d bytes, want 100", len(out))
	}

	if string(out) != fixtureCSV {
		t.Error("output differs from input")
	}
}

func TestRoundTripStreamMatchesRaw(t *testing.T) {
	b := newBench(t)
	ds := newFixture(t, "test_data.json",
		`{"id": 1, "v": "alpha"}`+"\n"+`{"id": 2, "v": "beta"}`+"\n")

	if err := b.RoundTripRaw(ds); err != nil {
		t.Fatalf("RoundTripRaw failed: %v", err)
	}

	rawOut, err := os.ReadFile(ds.OutPath)
	if err != nil {
		t.Fatalf("read raw output: %v", err)
	}

	if err := b.RoundTripStream(ds); err != nil {
		t.Fatalf("RoundTripStream failed: %v", err)
	}

	streamOut, err := os.ReadFile(ds.OutPath)
	if err != nil {
		t.Fatalf("read stream output: %v", err)
	}

	if !bytes.Equal(rawOut, streamOut) {
		t.Error("stream output differs from raw output")
	}
}

func TestRoundTripRawColumnarRejected(t *testing.T) {
	b := newBench(t)
	ds := columnarFixture(t)

	if err := b.RoundTripRaw(ds); !errors.Is(err, ErrRawUnsupported) {
		t.Errorf("err = %v, want ErrRawUnsupported", err)
	}
}

func TestRoundTripStreamColumnar(t *testing.T) {
	b := newBench(t)
	ds := columnarFixture(t)

	if err := b.RoundTripStream(ds); err != nil {
		t.Fatalf("RoundTripStream failed: %v", err)
	}

	in, err := os.ReadFile(ds.Path)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}

	out, err := os.ReadFile(ds.OutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	if !bytes.Equal(in, out) {
		t.Error("output differs from input")
	}
}

func TestRoundTripCompressedIdentity(t *testing.T) {
	b := newBench(t)
	ds := newFixture(t, "test_data.csv", fixtureCSV)

	if err := b.RoundTripCompressed(ds); err != nil {
		t.Fatalf("RoundTripCompressed failed: %v", err)
	}

	out, err := os.ReadFile(ds.OutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	if string(out) != fixtureCSV {
		t.Error("output differs from input after compress round trip")
	}
}

func TestRoundTripTable(t *testing.T) {
	b := newBench(t)
	ds := newFixture(t, "test_data.csv", fixtureCSV)

	if err := b.RoundTripTable(ds); err != nil {
		t.Fatalf("RoundTripTable failed: %v", err)
	}

	// The table path writes no output file.
	if _, err := os.Stat(ds.OutPath); !os.IsNotExist(err) {
		t.Errorf("table round trip wrote %s", ds.OutPath)
	}
}

func TestRoundTripStreamSizeMismatch(t *testing.T) {
	b := newBench(t)
	ds := newFixture(t, "test_data.csv", fixtureCSV)

	// Shrink the input behind the dataset's back so the recorded size
	// no longer matches what the stream can deliver.
	if err := os.Truncate(ds.Path, 20); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	err := b.RoundTripStream(ds)

	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *SizeMismatchError", err)
	}

	if mismatch.Want != 100 || mismatch.Got != 20 {
		t.Errorf("mismatch = %d/%d, want 100/20",
			mismatch.Want, mismatch.Got)
	}
}

func TestRoundTripTableSizeMismatch(t *testing.T) {
	b := newBench(t)
	ds := newFixture(t, "test_data.csv", fixtureCSV)

	// Skew the probed size so the serialized table no longer fills the
	// store buffer exactly.
	ds.TableBytes += 8

	err := b.RoundTripTable(ds)

	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *SizeMismatchError", err)
	}

	if mismatch.Got >= mismatch.Want {
		t.Errorf("mismatch = %d/%d, want fewer bytes written than probed",
			mismatch.Want, mismatch.Got)
	}
}

func TestCheckConnection(t *testing.T) {
	b := newBench(t)

	if err := b.CheckConnection(); err != nil {
		t.Fatalf("CheckConnection failed: %v", err)
	}
}

// countingClient wraps a Client and counts creates and seals.
type countingClient struct {
	store.Client
	creates int
	seals   int
}

func (c *countingClient) Create(id store.ObjectID, size int) ([]byte, error) {
	c.creates++

	return c.Client.Create(id, size)
}

func (c *countingClient) Seal(id store.ObjectID) error {
	c.seals++

	return c.Client.Seal(id)
}

func TestMeasureCreatesOneObjectPerCall(t *testing.T) {
	counter := &countingClient{Client: store.NewMemStore()}
	b := New(counter, discardLogger())
	ds := newFixture(t, "test_data.csv", fixtureCSV)

	op := func() error { return b.RoundTripRaw(ds) }

	if _, err := Measure(op, 5, 2); err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if counter.creates != 7 {
		t.Errorf("creates = %d, want 7 (5 reps + 2 warmups)", counter.creates)
	}
	if counter.seals != 7 {
		t.Errorf("seals = %d, want 7 (5 reps + 2 warmups)", counter.seals)
	}
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	client := store.NewMemStore()
	b := New(client, discardLogger())

	good := newFixture(t, "good.csv", fixtureCSV)
	bad := newFixture(t, "bad.csv", fixtureCSV)

	// Break the bad dataset's input after construction so its round
	// trips fail mid-run.
	if err := bad.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := os.Remove(bad.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	results := b.Run([]*dataset.Dataset{bad, good}, Options{
		Reps:    2,
		Warmups: 1,
	})

	var failed, succeeded int

	for _, r := range results {
		if r.Failed() {
			failed++
		} else {
			succeeded++
		}
	}

	if failed == 0 {
		t.Error("expected failed rows for the broken dataset")
	}

	if succeeded == 0 {
		t.Error("expected the good dataset to keep running")
	}

	for _, r := range results {
		if r.Dataset == "good.csv" && r.Failed() {
			t.Errorf("good dataset failed: %s", r.Error)
		}
	}
}

func TestRunOmitsHuge(t *testing.T) {
	b := newBench(t)

	regular := newFixture(t, "test_data.csv", fixtureCSV)
	huge := newFixture(t, "huge_test_data.csv", fixtureCSV)

	results := b.Run([]*dataset.Dataset{regular, huge}, Options{
		Reps:     1,
		OmitHuge: true,
	})

	for _, r := range results {
		if strings.HasPrefix(r.Dataset, "huge_") {
			t.Errorf("huge dataset %s was not omitted", r.Dataset)
		}
	}
}

func TestRunHugeUsesSingleRep(t *testing.T) {
	b := newBench(t)
	huge := newFixture(t, "huge_test_data.csv", fixtureCSV)

	results := b.Run([]*dataset.Dataset{huge}, Options{
		Reps:    50,
		Warmups: 10,
	})

	if len(results) == 0 {
		t.Fatal("no results")
	}

	for _, r := range results {
		if r.Reps != 1 {
			t.Errorf("%s %s: reps = %d, want 1", r.Dataset, r.Variant, r.Reps)
		}
	}
}

func columnarFixture(t *testing.T) *dataset.Dataset {
	t.Helper()

	inDir := t.TempDir()
	outDir := t.TempDir()

	tbl := &table.Table{Columns: []table.Column{
		{Name: "id", Type: table.Int64, Ints: []int64{1, 2, 3}},
		{Name: "v", Type: table.String, Strings: []string{"a", "b", "c"}},
	}}

	path := filepath.Join(inDir, "test_data.tbl")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create .tbl: %v", err)
	}

	if err := table.WriteStream(f, tbl); err != nil {
		t.Fatalf("write .tbl: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close .tbl: %v", err)
	}

	ds, err := dataset.New(path, outDir)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}

	t.Cleanup(func() { ds.Close() })

	return ds
}

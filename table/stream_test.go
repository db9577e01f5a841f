package table

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func sampleTable() *Table {
	return &Table{Columns: []Column{
		{Name: "id", Type: Int64, Ints: []int64{1, 2, 3}},
		{Name: "score", Type: Float64, Floats: []float64{0.5, -1.25, 42}},
		{Name: "name", Type: String, Strings: []string{"a", "", "hello world"}},
	}}
}

func TestStreamRoundTrip(t *testing.T) {
	want := sampleTable()

	var buf bytes.Buffer
	if err := WriteStream(&buf, want); err != nil {
		t.Fatalf("WriteStream failed: %v", err)
	}

	got, err := ReadStream(&buf)
	if err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestStreamRoundTripEmpty(t *testing.T) {
	want := &Table{Columns: []Column{
		{Name: "id", Type: Int64, Ints: []int64{}},
		{Name: "name", Type: String, Strings: []string{}},
	}}

	var buf bytes.Buffer
	if err := WriteStream(&buf, want); err != nil {
		t.Fatalf("WriteStream failed: %v", err)
	}

	got, err := ReadStream(&buf)
	if err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}

	if got.NumRows() != 0 {
		t.Errorf("rows = %d, want 0", got.NumRows())
	}
	if got.NumColumns() != 2 {
		t.Errorf("columns = %d, want 2", got.NumColumns())
	}
}

func TestStreamSizeMatchesOutput(t *testing.T) {
	tbl := sampleTable()

	size, err := StreamSize(tbl)
	if err != nil {
		t.Fatalf("StreamSize failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStream(&buf, tbl); err != nil {
		t.Fatalf("WriteStream failed: %v", err)
	}

	if size != buf.Len() {
		t.Errorf("StreamSize = %d, actual output = %d", size, buf.Len())
	}
}

func TestReadStreamBadMagic(t *testing.T) {
	_, err := ReadStream(strings.NewReader("NOTATBL0 more bytes here"))
	if err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestReadStreamTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStream(&buf, sampleTable()); err != nil {
		t.Fatalf("WriteStream failed: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-5]

	if _, err := ReadStream(bytes.NewReader(truncated)); err == nil {
		t.Error("expected error for truncated stream")
	}
}

func TestReadStreamHugeColumnCount(t *testing.T) {
	// A header claiming 2^32-1 columns on a tiny input must be
	// rejected before any large allocation happens.
	var buf bytes.Buffer
	buf.Write(streamMagic[:])
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	if _, err := ReadStream(&buf); err == nil {
		t.Error("expected error for absurd column count")
	}
}

func TestReadStreamHugeRowCount(t *testing.T) {
	// A valid-looking header whose row count far exceeds the actual
	// data must fail cheaply instead of allocating the claimed size.
	var buf bytes.Buffer
	buf.Write(streamMagic[:])
	buf.Write([]byte{1, 0, 0, 0})             // one column
	buf.Write([]byte{2, 0})                   // name length 2
	buf.WriteString("id")                     // name
	buf.Write([]byte{byte(Int64)})            // type
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF}) // 2^32-1 rows
	buf.WriteString("only a few data bytes")

	if _, err := ReadStream(&buf); err == nil {
		t.Error("expected error for row count exceeding input")
	}
}

func TestWriteStreamRaggedColumns(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "a", Type: Int64, Ints: []int64{1, 2}},
		{Name: "b", Type: Int64, Ints: []int64{1}},
	}}

	var buf bytes.Buffer
	if err := WriteStream(&buf, tbl); err == nil {
		t.Error("expected error for ragged columns")
	}
}

func TestFixedWriter(t *testing.T) {
	buf := make([]byte, 5)
	w := NewFixedWriter(buf)

	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := w.Write([]byte("de")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if w.Size() != 5 {
		t.Errorf("size = %d, want 5", w.Size())
	}

	if string(buf) != "abcde" {
		t.Errorf("buffer = %q, want abcde", buf)
	}

	if _, err := w.Write([]byte("f")); err == nil {
		t.Error("expected overflow error")
	}
}

func TestCountingWriter(t *testing.T) {
	var w CountingWriter

	for _, chunk := range []string{"abc", "", "defgh"} {
		n, err := w.Write([]byte(chunk))
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if n != len(chunk) {
			t.Errorf("n = %d, want %d", n, len(chunk))
		}
	}

	if w.Size() != 8 {
		t.Errorf("size = %d, want 8", w.Size())
	}
}

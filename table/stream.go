package table

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// streamMagic opens every canonical table stream.
var streamMagic = [8]byte{'T', 'R', 'O', 'T', 'B', 'L', '0', '1'}

// WriteStream serializes t to the canonical stream format: magic,
// column count, per-column name and type, row count, then the column
// data back to back. Numeric columns are fixed-width little-endian;
// string columns carry an offsets vector followed by the packed bytes.
func WriteStream(w io.Writer, t *Table) error {
	if err := t.validate(); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}

	if _, err := w.Write(streamMagic[:]); err != nil {
		return fmt.Errorf("write stream magic: %w", err)
	}

	if err := writeUint32(w, uint32(len(t.Columns))); err != nil {
		return err
	}

	for i := range t.Columns {
		c := &t.Columns[i]

		if len(c.Name) > math.MaxUint16 {
			return fmt.Errorf("write stream: column name too long (%d bytes)",
				len(c.Name))
		}

		if err := writeUint16(w, uint16(len(c.Name))); err != nil {
			return err
		}

		if _, err := io.WriteString(w, c.Name); err != nil {
			return fmt.Errorf("write column name: %w", err)
		}

		if _, err := w.Write([]byte{byte(c.Type)}); err != nil {
			return fmt.Errorf("write column type: %w", err)
		}
	}

	if err := writeUint32(w, uint32(t.NumRows())); err != nil {
		return err
	}

	for i := range t.Columns {
		if err := writeColumnData(w, &t.Columns[i]); err != nil {
			return fmt.Errorf("write column %q: %w", t.Columns[i].Name, err)
		}
	}

	return nil
}

func writeColumnData(w io.Writer, c *Column) error {
	switch c.Type {
	case Int64:
		buf := make([]byte, 8*len(c.Ints))
		for i, v := range c.Ints {
			binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
		}

		_, err := w.Write(buf)

		return err

	case Float64:
		buf := make([]byte, 8*len(c.Floats))
		for i, v := range c.Floats {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}

		_, err := w.Write(buf)

		return err

	case String:
		offsets := make([]byte, 4*(len(c.Strings)+1))
		total := uint32(0)

		for i, s := range c.Strings {
			binary.LittleEndian.PutUint32(offsets[4*i:], total)
			total += uint32(len(s))
		}

		binary.LittleEndian.PutUint32(offsets[4*len(c.Strings):], total)

		if _, err := w.Write(offsets); err != nil {
			return err
		}

		for _, s := range c.Strings {
			if _, err := io.WriteString(w, s); err != nil {
				return err
			}
		}

		return nil

	default:
		return fmt.Errorf("unknown column type %v", c.Type)
	}
}

// ReadStream deserializes a table from the canonical stream format.
func ReadStream(r io.Reader) (*Table, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read stream magic: %w", err)
	}

	if magic != streamMagic {
		return nil, fmt.Errorf("bad stream magic %q", magic[:])
	}

	ncols, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	if ncols > maxStreamColumns {
		return nil, fmt.Errorf("stream declares %d columns, limit is %d",
			ncols, maxStreamColumns)
	}

	t := &Table{Columns: make([]Column, ncols)}

	for i := range t.Columns {
		nameLen, err := readUint16(r)
		if err != nil {
			return nil, err
		}

		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("read column name: %w", err)
		}

		var typ [1]byte
		if _, err := io.ReadFull(r, typ[:]); err != nil {
			return nil, fmt.Errorf("read column type: %w", err)
		}

		if typ[0] > byte(String) {
			return nil, fmt.Errorf("unknown column type %d", typ[0])
		}

		t.Columns[i].Name = string(name)
		t.Columns[i].Type = ColumnType(typ[0])
	}

	nrows, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	for i := range t.Columns {
		if err := readColumnData(r, &t.Columns[i], int(nrows)); err != nil {
			return nil, fmt.Errorf("read column %q: %w", t.Columns[i].Name, err)
		}
	}

	return t, nil
}

func readColumnData(r io.Reader, c *Column, nrows int) error {
	switch c.Type {
	case Int64:
		buf, err := readExact(r, 8*nrows)
		if err != nil {
			return err
		}

		c.Ints = make([]int64, nrows)
		for i := range c.Ints {
			c.Ints[i] = int64(binary.LittleEndian.Uint64(buf[8*i:]))
		}

		return nil

	case Float64:
		buf, err := readExact(r, 8*nrows)
		if err != nil {
			return err
		}

		c.Floats = make([]float64, nrows)
		for i := range c.Floats {
			c.Floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
		}

		return nil

	case String:
		offsets, err := readExact(r, 4*(nrows+1))
		if err != nil {
			return err
		}

		total := binary.LittleEndian.Uint32(offsets[4*nrows:])

		data, err := readExact(r, int(total))
		if err != nil {
			return err
		}

		c.Strings = make([]string, nrows)

		for i := range c.Strings {
			start := binary.LittleEndian.Uint32(offsets[4*i:])
			end := binary.LittleEndian.Uint32(offsets[4*(i+1):])

			if start > end || end > total {
				return fmt.Errorf("corrupt string offsets at row %d", i)
			}

			c.Strings[i] = string(data[start:end])
		}

		return nil

	default:
		return fmt.Errorf("unknown column type %v", c.Type)
	}
}

// maxStreamColumns bounds the column count a stream header may
// declare, so a corrupt header cannot drive a huge allocation.
const maxStreamColumns = 1 << 16

// readExact reads exactly n bytes from r, growing the buffer in
// bounded chunks. Allocation tracks the bytes actually present, so a
// corrupt length field on truncated input fails cheaply instead of
// pre-allocating the claimed size.
func readExact(r io.Reader, n int) ([]byte, error) {
	const chunk = 1 << 22

	buf := make([]byte, 0, min(n, chunk))

	for len(buf) < n {
		m := min(n-len(buf), chunk)
		start := len(buf)
		buf = append(buf, make([]byte, m)...)

		nr, err := io.ReadFull(r, buf[start:])
		if err != nil {
			return nil, fmt.Errorf(
				"truncated input: want %d bytes, got %d: %w", n, start+nr, err)
		}
	}

	return buf, nil
}

// StreamSize returns the exact number of bytes WriteStream would
// produce for t, computed by serializing into a counting sink without
// materializing the payload.
func StreamSize(t *Table) (int, error) {
	var sink CountingWriter
	if err := WriteStream(&sink, t); err != nil {
		return 0, err
	}

	return sink.Size(), nil
}

// CountingWriter is an io.Writer that discards its input and counts
// bytes. It serves as the size-probing sink for StreamSize.
type CountingWriter struct {
	n int
}

func (w *CountingWriter) Write(p []byte) (int, error) {
	w.n += len(p)

	return len(p), nil
}

// Size returns the number of bytes written so far.
func (w *CountingWriter) Size() int { return w.n }

// FixedWriter writes into a caller-supplied buffer and fails when a
// write would overflow it. It backs serialization into size-matched
// store buffers.
type FixedWriter struct {
	buf []byte
	n   int
}

// NewFixedWriter returns a FixedWriter over buf.
func NewFixedWriter(buf []byte) *FixedWriter {
	return &FixedWriter{buf: buf}
}

func (w *FixedWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > len(w.buf) {
		return 0, fmt.Errorf("fixed buffer overflow: %d + %d > %d",
			w.n, len(p), len(w.buf))
	}

	copy(w.buf[w.n:], p)
	w.n += len(p)

	return len(p), nil
}

// Size returns the number of bytes written so far.
func (w *FixedWriter) Size() int { return w.n }

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write uint16: %w", err)
	}

	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write uint32: %w", err)
	}

	return nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read uint16: %w", err)
	}

	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}

	return binary.LittleEndian.Uint32(buf[:]), nil
}

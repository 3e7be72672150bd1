package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// chunkSize bounds the scratch buffer used for slice encoding.
const chunkSize = 16 * 1024

// Writer writes fixed-width little-endian values and counts the bytes written.
type Writer struct {
	w   io.Writer
	buf []byte
	n   int64
}

// NewWriter creates a new binary writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, buf: make([]byte, 8)}
}

// BytesWritten returns the number of bytes written so far.
func (bw *Writer) BytesWritten() int64 {
	return bw.n
}

func (bw *Writer) write(p []byte) error {
	n, err := bw.w.Write(p)
	bw.n += int64(n)
	return err
}

// WriteInt32 writes a 4-byte signed integer.
func (bw *Writer) WriteInt32(v int32) error {
	binary.LittleEndian.PutUint32(bw.buf[:4], uint32(v))
	return bw.write(bw.buf[:4])
}

// WriteUint32 writes a 4-byte unsigned integer.
func (bw *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(bw.buf[:4], v)
	return bw.write(bw.buf[:4])
}

// WriteUint64 writes an 8-byte unsigned integer.
func (bw *Writer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(bw.buf[:8], v)
	return bw.write(bw.buf[:8])
}

// WriteFloat32Slice writes the IEEE-754 bits of each element.
func (bw *Writer) WriteFloat32Slice(vec []float32) error {
	for len(vec) > 0 {
		n := min(len(vec), chunkSize/4)
		buf := bw.scratch(n * 4)
		for i, f := range vec[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		if err := bw.write(buf); err != nil {
			return err
		}
		vec = vec[n:]
	}
	return nil
}

// WriteUint32Slice writes each element as a 4-byte integer.
func (bw *Writer) WriteUint32Slice(s []uint32) error {
	for len(s) > 0 {
		n := min(len(s), chunkSize/4)
		buf := bw.scratch(n * 4)
		for i, v := range s[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], v)
		}
		if err := bw.write(buf); err != nil {
			return err
		}
		s = s[n:]
	}
	return nil
}

func (bw *Writer) scratch(n int) []byte {
	if cap(bw.buf) < n {
		bw.buf = make([]byte, chunkSize)
	}
	return bw.buf[:n]
}

// Reader reads values written by Writer. Any short read is reported as
// ErrTruncated.
type Reader struct {
	r   io.Reader
	buf []byte
	n   int64
}

// NewReader creates a new binary reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, 8)}
}

// BytesRead returns the number of bytes consumed so far.
func (br *Reader) BytesRead() int64 {
	return br.n
}

func (br *Reader) readFull(p []byte) error {
	n, err := io.ReadFull(br.r, p)
	br.n += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %w", ErrTruncated, io.ErrUnexpectedEOF)
		}
		return err
	}
	return nil
}

// ReadInt32 reads a 4-byte signed integer.
func (br *Reader) ReadInt32() (int32, error) {
	if err := br.readFull(br.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(br.buf[:4])), nil
}

// ReadUint32 reads a 4-byte unsigned integer.
func (br *Reader) ReadUint32() (uint32, error) {
	if err := br.readFull(br.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(br.buf[:4]), nil
}

// ReadUint64 reads an 8-byte unsigned integer.
func (br *Reader) ReadUint64() (uint64, error) {
	if err := br.readFull(br.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(br.buf[:8]), nil
}

// ReadFloat32Slice reads count float32 values. The result grows with the data
// actually present, so a corrupt count fails on truncation before allocating
// the full declared size.
func (br *Reader) ReadFloat32Slice(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	vec := make([]float32, 0, min(count, chunkSize/4))
	for remaining := count; remaining > 0; {
		n := min(remaining, chunkSize/4)
		buf := br.scratch(n * 4)
		if err := br.readFull(buf); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
		remaining -= n
	}
	return vec, nil
}

// ReadUint32Slice reads count 4-byte integers.
func (br *Reader) ReadUint32Slice(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	s := make([]uint32, 0, min(count, chunkSize/4))
	for remaining := count; remaining > 0; {
		n := min(remaining, chunkSize/4)
		buf := br.scratch(n * 4)
		if err := br.readFull(buf); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			s = append(s, binary.LittleEndian.Uint32(buf[i*4:]))
		}
		remaining -= n
	}
	return s, nil
}

func (br *Reader) scratch(n int) []byte {
	if cap(br.buf) < n {
		br.buf = make([]byte, chunkSize)
	}
	return br.buf[:n]
}

// CountingWriter counts bytes passed through to the wrapped writer.
type CountingWriter struct {
	W io.Writer
	N int64
}

// Write implements io.Writer.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.N += int64(n)
	return n, err
}

// CountingReader counts bytes read from the wrapped reader.
type CountingReader struct {
	R io.Reader
	N int64
}

// Read implements io.Reader.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	cr.N += int64(n)
	return n, err
}

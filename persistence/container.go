package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MagicNumber identifies standalone index files (bytes "ANNX").
	MagicNumber = 0x584E4E41
	// Version is the current container format version.
	Version = 1
)

// ContainerHeader is the 32-byte header preceding a standalone payload.
type ContainerHeader struct {
	Magic        uint32
	Version      uint32
	Compression  CompressionType
	Padding      [3]byte
	Checksum     uint32 // CRC32C of the uncompressed payload
	RawLength    uint64
	StoredLength uint64
}

// WriteContainer encodes the payload produced by writeFunc into a checksummed,
// optionally compressed container and returns the total bytes written.
func WriteContainer(w io.Writer, c CompressionType, writeFunc func(io.Writer) error) (int64, error) {
	var raw bytes.Buffer
	cw := NewChecksumWriter(&raw)
	if err := writeFunc(cw); err != nil {
		return 0, err
	}

	stored, applied, err := compress(raw.Bytes(), c)
	if err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}

	header := ContainerHeader{
		Magic:        MagicNumber,
		Version:      Version,
		Compression:  applied,
		Checksum:     cw.Sum(),
		RawLength:    uint64(raw.Len()),
		StoredLength: uint64(len(stored)),
	}

	out := &CountingWriter{W: w}
	if err := binary.Write(out, binary.LittleEndian, &header); err != nil {
		return out.N, err
	}
	if _, err := out.Write(stored); err != nil {
		return out.N, err
	}
	return out.N, nil
}

// ReadContainer reads a container, verifies it and returns the raw payload
// together with its header.
func ReadContainer(r io.Reader) ([]byte, *ContainerHeader, error) {
	var header ContainerHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil, fmt.Errorf("%w: container header", ErrTruncated)
		}
		return nil, nil, err
	}
	if header.Magic != MagicNumber {
		return nil, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, header.Version)
	}
	if header.RawLength > uint64(maxInt) || header.StoredLength > uint64(maxInt) {
		return nil, nil, Corruptf("payload length out of range")
	}

	stored, err := io.ReadAll(io.LimitReader(r, int64(header.StoredLength)))
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(stored)) != header.StoredLength {
		return nil, nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, len(stored), header.StoredLength)
	}

	raw, err := decompress(stored, header.Compression, int(header.RawLength))
	if err != nil {
		return nil, nil, err
	}

	if actual := Checksum(raw); actual != header.Checksum {
		return nil, nil, &ChecksumMismatchError{Expected: header.Checksum, Actual: actual}
	}
	return raw, &header, nil
}

const maxInt = int(^uint(0) >> 1)

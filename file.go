package annindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/annindex/persistence"
)

// CompressionType selects the block compression of SaveFile.
type CompressionType = persistence.CompressionType

// Compression types for SaveFile.
const (
	CompressionNone = persistence.CompressionNone
	CompressionLZ4  = persistence.CompressionLZ4
	CompressionZSTD = persistence.CompressionZSTD
)

type fileOptions struct {
	compression CompressionType
}

// FileOption configures SaveFile.
type FileOption func(*fileOptions)

// WithCompression compresses the saved payload. Payloads that do not shrink
// are stored uncompressed.
func WithCompression(c CompressionType) FileOption {
	return func(o *fileOptions) { o.compression = c }
}

// SaveFile writes the index to path as a standalone file: a header with
// magic number, version, compression type and CRC32C checksum followed by
// the stream produced by Save. The file is replaced atomically.
func (idx *Index) SaveFile(path string, opts ...FileOption) error {
	fo := fileOptions{compression: persistence.CompressionNone}
	for _, fn := range opts {
		fn(&fo)
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	start := time.Now()
	var written int64

	err := persistence.SaveToFile(path, func(w io.Writer) error {
		n, err := persistence.WriteContainer(w, fo.compression, func(pw io.Writer) error {
			return idx.save(persistence.NewWriter(pw))
		})
		written = n
		return err
	})
	if err != nil {
		err = fmt.Errorf("save index to %s: %w", path, err)
	}

	idx.logger.LogSave(context.Background(), path, written, err)
	idx.metrics.RecordSave(written, time.Since(start), err)

	return err
}

// LoadFile reads an index written by SaveFile. Besides the errors of Load
// it reports persistence.ErrInvalidMagic, persistence.ErrInvalidVersion and
// checksum mismatches.
func LoadFile(path string, opts ...Option) (*Index, error) {
	var idx *Index

	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		payload, _, err := persistence.ReadContainer(r)
		if err != nil {
			return err
		}

		pr := bytes.NewReader(payload)
		if idx, err = load(pr, path, opts); err != nil {
			return err
		}
		if pr.Len() != 0 {
			return persistence.Corruptf("%d trailing bytes after index", pr.Len())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load index from %s: %w", path, err)
	}

	return idx, nil
}

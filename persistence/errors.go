package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when a stream decodes but violates a structural constraint.
	ErrCorrupt = errors.New("corrupt index stream")

	// ErrTruncated is returned when a stream ends before all declared data was read.
	ErrTruncated = errors.New("truncated index stream")

	// ErrInvalidMagic is returned when a container does not start with the expected magic.
	ErrInvalidMagic = errors.New("invalid magic number")

	// ErrInvalidVersion is returned for an unsupported container version.
	ErrInvalidVersion = errors.New("unsupported version")

	// ErrUnknownCompression is returned for an unrecognized compression type.
	ErrUnknownCompression = errors.New("unknown compression type")
)

// Corruptf returns an error wrapping ErrCorrupt with a formatted detail.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is or wraps a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var target *ChecksumMismatchError
	return errors.As(err, &target)
}

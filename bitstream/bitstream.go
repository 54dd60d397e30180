// Package bitstream provides buffered cursors for io.Writer and io.Reader
// to allow bit-granularity access to the stream, following the MSB pattern,
// where the most-significant bits of a value are written/read first and the
// first bit on the wire occupies the highest bit of its byte.
//
// A value written with some bit count is read back by consuming the same
// count. Byte order is never converted here; whole-value views in an
// explicit order belong to the container and endian packages.
package bitstream

import (
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSize is the cursor buffer capacity, in bytes, unless
// overridden with WithBufferSize.
const DefaultBufferSize = 4096

var (
	// ErrClosed is returned by every operation on a closed cursor.
	ErrClosed = errors.New("bitstream: cursor is closed")

	// ErrNotSeekable is returned by Seek when the underlying stream does
	// not implement io.Seeker.
	ErrNotSeekable = errors.New("bitstream: underlying stream is not seekable")
)

// EndOfStreamError reports a read that ran past the end of the stream. It
// unwraps to io.EOF.
type EndOfStreamError struct {
	// Missing is how many of the requested bits the stream came up short.
	Missing uint
}

func (e *EndOfStreamError) Error() string {
	if e.Missing == 1 {
		return "bitstream: end of stream; missing 1 bit"
	}
	return fmt.Sprintf("bitstream: end of stream; missing %d bits", e.Missing)
}

func (e *EndOfStreamError) Unwrap() error { return io.EOF }

// Flusher is implemented by streams that buffer writes themselves. Cursor
// flushes propagate to the underlying stream when it implements it.
type Flusher interface {
	Flush() error
}

type option struct {
	bufSize int
}

// OptionFunc customizes a cursor at construction time.
type OptionFunc func(*option) error

// WithBufferSize sets the cursor buffer capacity in bytes.
func WithBufferSize(size int) OptionFunc {
	return func(o *option) error {
		if size < 1 {
			return fmt.Errorf("invalid `size`; expected: > 0, given: %d", size)
		}
		o.bufSize = size
		return nil
	}
}

func newOption(opts []OptionFunc) (*option, error) {
	o := &option{bufSize: DefaultBufferSize}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func validateCount(count, max uint) error {
	if count > max {
		return fmt.Errorf("invalid `count`; expected: 0 to %d, given: %d", max, count)
	}
	return nil
}

func validateWhence(whence int) error {
	switch whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
		return nil
	default:
		return fmt.Errorf("invalid `whence`; expected: io.SeekStart, io.SeekCurrent or io.SeekEnd, given: %d", whence)
	}
}

// Package persistence stores runs of fixed bit-width items in files. Widths
// that land on a byte boundary encode whole values directly, honoring a
// configurable byte order; every other width streams through the bit
// cursors, where byte order has no meaning and packing is MSB first.
package persistence

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/bitpack/config"
	"github.com/spacemeshos/bitpack/container"
	"github.com/spacemeshos/bitpack/endian"
)

// ErrClosed is returned by every operation on a closed item reader or
// writer.
var ErrClosed = errors.New("persistence: file is closed")

type option struct {
	order   endian.Order
	bufSize int
}

// OptionFunc customizes an item reader or writer at construction time.
type OptionFunc func(*option) error

// WithByteOrder sets the byte order of byte-granular item widths. The
// default is big endian. Bit-granular widths ignore it.
func WithByteOrder(order endian.Order) OptionFunc {
	return func(o *option) error {
		if err := order.Validate(); err != nil {
			return err
		}
		o.order = order
		return nil
	}
}

// WithBufferSize sets the file buffer size in bytes.
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
	o := &option{
		order:   endian.Big,
		bufSize: config.DefaultBufferSize,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func validateItemBits(itemBits uint) error {
	if itemBits < config.MinItemBits || itemBits > config.MaxItemBits {
		return fmt.Errorf("invalid `itemBits`; expected: %d to %d, given: %d", config.MinItemBits, config.MaxItemBits, itemBits)
	}
	return nil
}

// containerWidth maps a byte-granular item size to the container width of
// the same size, when one exists. Items of 3, 5, 6 or 7 bytes have no
// matching container and are encoded byte by byte instead.
func containerWidth(itemBytes uint) (container.Width, bool) {
	switch itemBytes {
	case 1, 2, 4, 8:
		return container.Width(itemBytes), true
	default:
		return 0, false
	}
}

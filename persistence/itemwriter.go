package persistence

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spacemeshos/bitpack/bitstream"
	"github.com/spacemeshos/bitpack/container"
	"github.com/spacemeshos/bitpack/endian"
	"github.com/spacemeshos/bitpack/shared"
	"github.com/spacemeshos/bitpack/uint128"
)

// ItemWriter appends fixed bit-width items to a file. Byte-granular widths
// write whole values at the configured byte order; bit-granular widths pack
// through a bit cursor.
type ItemWriter struct {
	file     *os.File
	itemBits uint
	order    endian.Order

	// Exactly one of the two paths is active, selected by the item width
	// at construction.
	buf    *bufio.Writer     // byte-granular
	cursor *bitstream.Writer // bit-granular

	itemMask uint64
}

// NewItemWriter opens filename for appending items of itemBits bits,
// 1 to 64, creating it when missing.
func NewItemWriter(filename string, itemBits uint, opts ...OptionFunc) (*ItemWriter, error) {
	if err := validateItemBits(itemBits); err != nil {
		return nil, err
	}
	o, err := newOption(opts)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, shared.OwnerReadWrite)
	if err != nil {
		return nil, err
	}

	w := &ItemWriter{
		file:     f,
		itemBits: itemBits,
		order:    o.order,
		itemMask: uint128.Mask(itemBits).Uint64(),
	}
	if itemBits%8 == 0 {
		w.buf = bufio.NewWriterSize(f, o.bufSize)
	} else {
		w.cursor, err = bitstream.NewWriter(f, bitstream.WithBufferSize(o.bufSize))
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append writes one item. The value must fit the item width.
func (w *ItemWriter) Append(v uint64) error {
	if w.file == nil {
		return ErrClosed
	}
	if v&^w.itemMask != 0 {
		return fmt.Errorf("invalid `v`; expected: at most %d bits, given: %#x", w.itemBits, v)
	}

	if w.cursor != nil {
		return w.cursor.WriteBits(v, w.itemBits)
	}

	itemBytes := w.itemBits / 8
	if width, ok := containerWidth(itemBytes); ok {
		val, err := container.FromUint64(width, v)
		if err != nil {
			return err
		}
		b, err := val.Bytes(w.order)
		if err != nil {
			return err
		}
		_, err = w.buf.Write(b)
		return err
	}

	b := make([]byte, itemBytes)
	shared.PutUintBE(b, v)
	if w.order == endian.Little {
		endian.Reverse(b)
	}
	_, err := w.buf.Write(b)
	return err
}

// Width returns how many items are durable in the file. Items still in the
// writer buffer do not count until a flush.
func (w *ItemWriter) Width() (uint64, error) {
	if w.file == nil {
		return 0, ErrClosed
	}
	info, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return shared.NumItems(uint64(info.Size()), w.itemBits), nil
}

// Flush writes buffered items through to the file. At bit granularity a
// trailing partial byte is zero padded, so flushing mid-item corrupts the
// run; flush only on item boundaries you mean to keep.
func (w *ItemWriter) Flush() error {
	if w.file == nil {
		return ErrClosed
	}
	if w.cursor != nil {
		if err := w.cursor.Flush(); err != nil {
			return fmt.Errorf("failed to flush item writer: %w", err)
		}
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush item writer: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *ItemWriter) Close() error {
	if w.file == nil {
		return ErrClosed
	}
	if w.cursor != nil {
		if err := w.cursor.Close(); err != nil {
			return err
		}
		w.cursor = nil
	} else {
		if err := w.buf.Flush(); err != nil {
			return err
		}
		w.buf = nil
	}

	err := w.file.Close()
	w.file = nil
	return err
}

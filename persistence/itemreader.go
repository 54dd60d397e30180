package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spacemeshos/bitpack/bitstream"
	"github.com/spacemeshos/bitpack/container"
	"github.com/spacemeshos/bitpack/endian"
	"github.com/spacemeshos/bitpack/shared"
)

// ItemReader reads back fixed bit-width items written by an ItemWriter. The
// byte order and item width must match the ones the file was written with.
type ItemReader struct {
	file     *os.File
	itemBits uint
	order    endian.Order
	bufSize  int

	buf    *bufio.Reader     // byte-granular
	cursor *bitstream.Reader // bit-granular
}

// NewItemReader opens filename for reading items of itemBits bits, 1 to 64.
func NewItemReader(filename string, itemBits uint, opts ...OptionFunc) (*ItemReader, error) {
	if err := validateItemBits(itemBits); err != nil {
		return nil, err
	}
	o, err := newOption(opts)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_RDONLY, shared.OwnerReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for item reader: %w", err)
	}

	r := &ItemReader{
		file:     f,
		itemBits: itemBits,
		order:    o.order,
		bufSize:  o.bufSize,
	}
	if itemBits%8 == 0 {
		r.buf = bufio.NewReaderSize(f, o.bufSize)
	} else {
		r.cursor, err = bitstream.NewReader(f, bitstream.WithBufferSize(o.bufSize))
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	return r, nil
}

// ReadNext returns the next item, or io.EOF when the file holds no further
// whole item.
func (r *ItemReader) ReadNext() (uint64, error) {
	if r.file == nil {
		return 0, ErrClosed
	}

	if r.cursor != nil {
		v, err := r.cursor.ReadBits(r.itemBits)
		if err != nil {
			var eos *bitstream.EndOfStreamError
			if errors.As(err, &eos) {
				return 0, io.EOF
			}
			return 0, err
		}
		return v, nil
	}

	b := make([]byte, r.itemBits/8)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}

	if _, ok := containerWidth(uint(len(b))); ok {
		val, err := container.FromBytes(b, r.order)
		if err != nil {
			return 0, err
		}
		return val.Uint64(), nil
	}

	if r.order == endian.Little {
		endian.Reverse(b)
	}
	return shared.UintBE(b), nil
}

// Seek positions the reader on the index-th item of the file.
func (r *ItemReader) Seek(index uint64) error {
	if r.file == nil {
		return ErrClosed
	}

	if r.cursor != nil {
		if _, err := r.cursor.Seek(int64(index*uint64(r.itemBits)), io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek in item reader: %w", err)
		}
		return nil
	}

	if _, err := r.file.Seek(int64(index*uint64(r.itemBits)/8), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek in item reader: %w", err)
	}
	r.buf.Reset(r.file)
	return nil
}

// Width returns how many whole items the file holds.
func (r *ItemReader) Width() (uint64, error) {
	if r.file == nil {
		return 0, ErrClosed
	}
	info, err := r.file.Stat()
	if err != nil {
		return 0, err
	}
	return shared.NumItems(uint64(info.Size()), r.itemBits), nil
}

// Close closes the file.
func (r *ItemReader) Close() error {
	if r.file == nil {
		return ErrClosed
	}
	if r.cursor != nil {
		if err := r.cursor.Close(); err != nil {
			return err
		}
		r.cursor = nil
	}
	r.buf = nil

	err := r.file.Close()
	r.file = nil
	return err
}

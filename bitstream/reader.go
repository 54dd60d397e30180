package bitstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/spacemeshos/bitpack/container"
	"github.com/spacemeshos/bitpack/mask"
	"github.com/spacemeshos/bitpack/uint128"
)

// Reader is a buffered cursor that reads bits from an io.Reader. When the
// underlying stream also implements io.Seeker the cursor can reposition at
// bit granularity.
//
// The cursor does not own the stream: Close marks the cursor unusable but
// leaves the stream open.
type Reader struct {
	src    io.Reader
	seeker io.Seeker // nil when src cannot seek

	buf      []byte
	buffered int   // bytes of buf holding stream data
	idx      int   // byte under the cursor
	bit      uint  // bit offset in the cursor byte, counted from the MSB
	base     int64 // stream byte offset of buf[0]
	next     int64 // stream byte offset right after the window
	closed   bool
}

// NewReader returns a cursor reading from src, starting at its current
// position.
func NewReader(src io.Reader, opts ...OptionFunc) (*Reader, error) {
	o, err := newOption(opts)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		src: src,
		buf: make([]byte, o.bufSize),
	}
	if s, ok := src.(io.Seeker); ok {
		pos, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		r.seeker = s
		r.base = pos
		r.next = pos
	}
	return r, nil
}

// ReadBits consumes count bits, 0 to 64, and returns them right-aligned.
// Running past the end of the stream yields an EndOfStreamError carrying
// the shortfall.
func (r *Reader) ReadBits(count uint) (uint64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if err := validateCount(count, 64); err != nil {
		return 0, err
	}

	acc, err := container.New(container.W8)
	if err != nil {
		return 0, err
	}
	if err := r.readInto(&acc, count); err != nil {
		return 0, err
	}
	return acc.Uint64(), nil
}

// ReadBits128 consumes count bits, 0 to 128, and returns them
// right-aligned.
func (r *Reader) ReadBits128(count uint) (uint128.Uint128, error) {
	if r.closed {
		return uint128.Uint128{}, ErrClosed
	}
	if err := validateCount(count, 128); err != nil {
		return uint128.Uint128{}, err
	}

	acc := container.FromUint128(uint128.Uint128{})
	if err := r.readInto(&acc, count); err != nil {
		return uint128.Uint128{}, err
	}
	return acc.Uint128(), nil
}

// ReadBool consumes a single bit.
func (r *Reader) ReadBool() (bool, error) {
	if r.closed {
		return false, ErrClosed
	}

	if r.idx >= r.buffered {
		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) {
				return false, &EndOfStreamError{Missing: 1}
			}
			return false, err
		}
	}
	set := r.buf[r.idx]>>(7-r.bit)&1 == 1
	r.advance(1)
	return set, nil
}

// Align discards bits up to the next byte boundary and returns how many
// were skipped.
func (r *Reader) Align() (uint8, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.bit == 0 {
		return 0, nil
	}
	skipped := uint8(8 - r.bit)
	r.bit = 0
	r.idx++
	return skipped, nil
}

// Position returns the absolute bit offset of the cursor. On a stream that
// cannot seek it counts from cursor construction.
func (r *Reader) Position() int64 {
	return (r.base+int64(r.idx))*8 + int64(r.bit)
}

// Seek repositions the cursor to a bit offset, interpreted against whence
// the way io.Seeker treats byte offsets, and returns the absolute bit
// position. The buffer is refilled at the target right away; a target at
// the end of the stream is valid and leaves the next read to report the
// shortfall.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.seeker == nil {
		return 0, ErrNotSeekable
	}
	if err := validateWhence(whence); err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.Position() + offset
	case io.SeekEnd:
		end, err := r.seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		target = end*8 + offset
	}
	if target < 0 {
		return 0, fmt.Errorf("invalid `offset`; expected: a non-negative target, given target: %d", target)
	}

	byteOff := target / 8
	if _, err := r.seeker.Seek(byteOff, io.SeekStart); err != nil {
		return 0, err
	}
	r.next = byteOff
	r.idx = 0
	r.buffered = 0
	r.bit = 0
	if err := r.fill(); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	r.bit = uint(target % 8)
	return target, nil
}

// SetBufferSize replaces the cursor buffer. Bytes already buffered but not
// yet consumed are carried over, so the new size must hold them.
func (r *Reader) SetBufferSize(size int) error {
	if r.closed {
		return ErrClosed
	}
	if size < 1 {
		return fmt.Errorf("invalid `size`; expected: > 0, given: %d", size)
	}
	pending := r.buffered - r.idx
	if pending > size {
		return fmt.Errorf("invalid `size`; expected: >= %d pending buffered bytes, given: %d", pending, size)
	}

	buf := make([]byte, size)
	copy(buf, r.buf[r.idx:r.buffered])
	r.base += int64(r.idx)
	r.buf = buf
	r.buffered = pending
	r.idx = 0
	return nil
}

// Flush forwards to the source when it buffers writes itself. A read
// cursor has nothing of its own to flush.
func (r *Reader) Flush() error {
	if r.closed {
		return ErrClosed
	}
	if f, ok := r.src.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close marks the cursor closed. Every operation afterwards, including
// another Close, fails with ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	r.buf = nil
	return nil
}

// readInto moves count bits from the stream into acc, most-significant
// fragment first: every iteration takes what is left of the cursor byte,
// up to what is left of the request, and ORs it into the container at the
// offset of the bits still to come.
func (r *Reader) readInto(acc *container.Value, count uint) error {
	bitsLeft := count
	for bitsLeft > 0 {
		if r.idx >= r.buffered {
			if err := r.fill(); err != nil {
				if errors.Is(err, io.EOF) {
					return &EndOfStreamError{Missing: bitsLeft}
				}
				return err
			}
		}

		avail := 8 - r.bit
		n := bitsLeft
		if n > avail {
			n = avail
		}
		m, err := mask.Right(n)
		if err != nil {
			return err
		}
		frag := r.buf[r.idx] >> (avail - n) & m
		if err := acc.OrBits(frag, bitsLeft-n); err != nil {
			return err
		}
		r.advance(n)
		bitsLeft -= n
	}
	return nil
}

// fill slides the window to the unread part of the stream and reads the
// next run of bytes. Returns io.EOF when the stream is exhausted.
func (r *Reader) fill() error {
	r.base = r.next
	r.idx = 0
	r.buffered = 0
	n, err := io.ReadAtLeast(r.src, r.buf, 1)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return err
	}
	r.buffered = n
	r.next += int64(n)
	return nil
}

func (r *Reader) advance(n uint) {
	r.bit += n
	if r.bit == 8 {
		r.bit = 0
		r.idx++
	}
}

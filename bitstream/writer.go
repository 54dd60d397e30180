package bitstream

import (
	"fmt"
	"io"

	"github.com/spacemeshos/bitpack/container"
	"github.com/spacemeshos/bitpack/mask"
	"github.com/spacemeshos/bitpack/uint128"
)

// Writer is a buffered cursor that writes bits to an io.Writer. When the
// underlying stream also implements io.Seeker the cursor can reposition at
// bit granularity; repositioning flushes first so buffered bits are durable
// before the cursor moves.
//
// The cursor does not own the stream: Close flushes and marks the cursor
// unusable but leaves the stream open.
type Writer struct {
	dst    io.Writer
	seeker io.Seeker // nil when dst cannot seek

	buf    []byte
	idx    int   // byte under the cursor
	bit    uint  // bit offset in the cursor byte, counted from the MSB
	base   int64 // stream byte offset of buf[0]
	closed bool
}

// NewWriter returns a cursor writing to dst, starting at its current
// position.
func NewWriter(dst io.Writer, opts ...OptionFunc) (*Writer, error) {
	o, err := newOption(opts)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		dst: dst,
		buf: make([]byte, o.bufSize),
	}
	if s, ok := dst.(io.Seeker); ok {
		pos, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		w.seeker = s
		w.base = pos
	}
	return w, nil
}

// WriteBits emits the low count bits of v, 0 to 64, most-significant bit
// first. Bits of v above count are ignored.
func (w *Writer) WriteBits(v uint64, count uint) error {
	if w.closed {
		return ErrClosed
	}
	if err := validateCount(count, 64); err != nil {
		return err
	}

	val, err := container.FromUint64(container.W8, v)
	if err != nil {
		return err
	}
	return w.writeFrom(val, count)
}

// WriteBits128 emits the low count bits of v, 0 to 128.
func (w *Writer) WriteBits128(v uint128.Uint128, count uint) error {
	if w.closed {
		return ErrClosed
	}
	if err := validateCount(count, 128); err != nil {
		return err
	}
	return w.writeFrom(container.FromUint128(v), count)
}

// WriteBool emits a single bit.
func (w *Writer) WriteBool(b bool) error {
	if w.closed {
		return ErrClosed
	}

	var frag byte
	if b {
		frag = 1
	}
	shift := 7 - w.bit
	w.buf[w.idx] = w.buf[w.idx]&^(1<<shift) | frag<<shift
	return w.advance(1)
}

// Align zero-fills the cursor byte up to the next byte boundary and
// returns how many padding bits were produced.
func (w *Writer) Align() (uint8, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.bit == 0 {
		return 0, nil
	}

	pad := uint8(8 - w.bit)
	m, err := mask.Left(w.bit)
	if err != nil {
		return 0, err
	}
	w.buf[w.idx] &= m
	w.bit = 0
	w.idx++
	if w.idx == len(w.buf) {
		if err := w.flush(); err != nil {
			return 0, err
		}
	}
	return pad, nil
}

// Position returns the absolute bit offset of the cursor. On a stream that
// cannot seek it counts from cursor construction.
func (w *Writer) Position() int64 {
	return (w.base+int64(w.idx))*8 + int64(w.bit)
}

// Flush writes the buffered bits through to the destination and forwards
// the flush when the destination buffers writes itself. A partly filled
// final byte is written with its unwritten low bits zero, and the cursor
// moves to the next byte boundary.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if err := w.flush(); err != nil {
		return err
	}
	if f, ok := w.dst.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Seek flushes and repositions the cursor to a bit offset, interpreted
// against whence the way io.Seeker treats byte offsets, and returns the
// absolute bit position. Seeking into the middle of a byte starts a fresh
// image of that byte: bits not subsequently written flush as zero.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.seeker == nil {
		return 0, ErrNotSeekable
	}
	if err := validateWhence(whence); err != nil {
		return 0, err
	}
	if err := w.flush(); err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = w.Position() + offset
	case io.SeekEnd:
		end, err := w.seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		target = end*8 + offset
	}
	if target < 0 {
		return 0, fmt.Errorf("invalid `offset`; expected: a non-negative target, given target: %d", target)
	}

	byteOff := target / 8
	if _, err := w.seeker.Seek(byteOff, io.SeekStart); err != nil {
		return 0, err
	}
	w.base = byteOff
	w.idx = 0
	w.bit = uint(target % 8)
	w.buf[0] = 0
	return target, nil
}

// SetBufferSize flushes the cursor and replaces its buffer.
func (w *Writer) SetBufferSize(size int) error {
	if w.closed {
		return ErrClosed
	}
	if size < 1 {
		return fmt.Errorf("invalid `size`; expected: > 0, given: %d", size)
	}
	if err := w.flush(); err != nil {
		return err
	}
	w.buf = make([]byte, size)
	return nil
}

// Close flushes and marks the cursor closed. Every operation afterwards,
// including another Close, fails with ErrClosed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	if err := w.flush(); err != nil {
		return err
	}
	w.closed = true
	w.buf = nil
	return nil
}

// writeFrom moves count bits of val to the stream, most-significant
// fragment first: every iteration extracts what fits in the cursor byte
// from the top of the remaining window and merges it, clearing the target
// bits before OR-ing the fragment in.
func (w *Writer) writeFrom(val container.Value, count uint) error {
	bitsLeft := count
	for bitsLeft > 0 {
		room := 8 - w.bit
		n := bitsLeft
		if n > room {
			n = room
		}

		frag, err := val.Extract(bitsLeft-n, n)
		if err != nil {
			return err
		}
		m, err := mask.Right(n)
		if err != nil {
			return err
		}
		shift := room - n
		w.buf[w.idx] = w.buf[w.idx]&^(m<<shift) | frag<<shift
		if err := w.advance(n); err != nil {
			return err
		}
		bitsLeft -= n
	}
	return nil
}

// advance moves the cursor forward, flushing through a byte that completes
// at the end of the buffer.
func (w *Writer) advance(n uint) error {
	w.bit += n
	if w.bit == 8 {
		w.bit = 0
		w.idx++
		if w.idx == len(w.buf) {
			return w.flush()
		}
	}
	return nil
}

// flush drains the complete bytes plus the in-progress byte, zero-padding
// its unwritten low bits, and re-aligns the cursor to the byte boundary.
func (w *Writer) flush() error {
	n := w.idx
	if w.bit > 0 {
		m, err := mask.Left(w.bit)
		if err != nil {
			return err
		}
		w.buf[w.idx] &= m
		n++
	}
	if n == 0 {
		return nil
	}

	if _, err := w.dst.Write(w.buf[:n]); err != nil {
		return err
	}
	w.base += int64(n)
	w.idx = 0
	w.bit = 0
	return nil
}

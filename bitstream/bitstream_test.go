package bitstream_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/bitpack/bitstream"
	"github.com/spacemeshos/bitpack/shared"
	"github.com/spacemeshos/bitpack/uint128"
)

var (
	NewWriter = bitstream.NewWriter
	NewReader = bitstream.NewReader
	NumBits   = shared.NumBits
)

func TestRoundTrip(t *testing.T) {
	req := require.New(t)

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)
	from := uint64(1)
	to := uint64(1 << 15)

	// Write.
	for i := from; i < to; i++ {
		err := w.WriteBits(i, NumBits(i))
		req.NoError(err)
		err = w.WriteBits(i, 64)
		req.NoError(err)
	}
	err = w.Flush()
	req.NoError(err)

	// Read.
	r, err := NewReader(buf)
	req.NoError(err)
	for i := from; i < to; i++ {
		num, err := r.ReadBits(NumBits(i))
		req.NoError(err)
		req.Equal(i, num)
		num, err = r.ReadBits(64)
		req.NoError(err)
		req.Equal(i, num)
	}
}

func TestRoundTripSmallBuffer(t *testing.T) {
	req := require.New(t)

	// A tiny buffer forces a flush or refill inside almost every value.
	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf, bitstream.WithBufferSize(3))
	req.NoError(err)
	from := uint64(1)
	to := uint64(1 << 10)

	for i := from; i < to; i++ {
		err := w.WriteBits(i, NumBits(i))
		req.NoError(err)
	}
	req.NoError(w.Flush())

	r, err := NewReader(buf, bitstream.WithBufferSize(3))
	req.NoError(err)
	for i := from; i < to; i++ {
		num, err := r.ReadBits(NumBits(i))
		req.NoError(err)
		req.Equal(i, num)
	}
}

func TestRoundTripMixed(t *testing.T) {
	req := require.New(t)

	from := uint64(1)
	to := uint64(1 << 10)

	for i := from; i < to; i++ {
		buf := bytes.NewBuffer(nil)
		w, err := NewWriter(buf)
		req.NoError(err)
		r, err := NewReader(buf)
		req.NoError(err)

		// Write 3 arbitrary bits.
		req.NoError(w.WriteBool(true))
		req.NoError(w.WriteBool(false))
		req.NoError(w.WriteBool(true))

		// Write i.
		numBits := NumBits(i)
		req.NoError(w.WriteBits(i, numBits))

		// Write the 3 LS bits of 0xFF.
		req.NoError(w.WriteBits(0xFF, 3))

		// Write i again.
		req.NoError(w.WriteBits(i, numBits))

		req.NoError(w.Flush())

		// Read.
		bit, err := r.ReadBool()
		req.NoError(err)
		req.True(bit)
		bit, err = r.ReadBool()
		req.NoError(err)
		req.False(bit)
		bit, err = r.ReadBool()
		req.NoError(err)
		req.True(bit)

		num, err := r.ReadBits(numBits)
		req.NoError(err)
		req.Equal(i, num)

		num, err = r.ReadBits(3)
		req.NoError(err)
		req.Equal(uint64(0b111), num)

		num, err = r.ReadBits(numBits)
		req.NoError(err)
		req.Equal(i, num)
	}
}

func TestPacksMsbFirst(t *testing.T) {
	req := require.New(t)

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)

	// 5 bits 0b10111 followed by 3 bits 0b010 pack a single byte
	// 0b10111010.
	req.NoError(w.WriteBits(0b10111, 5))
	req.NoError(w.WriteBits(0b010, 3))
	req.NoError(w.Flush())
	req.Equal([]byte{0b10111010}, buf.Bytes())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	req.NoError(err)
	num, err := r.ReadBits(5)
	req.NoError(err)
	req.Equal(uint64(0b10111), num)
	num, err = r.ReadBits(3)
	req.NoError(err)
	req.Equal(uint64(0b010), num)
}

func TestFlushPadsFinalByte(t *testing.T) {
	req := require.New(t)

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)

	req.NoError(w.WriteBits(0b10111, 5))
	req.Equal(int64(5), w.Position())
	req.NoError(w.Flush())
	req.Equal([]byte{0b10111000}, buf.Bytes())

	// Flushing moves the cursor to the byte boundary.
	req.Equal(int64(8), w.Position())

	// A second flush with nothing buffered writes nothing.
	req.NoError(w.Flush())
	req.Equal(1, buf.Len())
}

func TestWriteBitsIgnoresHighBits(t *testing.T) {
	req := require.New(t)

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)
	req.NoError(w.WriteBits(0xFFFF, 4))
	req.NoError(w.Flush())
	req.Equal([]byte{0xF0}, buf.Bytes())
}

func TestRoundTrip128(t *testing.T) {
	req := require.New(t)

	values := []uint128.Uint128{
		{},
		uint128.From64(1),
		uint128.Mask(127),
		uint128.New(0xDEADBEEFCAFEBABE, 0x0123456789ABCDEF),
		uint128.Mask(128),
	}
	counts := []uint{0, 1, 7, 8, 63, 64, 65, 127, 128}

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)
	for _, v := range values {
		for _, count := range counts {
			req.NoError(w.WriteBits128(v, count))
		}
	}
	req.NoError(w.Flush())

	r, err := NewReader(buf)
	req.NoError(err)
	for _, v := range values {
		for _, count := range counts {
			num, err := r.ReadBits128(count)
			req.NoError(err)
			req.Equal(v.And(uint128.Mask(count)), num, "count=%d value=%s", count, v)
		}
	}
}

func TestAlign(t *testing.T) {
	req := require.New(t)

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)

	req.NoError(w.WriteBits(0b101, 3))
	pad, err := w.Align()
	req.NoError(err)
	req.Equal(uint8(5), pad)

	// Aligned cursors have nothing to pad.
	pad, err = w.Align()
	req.NoError(err)
	req.Equal(uint8(0), pad)

	req.NoError(w.WriteBits(0xAA, 8))
	req.NoError(w.Flush())
	req.Equal([]byte{0b10100000, 0xAA}, buf.Bytes())

	r, err := NewReader(buf)
	req.NoError(err)
	num, err := r.ReadBits(3)
	req.NoError(err)
	req.Equal(uint64(0b101), num)

	skipped, err := r.Align()
	req.NoError(err)
	req.Equal(uint8(5), skipped)

	skipped, err = r.Align()
	req.NoError(err)
	req.Equal(uint8(0), skipped)

	num, err = r.ReadBits(8)
	req.NoError(err)
	req.Equal(uint64(0xAA), num)
}

func TestEndOfStream(t *testing.T) {
	req := require.New(t)

	r, err := NewReader(bytes.NewReader(nil))
	req.NoError(err)

	// A zero bit read succeeds even with nothing left.
	num, err := r.ReadBits(0)
	req.NoError(err)
	req.Zero(num)

	_, err = r.ReadBits(1)
	req.EqualError(err, "bitstream: end of stream; missing 1 bit")
	req.ErrorIs(err, io.EOF)

	_, err = r.ReadBits(10)
	req.EqualError(err, "bitstream: end of stream; missing 10 bits")

	_, err = r.ReadBool()
	var eos *bitstream.EndOfStreamError
	req.ErrorAs(err, &eos)
	req.Equal(uint(1), eos.Missing)

	// A single byte satisfies 8 of 10 requested bits.
	r, err = NewReader(bytes.NewReader([]byte{0xFF}))
	req.NoError(err)
	_, err = r.ReadBits(10)
	req.ErrorAs(err, &eos)
	req.Equal(uint(2), eos.Missing)
	req.ErrorIs(err, io.EOF)

	// Mid-byte starts count too: 3 bits consumed, 13 of 20 remain on the
	// stream.
	r, err = NewReader(bytes.NewReader([]byte{0xAB, 0xCD}))
	req.NoError(err)
	_, err = r.ReadBits(3)
	req.NoError(err)
	_, err = r.ReadBits(20)
	req.ErrorAs(err, &eos)
	req.Equal(uint(7), eos.Missing)
}

func TestCountValidation(t *testing.T) {
	req := require.New(t)

	r, err := NewReader(bytes.NewReader([]byte{0xFF}))
	req.NoError(err)
	_, err = r.ReadBits(65)
	req.EqualError(err, "invalid `count`; expected: 0 to 64, given: 65")
	_, err = r.ReadBits128(129)
	req.EqualError(err, "invalid `count`; expected: 0 to 128, given: 129")

	w, err := NewWriter(bytes.NewBuffer(nil))
	req.NoError(err)
	req.EqualError(w.WriteBits(0, 65), "invalid `count`; expected: 0 to 64, given: 65")
	req.EqualError(w.WriteBits128(uint128.Uint128{}, 130), "invalid `count`; expected: 0 to 128, given: 130")
}

func TestUseAfterClose(t *testing.T) {
	req := require.New(t)

	w, err := NewWriter(bytes.NewBuffer(nil))
	req.NoError(err)
	req.NoError(w.WriteBits(1, 1))
	req.NoError(w.Close())

	req.ErrorIs(w.WriteBits(1, 1), bitstream.ErrClosed)
	req.ErrorIs(w.WriteBits128(uint128.Uint128{}, 1), bitstream.ErrClosed)
	req.ErrorIs(w.WriteBool(true), bitstream.ErrClosed)
	_, err = w.Align()
	req.ErrorIs(err, bitstream.ErrClosed)
	req.ErrorIs(w.Flush(), bitstream.ErrClosed)
	_, err = w.Seek(0, io.SeekStart)
	req.ErrorIs(err, bitstream.ErrClosed)
	req.ErrorIs(w.SetBufferSize(16), bitstream.ErrClosed)
	req.ErrorIs(w.Close(), bitstream.ErrClosed)

	r, err := NewReader(bytes.NewReader([]byte{0xFF}))
	req.NoError(err)
	req.NoError(r.Close())

	_, err = r.ReadBits(1)
	req.ErrorIs(err, bitstream.ErrClosed)
	_, err = r.ReadBits128(1)
	req.ErrorIs(err, bitstream.ErrClosed)
	_, err = r.ReadBool()
	req.ErrorIs(err, bitstream.ErrClosed)
	_, err = r.Align()
	req.ErrorIs(err, bitstream.ErrClosed)
	req.ErrorIs(r.Flush(), bitstream.ErrClosed)
	_, err = r.Seek(0, io.SeekStart)
	req.ErrorIs(err, bitstream.ErrClosed)
	req.ErrorIs(r.SetBufferSize(16), bitstream.ErrClosed)
	req.ErrorIs(r.Close(), bitstream.ErrClosed)
}

func TestCloseFlushes(t *testing.T) {
	req := require.New(t)

	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)
	req.NoError(w.WriteBits(0b11, 2))
	req.NoError(w.Close())
	req.Equal([]byte{0b11000000}, buf.Bytes())
}

func TestBufferSizeOption(t *testing.T) {
	req := require.New(t)

	_, err := NewWriter(bytes.NewBuffer(nil), bitstream.WithBufferSize(0))
	req.EqualError(err, "invalid `size`; expected: > 0, given: 0")
	_, err = NewReader(bytes.NewReader(nil), bitstream.WithBufferSize(-3))
	req.EqualError(err, "invalid `size`; expected: > 0, given: -3")
}

func TestSetBufferSize(t *testing.T) {
	req := require.New(t)

	// Reader: pending bytes are carried into the new buffer.
	r, err := NewReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}), bitstream.WithBufferSize(4))
	req.NoError(err)
	num, err := r.ReadBits(8)
	req.NoError(err)
	req.Equal(uint64(1), num)

	req.EqualError(r.SetBufferSize(2), "invalid `size`; expected: >= 3 pending buffered bytes, given: 2")
	req.NoError(r.SetBufferSize(3))

	for want := uint64(2); want <= 5; want++ {
		num, err := r.ReadBits(8)
		req.NoError(err)
		req.Equal(want, num)
	}

	// Writer: resizing flushes, padding a partial byte.
	buf := bytes.NewBuffer(nil)
	w, err := NewWriter(buf)
	req.NoError(err)
	req.NoError(w.WriteBits(0xFFF, 12))
	req.NoError(w.SetBufferSize(8))
	req.Equal([]byte{0xFF, 0xF0}, buf.Bytes())
	req.NoError(w.WriteBits(0xAB, 8))
	req.NoError(w.Flush())
	req.Equal([]byte{0xFF, 0xF0, 0xAB}, buf.Bytes())

	req.EqualError(w.SetBufferSize(0), "invalid `size`; expected: > 0, given: 0")
}

func TestBadWriter(t *testing.T) {
	req := require.New(t)

	// With a single byte buffer the first completed byte hits the
	// destination right away.
	w, err := NewWriter(&badWriter{}, bitstream.WithBufferSize(1))
	req.NoError(err)
	req.Equal(ErrBadWriter, w.WriteBits(0xFF, 8))

	// With a larger buffer the error surfaces on flush.
	w, err = NewWriter(&badWriter{})
	req.NoError(err)
	req.NoError(w.WriteBits(0xFF, 8))
	req.Equal(ErrBadWriter, w.Flush())
}

func TestFlushForwarding(t *testing.T) {
	req := require.New(t)

	dst := &recordingFlusher{}
	w, err := NewWriter(dst)
	req.NoError(err)
	req.NoError(w.WriteBits(0xAB, 8))
	req.NoError(w.Flush())
	req.Equal(1, dst.flushes)
	req.Equal([]byte{0xAB}, dst.buf.Bytes())

	src := &flushingReader{r: bytes.NewReader([]byte{1})}
	r, err := NewReader(src)
	req.NoError(err)
	req.NoError(r.Flush())
	req.Equal(1, src.flushes)

	// No Flusher, nothing to forward.
	r, err = NewReader(bytes.NewReader([]byte{1}))
	req.NoError(err)
	req.NoError(r.Flush())
}

type badWriter struct{}

var ErrBadWriter = errors.New("bad writer")

func (w *badWriter) Write(p []byte) (n int, err error) {
	return 0, ErrBadWriter
}

type recordingFlusher struct {
	buf     bytes.Buffer
	flushes int
}

func (f *recordingFlusher) Write(p []byte) (int, error) { return f.buf.Write(p) }

func (f *recordingFlusher) Flush() error {
	f.flushes++
	return nil
}

type flushingReader struct {
	r       io.Reader
	flushes int
}

func (f *flushingReader) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *flushingReader) Flush() error {
	f.flushes++
	return nil
}

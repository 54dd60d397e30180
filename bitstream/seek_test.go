package bitstream_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/bitpack/bitstream"
)

func TestReaderSeek(t *testing.T) {
	req := require.New(t)

	data := []byte{0xAB, 0xCD, 0xEF, 0x01}
	r, err := NewReader(bytes.NewReader(data))
	req.NoError(err)

	// Bit 17 is byte 2, bit offset 1: the next 3 bits of 0xEF
	// (0b11101111) are 0b110.
	pos, err := r.Seek(17, io.SeekStart)
	req.NoError(err)
	req.Equal(int64(17), pos)
	req.Equal(int64(17), r.Position())

	num, err := r.ReadBits(3)
	req.NoError(err)
	req.Equal(uint64(0b110), num)
	req.Equal(int64(20), r.Position())

	// Relative seek counts from the cursor.
	pos, err = r.Seek(-12, io.SeekCurrent)
	req.NoError(err)
	req.Equal(int64(8), pos)
	num, err = r.ReadBits(8)
	req.NoError(err)
	req.Equal(uint64(0xCD), num)

	// End-relative seek uses the stream length.
	pos, err = r.Seek(-8, io.SeekEnd)
	req.NoError(err)
	req.Equal(int64(24), pos)
	num, err = r.ReadBits(8)
	req.NoError(err)
	req.Equal(uint64(0x01), num)

	// A target at the very end is valid; the next read reports the
	// shortfall.
	pos, err = r.Seek(0, io.SeekEnd)
	req.NoError(err)
	req.Equal(int64(32), pos)
	_, err = r.ReadBits(4)
	var eos *bitstream.EndOfStreamError
	req.ErrorAs(err, &eos)
	req.Equal(uint(4), eos.Missing)

	// Seeking back restarts reading.
	_, err = r.Seek(0, io.SeekStart)
	req.NoError(err)
	num, err = r.ReadBits(8)
	req.NoError(err)
	req.Equal(uint64(0xAB), num)
}

func TestReaderSeekValidation(t *testing.T) {
	req := require.New(t)

	r, err := NewReader(bytes.NewReader([]byte{1}))
	req.NoError(err)

	_, err = r.Seek(0, 7)
	req.EqualError(err, "invalid `whence`; expected: io.SeekStart, io.SeekCurrent or io.SeekEnd, given: 7")

	_, err = r.Seek(-1, io.SeekStart)
	req.ErrorContains(err, "invalid `offset`")

	// bytes.Buffer cannot seek.
	r, err = NewReader(bytes.NewBuffer([]byte{1}))
	req.NoError(err)
	_, err = r.Seek(0, io.SeekStart)
	req.ErrorIs(err, bitstream.ErrNotSeekable)
}

func TestWriterSeek(t *testing.T) {
	req := require.New(t)

	filename := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.Create(filename)
	req.NoError(err)
	defer f.Close()

	w, err := NewWriter(f)
	req.NoError(err)
	req.NoError(w.WriteBits(0xFFFF, 16))

	// Seeking flushes, so both bytes are durable before the cursor moves.
	pos, err := w.Seek(4, io.SeekStart)
	req.NoError(err)
	req.Equal(int64(4), pos)
	req.Equal(int64(4), w.Position())

	// A mid-byte target starts a fresh byte image: the unwritten high
	// bits of byte 0 flush as zero.
	req.NoError(w.WriteBits(0b1010, 4))
	req.NoError(w.Close())

	data, err := os.ReadFile(filename)
	req.NoError(err)
	req.Equal([]byte{0x0A, 0xFF}, data)
}

func TestWriterSeekNotSeekable(t *testing.T) {
	req := require.New(t)

	w, err := NewWriter(bytes.NewBuffer(nil))
	req.NoError(err)
	_, err = w.Seek(0, io.SeekStart)
	req.ErrorIs(err, bitstream.ErrNotSeekable)

	_, err = w.Seek(0, 9)
	req.ErrorIs(err, bitstream.ErrNotSeekable)
}

func TestWriterSeekEnd(t *testing.T) {
	req := require.New(t)

	filename := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.Create(filename)
	req.NoError(err)
	defer f.Close()

	w, err := NewWriter(f)
	req.NoError(err)
	req.NoError(w.WriteBits(0xAB, 8))

	pos, err := w.Seek(0, io.SeekEnd)
	req.NoError(err)
	req.Equal(int64(8), pos)

	req.NoError(w.WriteBits(0xCD, 8))
	req.NoError(w.Close())

	data, err := os.ReadFile(filename)
	req.NoError(err)
	req.Equal([]byte{0xAB, 0xCD}, data)
}

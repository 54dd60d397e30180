// Package container models the fixed width unsigned values the codec moves:
// 1, 2, 4, 8 or 16 bytes wide, assembled and taken apart one byte sized
// fragment at a time. The cursors stage every read and write through a
// container value, so the fragment math lives here and nowhere else.
package container

import (
	"fmt"

	"github.com/spacemeshos/bitpack/endian"
	"github.com/spacemeshos/bitpack/mask"
	"github.com/spacemeshos/bitpack/uint128"
)

// Width is the byte width of a container value.
type Width uint8

const (
	W1  Width = 1
	W2  Width = 2
	W4  Width = 4
	W8  Width = 8
	W16 Width = 16
)

// Bits returns the width in bits.
func (w Width) Bits() uint { return uint(w) * 8 }

func (w Width) Validate() error {
	switch w {
	case W1, W2, W4, W8, W16:
		return nil
	default:
		return fmt.Errorf("invalid `width`; expected: 1, 2, 4, 8 or 16 bytes, given: %d", uint8(w))
	}
}

// Value is a fixed width container. Bits at or above the width are always
// zero. The zero Value has no width and rejects every operation.
type Value struct {
	width Width
	bits  uint128.Uint128
}

// New returns the zero value of the given width.
func New(w Width) (Value, error) {
	if err := w.Validate(); err != nil {
		return Value{}, err
	}
	return Value{width: w}, nil
}

// FromUint64 builds a value of the given width, truncating v to fit.
func FromUint64(w Width, v uint64) (Value, error) {
	val, err := New(w)
	if err != nil {
		return Value{}, err
	}
	val.bits = uint128.From64(v).And(uint128.Mask(w.Bits()))
	return val, nil
}

// FromUint128 builds a full width value.
func FromUint128(v uint128.Uint128) Value {
	return Value{width: W16, bits: v}
}

func (v Value) Width() Width { return v.width }

func (v Value) Uint64() uint64 { return v.bits.Uint64() }

func (v Value) Uint128() uint128.Uint128 { return v.bits }

// OrBits merges a byte sized fragment into the value at bit offset off.
// Fragment bits that would land at or above the width are discarded. An
// offset at or above the width is invalid.
func (v *Value) OrBits(frag byte, off uint) error {
	if off >= v.width.Bits() {
		return fmt.Errorf("invalid `off`; expected: less than %d, given: %d", v.width.Bits(), off)
	}
	wide := uint128.From64(uint64(frag)).Lsh(off)
	v.bits = v.bits.Or(wide).And(uint128.Mask(v.width.Bits()))
	return nil
}

// Extract returns n bits of the value starting at bit offset off, right
// aligned. The mask is first positioned over the value, then the selection
// is shifted down. n is at most 8.
func (v Value) Extract(off, n uint) (byte, error) {
	if off >= v.width.Bits() {
		return 0, fmt.Errorf("invalid `off`; expected: less than %d, given: %d", v.width.Bits(), off)
	}
	m, err := mask.Right(n)
	if err != nil {
		return 0, err
	}
	window := uint128.From64(uint64(m)).Lsh(off)
	return byte(v.bits.And(window).Rsh(off).Uint64()), nil
}

// Bytes renders the value as width bytes in the requested byte order: the
// native order image of the value, reversed when the requested order is not
// the native one.
func (v Value) Bytes(order endian.Order) ([]byte, error) {
	if err := v.width.Validate(); err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	b := make([]byte, v.width)
	enc := endian.Native().Binary()
	switch v.width {
	case W1:
		b[0] = v.bits.Uint8()
	case W2:
		enc.PutUint16(b, v.bits.Uint16())
	case W4:
		enc.PutUint32(b, v.bits.Uint32())
	case W8:
		enc.PutUint64(b, v.bits.Uint64())
	case W16:
		if endian.Native() == endian.Little {
			enc.PutUint64(b[:8], v.bits.Lo)
			enc.PutUint64(b[8:], v.bits.Hi)
		} else {
			enc.PutUint64(b[:8], v.bits.Hi)
			enc.PutUint64(b[8:], v.bits.Lo)
		}
	}

	if !order.IsNative() {
		endian.Reverse(b)
	}
	return b, nil
}

// FromBytes decodes a whole value stored in the given byte order. The input
// length selects the width.
func FromBytes(b []byte, order endian.Order) (Value, error) {
	if err := order.Validate(); err != nil {
		return Value{}, err
	}
	switch len(b) {
	case 1, 2, 4, 8, 16:
	default:
		return Value{}, fmt.Errorf("invalid `b`; expected: 1, 2, 4, 8 or 16 bytes, given: %d", len(b))
	}

	buf := make([]byte, len(b))
	copy(buf, b)
	if !order.IsNative() {
		endian.Reverse(buf)
	}

	v := Value{width: Width(len(b))}
	enc := endian.Native().Binary()
	switch v.width {
	case W1:
		v.bits = uint128.From64(uint64(buf[0]))
	case W2:
		v.bits = uint128.From64(uint64(enc.Uint16(buf)))
	case W4:
		v.bits = uint128.From64(uint64(enc.Uint32(buf)))
	case W8:
		v.bits = uint128.From64(enc.Uint64(buf))
	case W16:
		if endian.Native() == endian.Little {
			v.bits = uint128.New(enc.Uint64(buf[:8]), enc.Uint64(buf[8:]))
		} else {
			v.bits = uint128.New(enc.Uint64(buf[8:]), enc.Uint64(buf[:8]))
		}
	}
	return v, nil
}

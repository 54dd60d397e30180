// Package uint128 implements an unsigned 128 bit integer on top of two
// machine words, wide enough to stage the largest container the codec
// moves. Only the operations the codec needs are provided; this is not a
// general arithmetic type.
package uint128

import (
	"fmt"
	"math/bits"
)

// Uint128 is an unsigned 128 bit integer. The zero value is zero. Values
// are immutable; every operation returns a new value.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

func New(lo, hi uint64) Uint128 { return Uint128{Lo: lo, Hi: hi} }

// From64 widens v, zero filling the high word.
func From64(v uint64) Uint128 { return Uint128{Lo: v} }

// Mask returns a value with the low n bits set. Widths of 128 and above
// yield all ones.
func Mask(n uint) Uint128 {
	switch {
	case n == 0:
		return Uint128{}
	case n < 64:
		return Uint128{Lo: 1<<n - 1}
	case n == 64:
		return Uint128{Lo: ^uint64(0)}
	case n < 128:
		return Uint128{Lo: ^uint64(0), Hi: 1<<(n-64) - 1}
	default:
		return Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}
	}
}

func (u Uint128) IsZero() bool { return u.Lo == 0 && u.Hi == 0 }

// Lsh shifts u left by n bits. Like a hardware shift of a 128 bit register
// the count wraps modulo 128.
func (u Uint128) Lsh(n uint) Uint128 {
	n &= 127
	switch {
	case n == 0:
		return u
	case n < 64:
		return Uint128{Lo: u.Lo << n, Hi: u.Hi<<n | u.Lo>>(64-n)}
	case n == 64:
		return Uint128{Hi: u.Lo}
	default:
		return Uint128{Hi: u.Lo << (n - 64)}
	}
}

// Rsh shifts u right by n bits, wrapping the count modulo 128.
func (u Uint128) Rsh(n uint) Uint128 {
	n &= 127
	switch {
	case n == 0:
		return u
	case n < 64:
		return Uint128{Lo: u.Lo>>n | u.Hi<<(64-n), Hi: u.Hi >> n}
	case n == 64:
		return Uint128{Lo: u.Hi}
	default:
		return Uint128{Lo: u.Hi >> (n - 64)}
	}
}

// Or64 sets bits of the low word. The high word is untouched.
func (u Uint128) Or64(v uint64) Uint128 {
	u.Lo |= v
	return u
}

// And64 masks the low word. The high word is untouched, so this is not a
// 128 bit AND against a zero extended operand.
func (u Uint128) And64(v uint64) Uint128 {
	u.Lo &= v
	return u
}

func (u Uint128) Or(v Uint128) Uint128 {
	return Uint128{Lo: u.Lo | v.Lo, Hi: u.Hi | v.Hi}
}

func (u Uint128) And(v Uint128) Uint128 {
	return Uint128{Lo: u.Lo & v.Lo, Hi: u.Hi & v.Hi}
}

func (u Uint128) Not() Uint128 {
	return Uint128{Lo: ^u.Lo, Hi: ^u.Hi}
}

// Truncating conversions take the low bits and discard the rest.

func (u Uint128) Uint64() uint64 { return u.Lo }

func (u Uint128) Uint32() uint32 { return uint32(u.Lo) }

func (u Uint128) Uint16() uint16 { return uint16(u.Lo) }

func (u Uint128) Uint8() uint8 { return uint8(u.Lo) }

func (u Uint128) Float64() float64 { return float64(u.Lo) }

// ReverseBytes mirrors all 16 bytes of u.
func (u Uint128) ReverseBytes() Uint128 {
	return Uint128{Lo: bits.ReverseBytes64(u.Hi), Hi: bits.ReverseBytes64(u.Lo)}
}

func (u Uint128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%#x", u.Lo)
	}
	return fmt.Sprintf("%#x%016x", u.Hi, u.Lo)
}

// Package mask provides the canonical contiguous bit masks used throughout
// the codec: right-aligned (low bits set) and left-aligned (high bits set)
// masks over a byte and over a 16 bit word.
package mask

import "fmt"

// Mask tables indexed by width, generated once at package load.
var (
	right   [9]byte
	left    [9]byte
	right16 [17]uint16
	left16  [17]uint16
)

func init() {
	for n := 1; n <= 8; n++ {
		right[n] = right[n-1]<<1 | 1
		left[n] = left[n-1]>>1 | 0x80
	}
	for n := 1; n <= 16; n++ {
		right16[n] = right16[n-1]<<1 | 1
		left16[n] = left16[n-1]>>1 | 0x8000
	}
}

// Right returns a byte with the low n bits set, for n in [0,8].
func Right(n uint) (byte, error) {
	if n > 8 {
		return 0, fmt.Errorf("invalid `n`; expected: 0 to 8, given: %d", n)
	}
	return right[n], nil
}

// Left returns a byte with the high n bits set, for n in [0,8].
func Left(n uint) (byte, error) {
	if n > 8 {
		return 0, fmt.Errorf("invalid `n`; expected: 0 to 8, given: %d", n)
	}
	return left[n], nil
}

// Right16 returns a 16 bit word with the low n bits set, for n in [0,16].
func Right16(n uint) (uint16, error) {
	if n > 16 {
		return 0, fmt.Errorf("invalid `n`; expected: 0 to 16, given: %d", n)
	}
	return right16[n], nil
}

// Left16 returns a 16 bit word with the high n bits set, for n in [0,16].
func Left16(n uint) (uint16, error) {
	if n > 16 {
		return 0, fmt.Errorf("invalid `n`; expected: 0 to 16, given: %d", n)
	}
	return left16[n], nil
}

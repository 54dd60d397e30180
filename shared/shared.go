// Package shared holds the small helpers used across the codec packages.
package shared

import "math/bits"

// NumBits returns the minimal number of bits that represent v; zero for
// zero.
func NumBits(v uint64) uint {
	return uint(bits.Len64(v))
}

// UintBE interprets b, at most 8 bytes, as a big-endian unsigned integer.
func UintBE(b []byte) uint64 {
	var v uint64
	for i := 0; i < len(b); i++ {
		v <<= 8
		v |= uint64(b[i])
	}
	return v
}

// PutUintBE writes the low len(b)*8 bits of v into b in big-endian order.
func PutUintBE(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// IsPowerOfTwo reports whether x is a power of 2.
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// NumItems returns how many whole items of itemBits bits fit in numBytes
// bytes of storage.
func NumItems(numBytes uint64, itemBits uint) uint64 {
	if itemBits == 0 {
		return 0
	}
	return numBytes * 8 / uint64(itemBits)
}

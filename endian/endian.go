// Package endian selects the byte order of whole value views. Byte order is
// orthogonal to bit packing: the cursors never reorder bytes on their own,
// and conversion happens only where a caller asks for a value in an explicit
// order.
package endian

import (
	"encoding/binary"
	"fmt"
)

// Order is an explicit byte order. The zero value is invalid.
type Order uint8

const (
	Little Order = 1 + iota
	Big
)

// native is resolved once at package load. Everything downstream branches
// on this single value instead of re-detecting the machine order.
var native = resolveNative()

func resolveNative() Order {
	if binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 0x0001 {
		return Little
	}
	return Big
}

// Native returns the byte order of the running machine.
func Native() Order { return native }

// Parse resolves the textual form used in configs and flags.
func Parse(s string) (Order, error) {
	switch s {
	case "little":
		return Little, nil
	case "big":
		return Big, nil
	default:
		return 0, fmt.Errorf("invalid `order`; expected: little or big, given: %q", s)
	}
}

func (o Order) String() string {
	switch o {
	case Little:
		return "little"
	case Big:
		return "big"
	default:
		return fmt.Sprintf("order(%d)", uint8(o))
	}
}

func (o Order) Validate() error {
	if o != Little && o != Big {
		return fmt.Errorf("invalid `order`; expected: little or big, given: %d", uint8(o))
	}
	return nil
}

// IsNative reports whether o matches the machine order.
func (o Order) IsNative() bool { return o == native }

// Binary returns the encoding/binary implementation of o. The order must be
// valid.
func (o Order) Binary() binary.ByteOrder {
	if o == Little {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Reverse mirrors b in place, converting a whole value between the two
// orders. Applying it twice restores the input.
func Reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

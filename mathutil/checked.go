// Package mathutil implements overflow-checked arithmetic over the
// unsigned integer amounts this ledger uses for coin values (spec
// §9: amounts are fixed-width unsigned integers, never floats).
package mathutil

import (
	"math"

	"github.com/davincci9412/Cil-core/errors"
)

// ErrOverflow is the error callers report when one of the checked
// operations below signals overflow or underflow; the operations
// themselves return ok == false rather than an error.
var ErrOverflow = errors.New("arithmetic overflow")

// AddUint64 returns a + b with an overflow check.
func AddUint64(a, b uint64) (sum uint64, ok bool) {
	sum = a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SubUint64 returns a - b with an underflow check.
func SubUint64(a, b uint64) (diff uint64, ok bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// MulUint64 returns a * b with an overflow check.
func MulUint64(a, b uint64) (product uint64, ok bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product = a * b
	if product/a != b {
		return 0, false
	}
	return product, true
}

// SumUint64 adds a slice of amounts, checking for overflow at each
// step.
func SumUint64(vals ...uint64) (sum uint64, ok bool) {
	for _, v := range vals {
		sum, ok = AddUint64(sum, v)
		if !ok {
			return 0, false
		}
	}
	return sum, true
}

// FitsInt64 reports whether v can be represented as an int64, a
// boundary check used when amounts cross into APIs (e.g. sandbox
// numeric literals) that operate in signed space.
func FitsInt64(v uint64) bool {
	return v <= math.MaxInt64
}

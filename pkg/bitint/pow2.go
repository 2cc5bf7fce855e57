// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to size the sample
ring buffer and the analysis window.

The ring buffer masks its cursor with (capacity-1) and the radix-2
transforms require a power-of-two length, so both sizes are validated with
IsPowerOfTwo at construction. NextPowerOfTwo is used to suggest a valid
size when configuration rejects one.

	size := bitint.NextPowerOfTwo(30000) // 32768
	ok := bitint.IsPowerOfTwo(size)      // true

Subtracting one before taking the bit length keeps exact powers of two
unchanged: for 8, bits.Len(7) is 3 and 1<<3 is 8, whereas bits.Len(8) would
give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Zero and negative inputs return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two n. The result is
// undefined for other inputs.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}

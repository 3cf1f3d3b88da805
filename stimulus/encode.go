// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stimulus

import (
	"math"
	"math/big"
)

// FullScale returns the signed full-scale magnitude of a bits wide sample,
// 2^(bits-1) - 1.
//
func FullScale(bits int) int64 {
	return int64(1)<<uint(bits-1) - 1
}

func mask(bits int) uint64 {
	return uint64(1)<<uint(bits) - 1
}

// Encode returns sample i of a one period sine sweep of the given number of
// samples, rounded half to even and truncated to a bits wide unsigned field.
//
func Encode(i, samples, bits int) uint64 {
	v := float64(FullScale(bits)) * math.Sin(2*math.Pi*float64(i)/float64(samples))
	return Unsigned(int64(math.RoundToEven(v)), bits)
}

// Unsigned truncates s to a bits wide two's complement bit pattern.
//
func Unsigned(s int64, bits int) uint64 {
	return uint64(s) & mask(bits)
}

// Decode interprets the low bits of v as a two's complement number.
//
func Decode(v uint64, bits int) int64 {
	v &= mask(bits)
	if v&(uint64(1)<<uint(bits-1)) != 0 {
		return int64(v) - int64(uint64(1)<<uint(bits))
	}
	return int64(v)
}

// Expected returns the unit-normalized reference level for the driven field v.
//
func Expected(v uint64, bits int, vref float64) float64 {
	return float64(Decode(v, bits)) / float64(uint64(1)<<uint(bits-1)) * vref
}

// Word places v in the slice of channel ch of a width bits wide bus, all other
// slices being zero.
//
func Word(v uint64, ch, bits, width int) *big.Int {
	w := new(big.Int).SetUint64(v & mask(bits))
	w.Lsh(w, uint(ch*bits))
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	m.Sub(m, big.NewInt(1))
	return w.And(w, m)
}

/*
 * bits.go, part of mdbench.
 *
 * Copyright 2024 The mdbench authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package xtc

//The bit-level machinery of the xdr3dfcoord compression used in XTC files.
//Coordinates are stored as integers (coordinate*precision). Integers are written
//MSB-first in a bit stream. Triplets of integers are packed together as a single
//mixed-radix number, where each radix is the range of values of that coordinate.

// magicints holds the possible ranges for the small (delta-encoded) integers.
// The values are chosen so that 3 integers below magicints[i] fit in i bits.
var magicints = [...]uint32{
	0, 0, 0, 0, 0, 0, 0, 0, 0,
	8, 10, 12, 16, 20, 25, 32, 40, 50, 64,
	80, 101, 128, 161, 203, 256, 322, 406, 512, 645,
	812, 1024, 1290, 1625, 2048, 2580, 3250, 4096, 5060, 6501,
	8192, 10321, 13003, 16384, 20642, 26007, 32768, 41285, 52015, 65536,
	82570, 104031, 131072, 165140, 208063, 262144, 330280, 416127, 524287, 660561,
	832255, 1048576, 1321122, 1664510, 2097152, 2642245, 3329021, 4194304, 5284491, 6658042,
	8388607, 10568983, 13316085, 16777216,
}

const (
	firstIdx = 9 //magicints[firstIdx-1] == 0
	lastIdx  = len(magicints)
)

// sizeOfInt returns the number of bits needed to store size.
func sizeOfInt(size uint32) int {
	var num uint64 = 1
	bits := 0
	for uint64(size) >= num && bits < 32 {
		bits++
		num <<= 1
	}
	return bits
}

// sizeOfInts returns the number of bits needed to store the product of the sizes.
// The product is computed byte-wise, since it can be larger than 64 bits.
func sizeOfInts(sizes [3]uint32) int {
	var bytes [32]uint32
	nbytes := 1
	bytes[0] = 1
	for _, s := range sizes {
		var tmp uint64
		bc := 0
		for ; bc < nbytes; bc++ {
			tmp = uint64(bytes[bc])*uint64(s) + tmp
			bytes[bc] = uint32(tmp & 0xff)
			tmp >>= 8
		}
		for tmp != 0 {
			bytes[bc] = uint32(tmp & 0xff)
			bc++
			tmp >>= 8
		}
		nbytes = bc
	}
	var num uint32 = 1
	bits := 0
	nbytes--
	for bytes[nbytes] >= num {
		bits++
		num *= 2
	}
	return bits + nbytes*8
}

// bitReader reads integers of arbitrary bit length from a byte slice, MSB first.
type bitReader struct {
	buf []byte
	off int //in bits
	err bool
}

// bits reads n bits (n <= 32) and returns them as an unsigned integer.
// Reading past the end of the buffer sets the err flag and returns 0.
func (b *bitReader) bits(n int) uint32 {
	var v uint64
	for n > 0 {
		i := b.off >> 3
		if i >= len(b.buf) {
			b.err = true
			return 0
		}
		avail := 8 - b.off&7
		take := min(avail, n)
		cur := uint64(b.buf[i]) >> (avail - take) & (1<<take - 1)
		v = v<<take | cur
		b.off += take
		n -= take
	}
	return uint32(v)
}

// ints reads a triplet packed with writeInts in nbits bits. sizes are the
// radixes of the three integers.
func (b *bitReader) ints(nbits int, sizes [3]uint32, nums *[3]int32) {
	var bytes [32]uint64
	nbytes := 0
	for nbits > 8 {
		bytes[nbytes] = uint64(b.bits(8))
		nbytes++
		nbits -= 8
	}
	if nbits > 0 {
		bytes[nbytes] = uint64(b.bits(nbits))
		nbytes++
	}
	for i := 2; i > 0; i-- {
		var num uint64
		s := uint64(sizes[i])
		for j := nbytes - 1; j >= 0; j-- {
			num = num<<8 | bytes[j]
			p := num / s
			bytes[j] = p
			num -= p * s
		}
		nums[i] = int32(num)
	}
	nums[0] = int32(bytes[0] | bytes[1]<<8 | bytes[2]<<16 | bytes[3]<<24)
}

// bitWriter is the counterpart of bitReader.
type bitWriter struct {
	buf  []byte
	cur  byte
	fill int //bits used in cur
}

func (w *bitWriter) reset() {
	w.buf = w.buf[:0]
	w.cur = 0
	w.fill = 0
}

// bits writes the n lowest bits of v. n can be larger than 32, in which case
// the extra (high) bits are zeros.
func (w *bitWriter) bits(n int, v uint32) {
	for n > 0 {
		space := 8 - w.fill
		take := min(space, n)
		chunk := byte(uint64(v) >> (n - take) & (1<<take - 1))
		w.cur |= chunk << (space - take)
		w.fill += take
		n -= take
		if w.fill == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur = 0
			w.fill = 0
		}
	}
}

// ints packs the triplet nums, where nums[i] < sizes[i], in nbits bits.
func (w *bitWriter) ints(nbits int, sizes [3]uint32, nums [3]uint32) {
	var bytes [32]uint32
	nbytes := 0
	tmp := nums[0]
	for {
		bytes[nbytes] = tmp & 0xff
		nbytes++
		tmp >>= 8
		if tmp == 0 {
			break
		}
	}
	for i := 1; i < 3; i++ {
		t := uint64(nums[i])
		bc := 0
		for ; bc < nbytes; bc++ {
			t = uint64(bytes[bc])*uint64(sizes[i]) + t
			bytes[bc] = uint32(t & 0xff)
			t >>= 8
		}
		for t != 0 {
			bytes[bc] = uint32(t & 0xff)
			bc++
			t >>= 8
		}
		nbytes = bc
	}
	if nbits >= nbytes*8 {
		for i := 0; i < nbytes; i++ {
			w.bits(8, bytes[i])
		}
		w.bits(nbits-nbytes*8, 0)
		return
	}
	for i := 0; i < nbytes-1; i++ {
		w.bits(8, bytes[i])
	}
	w.bits(nbits-(nbytes-1)*8, bytes[nbytes-1])
}

// bytes flushes the partial byte, if any, and returns the written stream.
func (w *bitWriter) bytes() []byte {
	if w.fill > 0 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.fill = 0
	}
	return w.buf
}

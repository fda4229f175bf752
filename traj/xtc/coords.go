/*
 * coords.go, part of mdbench.
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

import (
	"fmt"
	"math"
)

// packedCoords is a frame of compressed coordinates, as stored after the box in an XTC frame.
type packedCoords struct {
	precision float32
	minint    [3]int32
	maxint    [3]int32
	smallidx  int32
	data      []byte
}

func iabs(a int32) int32 {
	if a < 0 {
		return -a
	}
	return a
}

// sizes returns the ranges of the three coordinates, and either the bits needed for
// the packed triplet or, if the ranges are too large to multiply, the bits for each one.
// In the latter case the first return value is 0.
func (p *packedCoords) sizes() (int, [3]uint32, [3]int) {
	var sizeint [3]uint32
	var bitsizeint [3]int
	for i := range sizeint {
		sizeint[i] = uint32(int64(p.maxint[i]) - int64(p.minint[i]) + 1)
	}
	if (sizeint[0] | sizeint[1] | sizeint[2]) > 0xffffff {
		for i, v := range sizeint {
			bitsizeint[i] = sizeOfInt(v)
		}
		return 0, sizeint, bitsizeint
	}
	return sizeOfInts(sizeint), sizeint, bitsizeint
}

// unpack decodes natoms coordinates into dst, multiplying each by scale.
func (p *packedCoords) unpack(dst []float64, natoms int, scale float64) error {
	if len(dst) < 3*natoms {
		return fmt.Errorf("%d coordinates can't hold %d atoms", len(dst), natoms)
	}
	if !(p.precision > 0) {
		return fmt.Errorf("invalid precision %v", p.precision)
	}
	for i := range p.minint {
		if p.maxint[i] < p.minint[i] {
			return fmt.Errorf("invalid coordinate range %d-%d", p.minint[i], p.maxint[i])
		}
	}
	smallidx := int(p.smallidx)
	if smallidx < firstIdx || smallidx >= lastIdx {
		return fmt.Errorf("invalid small index %d", smallidx)
	}
	bitsize, sizeint, bitsizeint := p.sizes()
	smaller := int32(magicints[max(firstIdx, smallidx-1)] / 2)
	smallnum := int32(magicints[smallidx] / 2)
	sizesmall := [3]uint32{magicints[smallidx], magicints[smallidx], magicints[smallidx]}
	invp := 1 / p.precision
	br := bitReader{buf: p.data}
	var this, prev [3]int32
	emit := func(c [3]int32, o int) {
		dst[o] = float64(float32(c[0])*invp) * scale
		dst[o+1] = float64(float32(c[1])*invp) * scale
		dst[o+2] = float64(float32(c[2])*invp) * scale
	}
	run := 0
	i := 0
	for i < natoms {
		if bitsize == 0 {
			this[0] = int32(br.bits(bitsizeint[0]))
			this[1] = int32(br.bits(bitsizeint[1]))
			this[2] = int32(br.bits(bitsizeint[2]))
		} else {
			br.ints(bitsize, sizeint, &this)
		}
		this[0] += p.minint[0]
		this[1] += p.minint[1]
		this[2] += p.minint[2]
		prev = this
		o := 3 * i
		i++
		isSmaller := 0
		if br.bits(1) == 1 {
			run = int(br.bits(5))
			isSmaller = run % 3
			run -= isSmaller
			isSmaller--
		}
		if i+run/3 > natoms {
			return fmt.Errorf("run of %d atoms after atom %d exceeds %d atoms", run/3, i, natoms)
		}
		if run > 0 {
			for k := 0; k < run; k += 3 {
				br.ints(smallidx, sizesmall, &this)
				i++
				this[0] += prev[0] - smallnum
				this[1] += prev[1] - smallnum
				this[2] += prev[2] - smallnum
				if k == 0 {
					//The first two atoms of a run are interchanged, which
					//compresses water better.
					this, prev = prev, this
					emit(prev, o)
					o += 3
				} else {
					prev = this
				}
				emit(this, o)
				o += 3
			}
		} else {
			emit(this, o)
		}
		smallidx += isSmaller
		if smallidx < firstIdx || smallidx >= lastIdx {
			return fmt.Errorf("invalid small index %d after atom %d", smallidx, i)
		}
		if isSmaller < 0 {
			smallnum = smaller
			if smallidx > firstIdx {
				smaller = int32(magicints[smallidx-1] / 2)
			} else {
				smaller = 0
			}
		} else if isSmaller > 0 {
			smaller = smallnum
			smallnum = int32(magicints[smallidx] / 2)
		}
		sizesmall = [3]uint32{magicints[smallidx], magicints[smallidx], magicints[smallidx]}
		if br.err {
			return fmt.Errorf("compressed data ended after %d of %d atoms", i, natoms)
		}
	}
	return nil
}

// packer compresses frames. It keeps its buffers between frames.
type packer struct {
	ints []int32
	w    bitWriter
}

// pack compresses coords, which are in nm, with the given precision.
// The returned data is only valid until the next call.
func (pk *packer) pack(coords []float32, precision float32) (*packedCoords, error) {
	natoms := len(coords) / 3
	if cap(pk.ints) < len(coords) {
		pk.ints = make([]int32, len(coords))
	}
	ic := pk.ints[:len(coords)]
	p := &packedCoords{precision: precision}
	p.minint = [3]int32{math.MaxInt32, math.MaxInt32, math.MaxInt32}
	p.maxint = [3]int32{math.MinInt32, math.MinInt32, math.MinInt32}
	var mindiff int64 = math.MaxInt32
	var old [3]int64
	for a := 0; a < natoms; a++ {
		var l [3]int64
		for k := 0; k < 3; k++ {
			f := float64(coords[3*a+k] * precision)
			if f >= 0 {
				f += 0.5
			} else {
				f -= 0.5
			}
			if math.Abs(f) > math.MaxInt32-2 || math.IsNaN(f) {
				return nil, fmt.Errorf("coordinate %v of atom %d overflows with precision %v", coords[3*a+k], a, precision)
			}
			l[k] = int64(f)
			ic[3*a+k] = int32(l[k])
			p.minint[k] = min(p.minint[k], ic[3*a+k])
			p.maxint[k] = max(p.maxint[k], ic[3*a+k])
		}
		diff := abs64(old[0]-l[0]) + abs64(old[1]-l[1]) + abs64(old[2]-l[2])
		if a > 0 && diff < mindiff {
			mindiff = diff
		}
		old = l
	}
	for k := 0; k < 3; k++ {
		if int64(p.maxint[k])-int64(p.minint[k]) >= math.MaxInt32-2 {
			return nil, fmt.Errorf("coordinate range too large for precision %v", precision)
		}
	}
	bitsize, sizeint, bitsizeint := p.sizes()
	smallidx := firstIdx
	for smallidx < lastIdx-1 && int64(magicints[smallidx]) < mindiff {
		smallidx++
	}
	p.smallidx = int32(smallidx)
	maxidx := min(lastIdx-1, smallidx+8)
	minidx := maxidx - 8
	smaller := int32(magicints[max(firstIdx, smallidx-1)] / 2)
	smallnum := int32(magicints[smallidx] / 2)
	sizesmall := [3]uint32{magicints[smallidx], magicints[smallidx], magicints[smallidx]}
	larger := int32(magicints[maxidx] / 2)

	w := &pk.w
	w.reset()
	var prev [3]int32
	var tmpcoord [24]uint32
	prevrun := -1
	i := 0
	for i < natoms {
		isSmall := false
		this := ic[3*i : 3*i+3]
		isSmaller := 0
		if smallidx < maxidx && i >= 1 &&
			iabs(this[0]-prev[0]) < larger &&
			iabs(this[1]-prev[1]) < larger &&
			iabs(this[2]-prev[2]) < larger {
			isSmaller = 1
		} else if smallidx > minidx {
			isSmaller = -1
		}
		if i+1 < natoms {
			next := ic[3*i+3 : 3*i+6]
			if iabs(this[0]-next[0]) < smallnum &&
				iabs(this[1]-next[1]) < smallnum &&
				iabs(this[2]-next[2]) < smallnum {
				//interchange first with second atom, see unpack.
				this[0], next[0] = next[0], this[0]
				this[1], next[1] = next[1], this[1]
				this[2], next[2] = next[2], this[2]
				isSmall = true
			}
		}
		tc := [3]uint32{uint32(this[0] - p.minint[0]), uint32(this[1] - p.minint[1]), uint32(this[2] - p.minint[2])}
		if bitsize == 0 {
			w.bits(bitsizeint[0], tc[0])
			w.bits(bitsizeint[1], tc[1])
			w.bits(bitsizeint[2], tc[2])
		} else {
			w.ints(bitsize, sizeint, tc)
		}
		copy(prev[:], this)
		i++
		run := 0
		if !isSmall && isSmaller == -1 {
			isSmaller = 0
		}
		for isSmall && run < 8*3 {
			this = ic[3*i : 3*i+3]
			var tmpsum int64
			for j := 0; j < 3; j++ {
				d := int64(this[j] - prev[j])
				tmpsum += d * d
			}
			if isSmaller == -1 && tmpsum >= int64(smaller)*int64(smaller) {
				isSmaller = 0
			}
			tmpcoord[run] = uint32(this[0] - prev[0] + smallnum)
			tmpcoord[run+1] = uint32(this[1] - prev[1] + smallnum)
			tmpcoord[run+2] = uint32(this[2] - prev[2] + smallnum)
			run += 3
			copy(prev[:], this)
			i++
			isSmall = false
			if i < natoms &&
				iabs(ic[3*i]-prev[0]) < smallnum &&
				iabs(ic[3*i+1]-prev[1]) < smallnum &&
				iabs(ic[3*i+2]-prev[2]) < smallnum {
				isSmall = true
			}
		}
		if run != prevrun || isSmaller != 0 {
			prevrun = run
			w.bits(1, 1) //the run length changed
			w.bits(5, uint32(run+isSmaller+1))
		} else {
			w.bits(1, 0)
		}
		for k := 0; k < run; k += 3 {
			w.ints(smallidx, sizesmall, [3]uint32{tmpcoord[k], tmpcoord[k+1], tmpcoord[k+2]})
		}
		if isSmaller != 0 {
			smallidx += isSmaller
			if isSmaller < 0 {
				smallnum = smaller
				smaller = int32(magicints[smallidx-1] / 2)
			} else {
				smaller = smallnum
				smallnum = int32(magicints[smallidx] / 2)
			}
			sizesmall = [3]uint32{magicints[smallidx], magicints[smallidx], magicints[smallidx]}
		}
	}
	p.data = w.bytes()
	return p, nil
}

func abs64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

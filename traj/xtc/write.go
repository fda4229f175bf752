/*
 * write.go, part of mdbench.
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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	v3 "github.com/rmera/mdbench/v3"
)

// DefaultPrecision is the precision (1/nm) used by GROMACS for XTC output.
const DefaultPrecision float32 = 1000

// XTCWObj writes XTC trajectories.
type XTCWObj struct {
	w         *bufio.Writer
	f         io.Closer
	filename  string
	natoms    int
	precision float32
	writable  bool
	frame     int
	hbuf      []byte
	coords    []float32
	pk        packer
}

// NewWriter creates the file filename and returns an XTCWObj to write natoms-atom frames to it.
// precision, if given, is the number of decimal positions kept per nm (GROMACS'
// "precision", 1000 by default).
func NewWriter(filename string, natoms int, precision ...float32) (*XTCWObj, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, Error{UnableToOpen, filename, []string{"NewWriter"}, true, err}
	}
	X := NewStreamWriter(f, natoms, precision...)
	X.filename = filename
	X.f = f
	return X, nil
}

// NewStreamWriter returns an XTCWObj that writes to w. Closing the XTCWObj
// flushes, but doesn't close, w.
func NewStreamWriter(w io.Writer, natoms int, precision ...float32) *XTCWObj {
	X := &XTCWObj{w: bufio.NewWriter(w), natoms: natoms, precision: DefaultPrecision, writable: true}
	if len(precision) > 0 && precision[0] > 0 {
		X.precision = precision[0]
	}
	X.coords = make([]float32, 3*natoms)
	return X
}

// Len returns the number of atoms per frame.
func (X *XTCWObj) Len() int {
	return X.natoms
}

// WNext writes the coordinates in towrite (Angstroms) as the next frame. The box, if given,
// is a 9-element row-major matrix in Angstroms. The frame index is used as MD
// step and as time (ps).
func (X *XTCWObj) WNext(towrite *v3.Matrix, box ...[]float64) error {
	if !X.writable {
		return Error{TrajUnIniWrite, X.filename, []string{"WNext"}, true, nil}
	}
	if towrite == nil {
		return Error{NilCoordinates, X.filename, []string{"WNext"}, true, nil}
	}
	if towrite.NVecs() != X.natoms {
		return Error{fmt.Sprintf("%s: %d atoms given, %d expected", WrongFormat, towrite.NVecs(), X.natoms), X.filename, []string{"WNext"}, true, nil}
	}
	for i := 0; i < X.natoms; i++ {
		for j := 0; j < 3; j++ {
			X.coords[3*i+j] = float32(towrite.At(i, j) / nmToA)
		}
	}
	b := X.hbuf[:0]
	b = be.AppendUint32(b, uint32(magic))
	b = be.AppendUint32(b, uint32(X.natoms))
	b = be.AppendUint32(b, uint32(X.frame))
	b = be.AppendUint32(b, math.Float32bits(float32(X.frame)))
	for i := 0; i < 9; i++ {
		var v float32
		if len(box) > 0 && len(box[0]) >= 9 {
			v = float32(box[0][i] / nmToA)
		}
		b = be.AppendUint32(b, math.Float32bits(v))
	}
	b = be.AppendUint32(b, uint32(X.natoms))
	var data []byte
	if X.natoms <= 9 {
		for _, v := range X.coords {
			b = be.AppendUint32(b, math.Float32bits(v))
		}
	} else {
		p, err := X.pk.pack(X.coords, X.precision)
		if err != nil {
			return Error{WriteError, X.filename, []string{"WNext"}, true, err}
		}
		b = be.AppendUint32(b, math.Float32bits(p.precision))
		for _, v := range p.minint {
			b = be.AppendUint32(b, uint32(v))
		}
		for _, v := range p.maxint {
			b = be.AppendUint32(b, uint32(v))
		}
		b = be.AppendUint32(b, uint32(p.smallidx))
		b = be.AppendUint32(b, uint32(len(p.data)))
		data = p.data
	}
	X.hbuf = b
	var pad [3]byte
	for _, chunk := range [][]byte{b, data, pad[:(4-len(data)%4)%4]} {
		if _, err := X.w.Write(chunk); err != nil {
			X.writable = false
			return Error{WriteError, X.filename, []string{"WNext"}, true, err}
		}
	}
	X.frame++
	return nil
}

// Close flushes the pending frames and, if the object created the file, closes it.
func (X *XTCWObj) Close() error {
	if X.w == nil {
		return nil
	}
	X.writable = false
	err := X.w.Flush()
	X.w = nil
	if X.f != nil {
		if cerr := X.f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return Error{WriteError, X.filename, []string{"Close"}, true, err}
	}
	return nil
}

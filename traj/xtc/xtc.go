/*
 * xtc.go, part of mdbench.
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
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/rmera/mdbench/traj/internal/source"
	v3 "github.com/rmera/mdbench/v3"
)

//The layout of an XTC frame (all XDR, i.e. big endian, 4-byte words):
//magic (1995), natoms, step, time, box (9 floats, nm), natoms again.
//Frames with 9 atoms or less then store the coordinates as plain floats.
//Larger frames store precision, minint[3], maxint[3], smallidx, the length
//in bytes of the compressed coordinates and the compressed coordinates,
//padded to a multiple of 4 bytes.

const (
	magic            int32 = 1995
	headerSize             = 56
	packedHeaderSize       = 36
	nmToA                  = 10
)

var be = binary.BigEndian

type frameHeader struct {
	natoms int
	step   int
	time   float32
	box    [9]float32
	packed packedCoords
	nbytes int
}

// payload returns the number of bytes between the end of the header and the next frame.
func (h *frameHeader) payload() int64 {
	if h.natoms <= 9 {
		return int64(12 * h.natoms)
	}
	return int64((h.nbytes + 3) &^ 3)
}

// XTCObj is a GROMACS XTC trajectory file opened for reading.
type XTCObj struct {
	readable bool
	natoms   int
	frames   int
	filename string
	src      source.Source
	hbuf     [headerSize + packedHeaderSize]byte
	h        frameHeader
	buf      []byte
	step     int
	time     float32
}

// New opens the XTC file filename for reading. If the name ends in .gz
// .zst or .lzw, the file is decompressed on the fly. The whole file is scanned
// once to count its frames.
func New(filename string) (*XTCObj, error) {
	X := &XTCObj{filename: filename}
	var err error
	X.src, err = source.Open(filename)
	if err != nil {
		return nil, Error{UnableToOpen, filename, []string{"New"}, true, err}
	}
	if err := X.index(); err != nil {
		X.src.Close()
		return nil, errDecorate(err, "New")
	}
	X.readable = true
	return X, nil
}

// index counts the frames of the trajectory, and checks that all have the same
// number of atoms. It leaves the trajectory at its beginning.
func (X *XTCObj) index() error {
	X.frames = 0
	h := &X.h
	for {
		err := X.readHeader(h)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errDecorate(err, "index")
		}
		if X.frames == 0 {
			X.natoms = h.natoms
		} else if h.natoms != X.natoms {
			return Error{fmt.Sprintf("%s: frame %d has %d atoms, expected %d", WrongFormat, X.frames, h.natoms, X.natoms), X.filename, []string{"index"}, true, nil}
		}
		if err := X.src.Skip(h.payload()); err != nil {
			return Error{fmt.Sprintf("%s: frame %d is truncated", WrongFormat, X.frames), X.filename, []string{"index"}, true, err}
		}
		X.frames++
	}
	if err := X.src.Rewind(); err != nil {
		return Error{ReadError, X.filename, []string{"index"}, true, err}
	}
	return nil
}

// readHeader reads the header of the next frame into h. It returns io.EOF, and
// only io.EOF, if there are no more frames.
func (X *XTCObj) readHeader(h *frameHeader) error {
	b := X.hbuf[:headerSize]
	if _, err := io.ReadFull(X.src, b); err != nil {
		if err == io.EOF {
			return err
		}
		return Error{WrongFormat + ": truncated frame header", X.filename, []string{"readHeader"}, true, err}
	}
	if m := int32(be.Uint32(b)); m != magic {
		return Error{fmt.Sprintf("%s: magic number %d, expected %d", WrongFormat, m, magic), X.filename, []string{"readHeader"}, true, nil}
	}
	h.natoms = int(int32(be.Uint32(b[4:])))
	h.step = int(int32(be.Uint32(b[8:])))
	h.time = math.Float32frombits(be.Uint32(b[12:]))
	for i := range h.box {
		h.box[i] = math.Float32frombits(be.Uint32(b[16+4*i:]))
	}
	if n := int(int32(be.Uint32(b[52:]))); n != h.natoms || n < 0 {
		return Error{fmt.Sprintf("%s: inconsistent number of atoms %d and %d", WrongFormat, h.natoms, n), X.filename, []string{"readHeader"}, true, nil}
	}
	if h.natoms <= 9 {
		h.nbytes = 0
		return nil
	}
	b = X.hbuf[headerSize:]
	if _, err := io.ReadFull(X.src, b); err != nil {
		return Error{WrongFormat + ": truncated frame header", X.filename, []string{"readHeader"}, true, err}
	}
	p := &h.packed
	p.precision = math.Float32frombits(be.Uint32(b))
	for i := 0; i < 3; i++ {
		p.minint[i] = int32(be.Uint32(b[4+4*i:]))
		p.maxint[i] = int32(be.Uint32(b[16+4*i:]))
	}
	p.smallidx = int32(be.Uint32(b[28:]))
	nb := int32(be.Uint32(b[32:]))
	if nb < 0 {
		return Error{fmt.Sprintf("%s: negative data size %d", WrongFormat, nb), X.filename, []string{"readHeader"}, true, nil}
	}
	h.nbytes = int(nb)
	return nil
}

// Readable returns true if the object is ready to be read from
// false otherwise. It doesnt guarantee that there is something
// to read.
func (X *XTCObj) Readable() bool {
	return X.readable
}

// Len returns the number of atoms per frame in the XTCObj.
func (X *XTCObj) Len() int {
	return X.natoms
}

// NFrames returns the number of frames in the trajectory.
func (X *XTCObj) NFrames() int {
	return X.frames
}

// Step returns the MD step of the last frame read.
func (X *XTCObj) Step() int {
	return X.step
}

// Time returns the simulation time (ps) of the last frame read.
func (X *XTCObj) Time() float64 {
	return float64(X.time)
}

// Next reads the next frame of the trajectory into output, in Angstroms. If output is
// nil, the frame is skipped without decoding it. If box is given, its first element
// gets the box vectors (row-major, 9 elements, Angstroms). output needs to be
// contiguous (i.e. not a view) and to have at least Len() vectors.
// At the end of the trajectory, Next returns an error that implements mdbench.LastFrameError.
func (X *XTCObj) Next(output *v3.Matrix, box ...[]float64) error {
	if !X.readable {
		return Error{TrajUnIni, X.filename, []string{"Next"}, true, nil}
	}
	if output != nil && X.natoms > 0 && (output.NVecs() < X.natoms || output.RawMatrix().Stride != 3) {
		return Error{NotEnoughSpace, X.filename, []string{"Next"}, true, nil}
	}
	h := &X.h
	if err := X.readHeader(h); err != nil {
		X.readable = false
		if err == io.EOF {
			return newlastFrameError(X.filename, "Next")
		}
		return errDecorate(err, "Next")
	}
	if h.natoms != X.natoms {
		X.readable = false
		return Error{fmt.Sprintf("%s: frame with %d atoms, expected %d", WrongFormat, h.natoms, X.natoms), X.filename, []string{"Next"}, true, nil}
	}
	X.step, X.time = h.step, h.time
	if len(box) > 0 && len(box[0]) >= 9 {
		for i, v := range h.box {
			box[0][i] = nmToA * float64(v)
		}
	}
	n := h.payload()
	if output == nil {
		if err := X.src.Skip(n); err != nil {
			X.readable = false
			return Error{ReadError, X.filename, []string{"Next"}, true, err}
		}
		return nil
	}
	if int64(cap(X.buf)) < n {
		X.buf = make([]byte, n)
	}
	buf := X.buf[:n]
	if _, err := io.ReadFull(X.src, buf); err != nil {
		X.readable = false
		return Error{ReadError, X.filename, []string{"Next"}, true, err}
	}
	dst := output.Vecs()
	if h.natoms <= 9 {
		for i := 0; i < 3*h.natoms; i++ {
			dst[i] = nmToA * float64(math.Float32frombits(be.Uint32(buf[4*i:])))
		}
		return nil
	}
	h.packed.data = buf[:h.nbytes]
	if err := h.packed.unpack(dst, h.natoms, nmToA); err != nil {
		X.readable = false
		return Error{WrongFormat, X.filename, []string{"Next"}, true, err}
	}
	return nil
}

// Rewind puts the trajectory back before its first frame.
func (X *XTCObj) Rewind() error {
	if X.src == nil {
		return Error{TrajUnIni, X.filename, []string{"Rewind"}, true, nil}
	}
	if err := X.src.Rewind(); err != nil {
		X.readable = false
		return Error{ReadError, X.filename, []string{"Rewind"}, true, err}
	}
	X.readable = true
	return nil
}

// Close closes the file. The object can't be used afterwards.
func (X *XTCObj) Close() error {
	X.readable = false
	if X.src == nil {
		return nil
	}
	err := X.src.Close()
	X.src = nil
	return err
}

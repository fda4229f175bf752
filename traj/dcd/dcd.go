/*
 * dcd.go, part of mdbench.
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

package dcd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/rmera/mdbench/traj/internal/source"
	v3 "github.com/rmera/mdbench/v3"
)

const MAXTITLE int32 = 80

// akmaPs is the CHARMM (AKMA) time unit in ps.
const akmaPs = 0.04888821

// DCDObj is a Charmm/NAMD binary trajectory file opened for reading.
type DCDObj struct {
	natoms     int
	frames     int
	readable   bool
	filename   string
	charmm     bool //Charmm traj? otherwise, X-plor
	extrablock bool //unit cell in each frame
	fourdim    bool
	istart     int32
	nsavc      int32
	delta      float64
	headerSize int64
	src        source.Source
	endian     binary.ByteOrder
	fields     [3][]float32
	cell       [6]float64
	hascell    bool
	read       int //frames read since the last rewind
}

// New opens the DCD file filename for reading. Big and little endian,
// CHARMM (and NAMD) and X-plor files are supported, but not fixed atoms.
// Files ending in .gz, .zst or .lzw are decompressed on the fly.
func New(filename string) (*DCDObj, error) {
	D := &DCDObj{filename: filename}
	if err := D.initRead(); err != nil {
		if D.src != nil {
			D.src.Close()
		}
		return nil, errDecorate(err, "New")
	}
	if err := D.index(); err != nil {
		D.src.Close()
		return nil, errDecorate(err, "New")
	}
	//Every counted frame had blocks of natoms floats, so natoms can be trusted now.
	if D.frames > 0 {
		for i := range D.fields {
			D.fields[i] = make([]float32, D.natoms)
		}
	}
	D.readable = true
	return D, nil
}

func (D *DCDObj) formatError(message string, err error, caller string) Error {
	return Error{message, D.filename, []string{caller}, true, err}
}

// initRead reads the header of the file.
func (D *DCDObj) initRead() error {
	var err error
	D.src, err = source.Open(D.filename)
	if err != nil {
		return Error{UnableToOpen, D.filename, []string{"initRead"}, true, err}
	}
	var hdr [92]byte
	if _, err := io.ReadFull(D.src, hdr[:]); err != nil {
		return D.formatError(WrongFormat+": truncated header", err, "initRead")
	}
	//The first thing in the file is an 84. If we don't find it
	//the file must be big endian.
	D.endian = binary.LittleEndian
	if D.endian.Uint32(hdr[:]) != 84 {
		D.endian = binary.BigEndian
		if D.endian.Uint32(hdr[:]) != 84 {
			return D.formatError(WrongFormat+": no header block", nil, "initRead")
		}
	}
	if string(hdr[4:8]) != "CORD" {
		return D.formatError(WrongFormat+": wrong magic number", nil, "initRead")
	}
	if D.endian.Uint32(hdr[88:]) != 84 {
		return D.formatError(WrongFormat+": header block not terminated", nil, "initRead")
	}
	buf := hdr[8:88]
	D.istart = int32(D.endian.Uint32(buf[4:]))
	D.nsavc = max(int32(D.endian.Uint32(buf[8:])), 1)
	//X-plor sets this last int to zero, charmm sets it to its version number.
	//if we have a charmm file we get some additional flags.
	if D.endian.Uint32(buf[76:]) != 0 {
		D.charmm = true
		D.extrablock = D.endian.Uint32(buf[40:]) != 0
		D.fourdim = D.endian.Uint32(buf[44:]) == 1
		D.delta = float64(math.Float32frombits(D.endian.Uint32(buf[36:])))
	} else {
		D.delta = math.Float64frombits(D.endian.Uint64(buf[36:]))
	}
	if fixed := int32(D.endian.Uint32(buf[32:])); fixed != 0 {
		return D.formatError(fmt.Sprintf("%s: %d fixed atoms, fixed atoms are not supported", WrongFormat, fixed), nil, "initRead")
	}
	//The title is made of ntitle lines of MAXTITLE characters.
	var tsize, ntitle int32
	if err := D.ints(&tsize, &ntitle); err != nil {
		return errDecorate(err, "initRead")
	}
	if ntitle < 0 || tsize < 4 {
		return D.formatError(fmt.Sprintf("%s: title block of %d bytes with %d lines", WrongFormat, tsize, ntitle), nil, "initRead")
	}
	if err := D.src.Skip(int64(tsize - 4)); err != nil {
		return D.formatError(WrongFormat+": truncated title", err, "initRead")
	}
	if err := D.trailer(tsize); err != nil {
		return errDecorate(err, "initRead")
	}
	var four, natoms, four2 int32
	if err := D.ints(&four, &natoms, &four2); err != nil {
		return errDecorate(err, "initRead")
	}
	if four != 4 || four2 != 4 || natoms < 0 || natoms > math.MaxInt32/4 {
		return D.formatError(WrongFormat+": wrong atom number block", nil, "initRead")
	}
	D.natoms = int(natoms)
	D.headerSize = int64(len(hdr)) + 4 + int64(tsize) + 4 + 12
	return nil
}

// ints reads the given int32s in order.
func (D *DCDObj) ints(v ...*int32) error {
	for _, i := range v {
		if err := binary.Read(D.src, D.endian, i); err != nil {
			return D.formatError(WrongFormat, err, "ints")
		}
	}
	return nil
}

// trailer reads the marker at the end of a block, which must be equal to size.
func (D *DCDObj) trailer(size int32) error {
	var check int32
	if err := D.ints(&check); err != nil {
		return err
	}
	if check != size {
		return D.formatError(fmt.Sprintf("%s: block of %d bytes ends with %d", WrongFormat, size, check), nil, "trailer")
	}
	return nil
}

// block reads into dst (or skips, if dst is nil) a block of size bytes, plus its trailing marker.
func (D *DCDObj) block(size int32, dst any) error {
	var err error
	if dst == nil {
		err = D.src.Skip(int64(size))
	} else {
		err = binary.Read(D.src, D.endian, dst)
	}
	if err != nil {
		return D.formatError(WrongFormat+": truncated block", err, "block")
	}
	return D.trailer(size)
}

// readFrame reads the next frame into D.fields, or skips it if keep is false.
// It returns io.EOF, and only io.EOF, if there are no more frames.
func (D *DCDObj) readFrame(keep bool) error {
	var size int32
	if err := binary.Read(D.src, D.endian, &size); err != nil {
		if err == io.EOF {
			return err
		}
		return D.formatError(WrongFormat+": truncated frame", err, "readFrame")
	}
	natoms4 := int32(4 * D.natoms)
	//Even when there is an extra block, it is not present in all
	//snapshots for some trajectories, so we use the block size to see if
	//there is an extra block or if the X block starts inmediately.
	//A 48-byte block is the unit cell even if it has the size of an X block (12 atoms).
	if D.extrablock && (size != natoms4 || size == 48) {
		var dst any
		D.hascell = keep && size == 48
		if D.hascell {
			dst = D.cell[:]
		}
		if err := D.block(size, dst); err != nil {
			return errDecorate(err, "readFrame")
		}
		if err := D.ints(&size); err != nil {
			return errDecorate(err, "readFrame")
		}
	}
	for i := range D.fields {
		if i > 0 {
			if err := D.ints(&size); err != nil {
				return errDecorate(err, "readFrame")
			}
		}
		if size != natoms4 {
			return D.formatError(fmt.Sprintf("%s: coordinate block of %d bytes for %d atoms", WrongFormat, size, D.natoms), nil, "readFrame")
		}
		var dst any
		if keep {
			dst = D.fields[i]
		}
		if err := D.block(size, dst); err != nil {
			return errDecorate(err, "readFrame")
		}
	}
	//The 4-D values are not present in the last snapshot of some files.
	if D.charmm && D.fourdim {
		if err := binary.Read(D.src, D.endian, &size); err != nil {
			if err == io.EOF {
				return nil
			}
			return D.formatError(WrongFormat+": truncated frame", err, "readFrame")
		}
		if err := D.block(size, nil); err != nil {
			return errDecorate(err, "readFrame")
		}
	}
	return nil
}

// index counts the frames in the file and goes back to the first one.
func (D *DCDObj) index() error {
	D.frames = 0
	for {
		err := D.readFrame(false)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errDecorate(err, "index")
		}
		D.frames++
	}
	return D.Rewind()
}

// Readable returns true if the object is ready to be read from
// false otherwise. It doesnt guarantee that there is something
// to read.
func (D *DCDObj) Readable() bool {
	return D.readable
}

// Len returns the number of atoms per frame in the DCDObj.
func (D *DCDObj) Len() int {
	return D.natoms
}

// NFrames returns the number of frames in the file.
func (D *DCDObj) NFrames() int {
	return D.frames
}

// Step returns the MD step of the last frame read.
func (D *DCDObj) Step() int {
	return int(D.istart) + (D.read-1)*int(D.nsavc)
}

// Time returns the simulation time, in ps, of the last frame read.
func (D *DCDObj) Time() float64 {
	return float64(D.Step()) * D.delta * akmaPs
}

// Next reads the next frame into keep. If keep is nil, the frame is skipped.
// If box is given and the file has unit cell information, the lengths of the
// cell are put in the diagonal of box[0] (row-major 3x3). The cell angles are ignored.
// At the end of the trajectory, Next returns an error that implements mdbench.LastFrameError.
func (D *DCDObj) Next(keep *v3.Matrix, box ...[]float64) error {
	if !D.readable {
		return Error{TrajUnIni, D.filename, []string{"Next"}, true, nil}
	}
	if keep != nil && keep.NVecs() < D.natoms {
		return Error{NotEnoughSpace, D.filename, []string{"Next"}, true, nil}
	}
	if err := D.readFrame(keep != nil); err != nil {
		D.readable = false
		if err == io.EOF {
			return newlastFrameError(D.filename, "Next")
		}
		return errDecorate(err, "Next")
	}
	D.read++
	if keep == nil {
		return nil
	}
	for i := 0; i < D.natoms; i++ {
		keep.SetVec(i, float64(D.fields[0][i]), float64(D.fields[1][i]), float64(D.fields[2][i]))
	}
	if D.hascell && len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		for i := range b[:9] {
			b[i] = 0
		}
		//the cell is stored as A, gamma, B, beta, alpha, C
		b[0], b[4], b[8] = D.cell[0], D.cell[2], D.cell[5]
	}
	return nil
}

// Rewind puts the trajectory back before its first frame.
func (D *DCDObj) Rewind() error {
	if D.src == nil {
		return Error{TrajUnIni, D.filename, []string{"Rewind"}, true, nil}
	}
	err := D.src.Rewind()
	if err == nil {
		err = D.src.Skip(D.headerSize)
	}
	if err != nil {
		D.readable = false
		return Error{ReadError, D.filename, []string{"Rewind"}, true, err}
	}
	D.read = 0
	D.readable = true
	return nil
}

// Close closes the file. The object can't be used afterwards.
func (D *DCDObj) Close() error {
	D.readable = false
	if D.src == nil {
		return nil
	}
	err := D.src.Close()
	D.src = nil
	return err
}

/*
 * dcd_write.go, part of mdbench.
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
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	v3 "github.com/rmera/mdbench/v3"
)

// DCDWObj is a Charmm/NAMD binary trajectory file opened for writing.
type DCDWObj struct {
	natoms   int32
	writable bool
	filename string
	unitcell bool
	frames   int32
	dcd      *os.File
	w        *bufio.Writer
	fields   [3][]float32
	endian   binary.ByteOrder
}

// NewWriter creates filename and writes the header of a CHARMM-style, little endian, DCD
// trajectory of natoms atoms. If unitcell is given and true, each frame includes
// the unit cell.
func NewWriter(filename string, natoms int, unitcell ...bool) (*DCDWObj, error) {
	D := &DCDWObj{natoms: int32(natoms), filename: filename, endian: binary.LittleEndian}
	D.unitcell = len(unitcell) > 0 && unitcell[0]
	if err := D.initWrite(); err != nil {
		return nil, errDecorate(err, "NewWriter")
	}
	for i := range D.fields {
		D.fields[i] = make([]float32, natoms)
	}
	return D, nil
}

// Len returns the number of atoms per frame.
func (D *DCDWObj) Len() int {
	return int(D.natoms)
}

func (D *DCDWObj) wrapbinerr(err error, caller string) error {
	return Error{WriteError, D.filename, []string{"binary.Write", caller}, true, err}
}

// write writes the given values in order.
func (D *DCDWObj) write(caller string, v ...any) error {
	for _, i := range v {
		if err := binary.Write(D.w, D.endian, i); err != nil {
			return D.wrapbinerr(err, caller)
		}
	}
	return nil
}

func (D *DCDWObj) initWrite() error {
	if D.natoms <= 0 {
		return Error{fmt.Sprintf("%s: %d atoms", TrajUnIniWrite, D.natoms), D.filename, []string{"initWrite"}, true, nil}
	}
	var err error
	D.dcd, err = os.Create(D.filename)
	if err != nil {
		return Error{UnableToOpen, D.filename, []string{"os.Create", "initWrite"}, true, err}
	}
	D.w = bufio.NewWriter(D.dcd)
	var cell int32
	if D.unitcell {
		cell = 1
	}
	//The frame count (third value) is updated when the file is closed.
	//Then come the first step, the step interval and 6 zeros.
	icntrl := make([]int32, 0, 20)
	icntrl = append(icntrl, 0, 0, 1, 0, 0, 0, 0, 0, 0)
	title := make([]byte, MAXTITLE)
	copy(title, "Created by mdbench")
	for i := len("Created by mdbench"); i < len(title); i++ {
		title[i] = ' '
	}
	err = D.write("initWrite",
		int32(84), []byte("CORD"), icntrl,
		float32(1), //time step
		cell,
		make([]int32, 8),
		int32(24), //charmm version
		int32(84),
		4+MAXTITLE, int32(1), title, 4+MAXTITLE,
		int32(4), D.natoms, int32(4),
	)
	if err != nil {
		D.dcd.Close()
		return err
	}
	D.writable = true
	return nil
}

// WNext writes the next frame to the trajectory. If the file was
// created with unit cell information, the diagonal of box[0] (a row-major
// 3x3 matrix) is written as an orthorhombic cell.
func (D *DCDWObj) WNext(towrite *v3.Matrix, box ...[]float64) error {
	if !D.writable {
		return Error{TrajUnIniWrite, D.filename, []string{"WNext"}, true, nil}
	}
	if towrite == nil {
		return Error{NilCoordinates, D.filename, []string{"WNext"}, true, nil}
	}
	if int32(towrite.NVecs()) != D.natoms {
		return Error{fmt.Sprintf("%s: %d atoms given, %d expected", WrongFormat, towrite.NVecs(), D.natoms), D.filename, []string{"WNext"}, true, nil}
	}
	for i := 0; i < int(D.natoms); i++ {
		D.fields[0][i] = float32(towrite.At(i, 0))
		D.fields[1][i] = float32(towrite.At(i, 1))
		D.fields[2][i] = float32(towrite.At(i, 2))
	}
	if D.unitcell {
		//A, gamma, B, beta, alpha, C
		cell := []float64{0, 90, 0, 90, 90, 0}
		if len(box) > 0 && len(box[0]) >= 9 {
			cell[0], cell[2], cell[5] = box[0][0], box[0][4], box[0][8]
		}
		if err := D.write("WNext", int32(48), cell, int32(48)); err != nil {
			return err
		}
	}
	blocksize := 4 * D.natoms
	for _, f := range D.fields {
		if err := D.write("WNext", blocksize, f, blocksize); err != nil {
			return err
		}
	}
	D.frames++
	return nil
}

// updateFrames writes the number of frames in the header.
// DCD requires the number of frames at the begining.
func (D *DCDWObj) updateFrames() error {
	if err := D.w.Flush(); err != nil {
		return D.wrapbinerr(err, "updateFrames")
	}
	var b [4]byte
	D.endian.PutUint32(b[:], uint32(D.frames))
	//84, "CORD", nframes
	if _, err := D.dcd.WriteAt(b[:], 8); err != nil {
		return Error{WriteError, D.filename, []string{"WriteAt", "updateFrames"}, true, err}
	}
	return nil
}

// Close writes the frame count to the header and closes the file.
func (D *DCDWObj) Close() error {
	if !D.writable {
		return nil
	}
	D.writable = false
	err := D.updateFrames()
	if cerr := D.dcd.Close(); err == nil && cerr != nil {
		err = Error{WriteError, D.filename, []string{"Close"}, true, cerr}
	}
	return err
}

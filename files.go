/*
 * files.go, part of mdbench.
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

package mdbench

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/mdbench/v3"
)

const groFormat = "gro"

//Messages for the errors in this package.
const (
	UnableToOpen    = "Unable to open file"
	WrongFormat     = "Wrong format"
	NotEnoughSpace  = "Not enough space in passed coordinates"
	MismatchedAtoms = "Topology and trajectory have different number of atoms"
)

//GRO read/write family.
//A .gro line has fixed columns for the residue number, residue name, atom name and
//atom number (5 chars each). The coordinates come after, in nm, with a width of 8 by default.
//GROMACS allows a larger width (more precision), which is detected from the distance
//between the decimal points of the first atom line.

// groPrealloc is the largest number of atoms allocated before reading the atom lines.
const groPrealloc = 1 << 16

// GroRead reads the first frame of the GROMACS structure file name. It returns the topology,
// the coordinates in Angstroms and the box vectors (row-major, 9 elements, Angstroms).
func GroRead(name string) (*Topology, *v3.Matrix, []float64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, nil, CError{msg: UnableToOpen, filename: name, format: groFormat, deco: []string{"GroRead"}, critical: true, err: err}
	}
	defer f.Close()
	top, coords, box, err := GroReadFrom(f, name)
	return top, coords, box, errDecorate(err, "GroRead")
}

// GroReadFrom is like GroRead, but reads from r. name is only used for error messages.
func GroReadFrom(r io.Reader, name string) (*Topology, *v3.Matrix, []float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	lineno := 0
	ferr := func(msg string, err error) error {
		return CError{msg: fmt.Sprintf("%s: line %d: %s", WrongFormat, lineno, msg), filename: name, format: groFormat, deco: []string{"GroReadFrom"}, critical: true, err: err}
	}
	next := func() bool {
		lineno++
		return sc.Scan()
	}
	if !next() {
		return nil, nil, nil, ferr("missing title", sc.Err())
	}
	title := strings.TrimSpace(sc.Text())
	if !next() {
		return nil, nil, nil, ferr("missing number of atoms", sc.Err())
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || natoms < 0 {
		return nil, nil, nil, ferr("can't read number of atoms", err)
	}
	//The count is not trusted until the atom lines are there.
	prealloc := min(natoms, groPrealloc)
	atoms := make([]*Atom, 0, prealloc)
	data := make([]float64, 0, 3*prealloc)
	var xyz [3]float64
	width := 0
	for i := 0; i < natoms; i++ {
		if !next() {
			return nil, nil, nil, ferr(fmt.Sprintf("expected %d atoms, found %d", natoms, i), sc.Err())
		}
		line := sc.Text()
		if width == 0 {
			width = groFieldWidth(line)
		}
		at, err := groAtom(line, width, xyz[:])
		if err != nil {
			return nil, nil, nil, ferr(err.Error(), err)
		}
		atoms = append(atoms, at)
		data = append(data, xyz[:]...)
	}
	coords, err := v3.NewMatrix(data)
	if err != nil {
		return nil, nil, nil, ferr(err.Error(), err)
	}
	if !next() {
		return nil, nil, nil, ferr("missing box line", sc.Err())
	}
	box, err := groBox(sc.Text())
	if err != nil {
		return nil, nil, nil, ferr(err.Error(), err)
	}
	return &Topology{Atoms: atoms, Title: title}, coords, box, nil
}

// groFieldWidth returns the width of the coordinate fields of a .gro atom line.
func groFieldWidth(line string) int {
	const def = 8
	if len(line) <= 20 {
		return def
	}
	p1 := strings.IndexByte(line[20:], '.')
	if p1 < 0 {
		return def
	}
	p2 := strings.IndexByte(line[20+p1+1:], '.')
	if p2 < 0 {
		return def
	}
	return p2 + 1
}

// groAtom parses one atom line. The coordinates are put in dst, in Angstroms.
func groAtom(line string, width int, dst []float64) (*Atom, error) {
	if len(line) < 20+3*width {
		return nil, fmt.Errorf("atom line too short: %q", line)
	}
	var err error
	at := new(Atom)
	at.MolID, err = strconv.Atoi(strings.TrimSpace(line[0:5]))
	if err != nil {
		return nil, fmt.Errorf("can't read residue number: %w", err)
	}
	at.MolName = strings.TrimSpace(line[5:10])
	at.Name = strings.TrimSpace(line[10:15])
	at.ID, err = strconv.Atoi(strings.TrimSpace(line[15:20]))
	if err != nil {
		return nil, fmt.Errorf("can't read atom number: %w", err)
	}
	for k := 0; k < 3; k++ {
		field := line[20+k*width : 20+(k+1)*width]
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("can't read coordinate %d: %w", k, err)
		}
		dst[k] = 10 * f //nm to Angstroms
	}
	at.Symbol = symbolFromName(at.Name, at.MolName)
	at.Mass = symbolMass[at.Symbol]
	return at, nil
}

// groBox parses the box line: v1(x) v2(y) v3(z), optionally followed by
// v1(y) v1(z) v2(x) v2(z) v3(x) v3(y). The box is returned row-major, one
// box vector per row.
func groBox(line string) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 && len(fields) != 9 {
		return nil, fmt.Errorf("box line should have 3 or 9 values, it has %d", len(fields))
	}
	order := [9]int{0, 4, 8, 1, 2, 3, 5, 6, 7}
	box := make([]float64, 9)
	for i, v := range fields {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("can't read box value %d: %w", i, err)
		}
		box[order[i]] = 10 * f
	}
	return box, nil
}

// GroWrite writes a GROMACS structure file with the given topology, coordinates (Angstroms)
// and box (9 elements, Angstroms, can be nil) to w.
func GroWrite(w io.Writer, top *Topology, coords *v3.Matrix, box []float64) error {
	if coords == nil || coords.NVecs() != top.Len() {
		return CError{msg: MismatchedAtoms, format: groFormat, deco: []string{"GroWrite"}, critical: true}
	}
	bw := bufio.NewWriter(w)
	title := strings.ReplaceAll(top.Title, "\n", " ")
	fmt.Fprintf(bw, "%s\n%5d\n", title, top.Len())
	for i, at := range top.Atoms {
		fmt.Fprintf(bw, "%5d%-5.5s%5.5s%5d%8.3f%8.3f%8.3f\n", at.MolID%100000, at.MolName, at.Name, at.ID%100000,
			coords.At(i, 0)/10, coords.At(i, 1)/10, coords.At(i, 2)/10)
	}
	b := make([]float64, 9)
	if len(box) >= 9 {
		for i := range b {
			b[i] = box[i] / 10
		}
	}
	fmt.Fprintf(bw, "%10.5f%10.5f%10.5f", b[0], b[4], b[8])
	if b[1] != 0 || b[2] != 0 || b[3] != 0 || b[5] != 0 || b[6] != 0 || b[7] != 0 {
		fmt.Fprintf(bw, "%10.5f%10.5f%10.5f%10.5f%10.5f%10.5f", b[1], b[2], b[3], b[5], b[6], b[7])
	}
	fmt.Fprintln(bw)
	return bw.Flush()
}

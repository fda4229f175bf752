/*
 * chem.go, part of mdbench.
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

import "fmt"

// Atom contains the per-atom information of a topology. Coordinates are kept
// in a separate v3.Matrix.
type Atom struct {
	Name    string
	ID      int
	MolName string
	MolID   int
	Mass    float64
	Symbol  string
}

/*****Topology type***/

// Topology contains information about a molecule which is not expected to change in time (i.e. everything except for coordinates)
type Topology struct {
	Atoms []*Atom
	Title string
}

// NewTopology makes a topology with the given atoms. It returns error if the slice contains nil atoms.
func NewTopology(title string, ats []*Atom) (*Topology, error) {
	for i, v := range ats {
		if v == nil {
			return nil, fmt.Errorf("NewTopology: atom %d is nil", i)
		}
	}
	return &Topology{Atoms: ats, Title: title}, nil
}

// Atom returns the Atom corresponding to the index i
// of the Atom slice in the Topology. Panics if out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

// Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	if T == nil {
		return 0
	}
	return len(T.Atoms)
}

// Masses returns a slice with the masses of all atoms. It returns an error
// if an atom has a zero mass, which happens when its element could not be guessed.
func (T *Topology) Masses() ([]float64, error) {
	mass := make([]float64, T.Len())
	for i, v := range T.Atoms {
		if v.Mass == 0 {
			return mass, fmt.Errorf("Masses: atom %d (%s) has no mass", i, v.Name)
		}
		mass[i] = v.Mass
	}
	return mass, nil
}

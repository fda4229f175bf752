/*
 * files_test.go, part of mdbench.
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
	"bytes"
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

const groWater = `Two waters, t= 0.0
    6
    1SOL     OW    1   0.126   1.624   1.679
    1SOL    HW1    2   0.190   1.661   1.747
    1SOL    HW2    3   0.177   1.568   1.613
    2SOL     OW    4   1.275   0.053   0.622  0.1 0.2 0.3
    2SOL    HW1    5   1.337   0.002   0.680  0.1 0.2 0.3
    2SOL    HW2    6   1.326   0.120   0.568  0.1 0.2 0.3
   1.86206   1.86206   1.86206
`

func TestGroRead(Te *testing.T) {
	top, coords, box, err := GroReadFrom(strings.NewReader(groWater), "water.gro")
	if err != nil {
		Te.Fatal(err)
	}
	if top.Len() != 6 || coords.NVecs() != 6 {
		Te.Fatalf("got %d atoms and %d coordinates, want 6", top.Len(), coords.NVecs())
	}
	if top.Title != "Two waters, t= 0.0" {
		Te.Errorf("title %q", top.Title)
	}
	at := top.Atom(3)
	if at.Name != "OW" || at.MolName != "SOL" || at.MolID != 2 || at.ID != 4 || at.Symbol != "O" {
		Te.Errorf("wrong fourth atom %+v", at)
	}
	if top.Atom(1).Symbol != "H" {
		Te.Errorf("HW1 symbol %q", top.Atom(1).Symbol)
	}
	if _, err := top.Masses(); err != nil {
		Te.Error(err)
	}
	if math.Abs(coords.At(3, 0)-12.75) > 1e-9 || math.Abs(coords.At(5, 2)-5.68) > 1e-9 {
		Te.Errorf("coordinates not in A: %v %v", coords.VecView(3), coords.VecView(5))
	}
	if math.Abs(box[0]-18.6206) > 1e-9 || box[4] != box[0] || box[8] != box[0] || box[1] != 0 {
		Te.Errorf("wrong box %v", box)
	}
}

func TestGroWidePrecision(Te *testing.T) {
	//GROMACS writes one more decimal per field when asked for more precision.
	gro := "wide\n1\n    1ALA      N    1   0.1234   1.2345  -2.3456\n   3.0   4.0   5.0   0.0   0.0   1.0   0.0   0.0   0.0\n"
	_, coords, box, err := GroReadFrom(strings.NewReader(gro), "wide.gro")
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(coords.At(0, 2)+23.456) > 1e-9 {
		Te.Errorf("wide coordinates: %v", coords.VecView(0))
	}
	if box[0] != 30 || box[4] != 40 || box[8] != 50 || box[3] != 10 {
		Te.Errorf("triclinic box %v", box)
	}
}

func TestGroRoundTrip(Te *testing.T) {
	top, coords, box, err := GroReadFrom(strings.NewReader(groWater), "water.gro")
	if err != nil {
		Te.Fatal(err)
	}
	var b bytes.Buffer
	if err := GroWrite(&b, top, coords, box); err != nil {
		Te.Fatal(err)
	}
	top2, coords2, box2, err := GroReadFrom(&b, "again.gro")
	if err != nil {
		Te.Fatal(err)
	}
	if top2.Len() != top.Len() || top2.Atom(5).Name != "HW2" {
		Te.Errorf("topology changed: %d atoms", top2.Len())
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(coords.At(i, j)-coords2.At(i, j)) > 1e-9 {
				Te.Errorf("atom %d changed: %v %v", i, coords.VecView(i), coords2.VecView(i))
			}
		}
	}
	if math.Abs(box2[4]-box[4]) > 1e-4 {
		Te.Errorf("box changed: %v %v", box, box2)
	}
}

func TestGroErrors(Te *testing.T) {
	cases := []struct {
		name string
		gro  string
	}{
		{"empty", ""},
		{"bad count", "title\nsix\n"},
		{"missing atoms", "title\n3\n    1SOL     OW    1   0.126   1.624   1.679\n"},
		{"huge count", "title\n99999999999\n    1SOL     OW    1   0.126   1.624   1.679\n"},
		{"short line", "title\n1\n    1SOL     OW    1   0.126\n 1 1 1\n"},
		{"bad coordinate", "title\n1\n    1SOL     OW    1   0.126   x.624   1.679\n 1 1 1\n"},
		{"missing box", "title\n1\n    1SOL     OW    1   0.126   1.624   1.679\n"},
		{"bad box", "title\n1\n    1SOL     OW    1   0.126   1.624   1.679\n 1 1\n"},
	}
	for _, c := range cases {
		_, _, _, err := GroReadFrom(strings.NewReader(c.gro), c.name)
		if err == nil {
			Te.Errorf("%s: no error", c.name)
			continue
		}
		if !IsFormatError(err) {
			Te.Errorf("%s: not a format error: %v", c.name, err)
		}
	}
	_, _, _, err := GroRead(filepath.Join(Te.TempDir(), "nothere.gro"))
	if !errors.Is(err, fs.ErrNotExist) || IsFormatError(err) {
		Te.Errorf("missing file: got %v", err)
	}
}

/*
 * universe_test.go, part of mdbench.
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
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/mdbench/traj/dcd"
	"github.com/rmera/mdbench/traj/xtc"
	v3 "github.com/rmera/mdbench/v3"
)

// waterSystem returns the topology and the coordinates of frame f of nmol
// water molecules moving along x.
func waterSystem(nmol, f int) (*Topology, *v3.Matrix) {
	names := []string{"OW", "HW1", "HW2"}
	atoms := make([]*Atom, 0, 3*nmol)
	coords := v3.Zeros(3 * nmol)
	for m := 0; m < nmol; m++ {
		x, y, z := float64(m%10)*3.1+0.5*float64(f), float64(m/10)*3.1, 1.0
		pos := [][3]float64{{x, y, z}, {x + 0.96, y, z}, {x - 0.24, y + 0.93, z}}
		for k, n := range names {
			i := 3*m + k
			atoms = append(atoms, &Atom{Name: n, ID: i + 1, MolName: "SOL", MolID: m + 1, Symbol: n[:1]})
			coords.SetVec(i, pos[k][0], pos[k][1], pos[k][2])
		}
	}
	top, _ := NewTopology("water", atoms)
	return top, coords
}

func writeSystem(Te *testing.T, dir string, nmol, nframes int) (string, string) {
	Te.Helper()
	top, coords := waterSystem(nmol, 0)
	box := []float64{31, 0, 0, 0, 31, 0, 0, 0, 31}
	groname := filepath.Join(dir, "test.gro")
	f, err := os.Create(groname)
	if err != nil {
		Te.Fatal(err)
	}
	if err := GroWrite(f, top, coords, box); err != nil {
		Te.Fatal(err)
	}
	f.Close()
	xtcname := filepath.Join(dir, "test.xtc")
	w, err := xtc.NewWriter(xtcname, 3*nmol)
	if err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < nframes; i++ {
		_, c := waterSystem(nmol, i)
		if err := w.WNext(c, box); err != nil {
			Te.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		Te.Fatal(err)
	}
	return groname, xtcname
}

func TestUniverse(Te *testing.T) {
	gro, traj := writeSystem(Te, Te.TempDir(), 40, 7)
	u, err := NewUniverse(gro, traj)
	if err != nil {
		Te.Fatal(err)
	}
	defer u.Close()
	if u.NAtoms() != 120 || u.NFrames() != 7 {
		Te.Fatalf("got %d atoms and %d frames, want 120 and 7", u.NAtoms(), u.NFrames())
	}
	if u.Topology().Atom(0).Name != "OW" {
		Te.Errorf("first atom %+v", u.Topology().Atom(0))
	}
	for pass := 0; pass < 3; pass++ {
		n := 0
		for ts, err := range u.Frames() {
			if err != nil {
				Te.Fatal(err)
			}
			if ts.Frame != n || ts.Step != n {
				Te.Errorf("pass %d: frame %d has index %d and step %d", pass, n, ts.Frame, ts.Step)
			}
			_, want := waterSystem(40, n)
			if d := math.Abs(ts.Coords.At(31, 0) - want.At(31, 0)); d > 0.006 {
				Te.Errorf("pass %d frame %d: got %v want %v", pass, n, ts.Coords.VecView(31), want.VecView(31))
			}
			if math.Abs(ts.Box[4]-31) > 1e-4 {
				Te.Errorf("box %v", ts.Box)
			}
			n++
		}
		if n != 7 {
			Te.Errorf("pass %d: %d frames, want 7", pass, n)
		}
	}
}

func TestUniverseBreak(Te *testing.T) {
	gro, traj := writeSystem(Te, Te.TempDir(), 5, 4)
	u, err := NewUniverse(gro, traj)
	if err != nil {
		Te.Fatal(err)
	}
	defer u.Close()
	n := 0
	for _, err := range u.Frames() {
		if err != nil {
			Te.Fatal(err)
		}
		n++
		break
	}
	for _, err := range u.Frames() {
		if err != nil {
			Te.Fatal(err)
		}
		n++
	}
	if n != 5 {
		Te.Errorf("one frame and then a full pass gave %d frames, want 5", n)
	}
}

func TestUniverseDCD(Te *testing.T) {
	dir := Te.TempDir()
	gro, _ := writeSystem(Te, dir, 10, 1)
	name := filepath.Join(dir, "test.dcd")
	w, err := dcd.NewWriter(name, 30)
	if err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_, c := waterSystem(10, i)
		w.WNext(c)
	}
	if err := w.Close(); err != nil {
		Te.Fatal(err)
	}
	u, err := NewUniverse(gro, name)
	if err != nil {
		Te.Fatal(err)
	}
	defer u.Close()
	n := 0
	for ts, err := range u.Frames() {
		if err != nil {
			Te.Fatal(err)
		}
		_, want := waterSystem(10, n)
		if math.Abs(ts.Coords.At(4, 0)-want.At(4, 0)) > 1e-5 {
			Te.Errorf("frame %d: got %v", n, ts.Coords.VecView(4))
		}
		n++
	}
	if n != 3 || u.NFrames() != 3 {
		Te.Errorf("read %d frames, NFrames %d, want 3", n, u.NFrames())
	}
}

func TestUniverseNoTrajectory(Te *testing.T) {
	gro, _ := writeSystem(Te, Te.TempDir(), 3, 1)
	u, err := NewUniverse(gro, "")
	if err != nil {
		Te.Fatal(err)
	}
	defer u.Close()
	for pass := 0; pass < 2; pass++ {
		n := 0
		for ts, err := range u.Frames() {
			if err != nil {
				Te.Fatal(err)
			}
			if math.Abs(ts.Coords.At(2, 1)-0.93) > 1e-9 {
				Te.Errorf("coordinates from the gro file: %v", ts.Coords.VecView(2))
			}
			n++
		}
		if n != 1 || u.NFrames() != 1 {
			Te.Errorf("in-memory trajectory: %d frames", n)
		}
	}
}

func TestUniverseErrors(Te *testing.T) {
	dir := Te.TempDir()
	gro, traj := writeSystem(Te, dir, 4, 2)
	other, _ := writeSystem(Te, Te.TempDir(), 5, 1)
	bad := filepath.Join(dir, "bad.xtc")
	if err := os.WriteFile(bad, []byte("not an xtc file, not an xtc file, not an xtc file, not an xtc file"), 0o644); err != nil {
		Te.Fatal(err)
	}
	cases := []struct {
		name      string
		top, traj string
		notExist  bool
		formatErr bool
	}{
		{"missing topology", filepath.Join(dir, "no.gro"), traj, true, false},
		{"missing trajectory", gro, filepath.Join(dir, "no.xtc"), true, false},
		{"unknown format", gro, filepath.Join(dir, "t.trr"), false, true},
		{"atom mismatch", other, traj, false, true},
		{"bad trajectory", gro, bad, false, true},
	}
	for _, c := range cases {
		u, err := NewUniverse(c.top, c.traj)
		if err == nil {
			u.Close()
			Te.Errorf("%s: no error", c.name)
			continue
		}
		if errors.Is(err, fs.ErrNotExist) != c.notExist || IsFormatError(err) != c.formatErr {
			Te.Errorf("%s: unexpected error %v", c.name, err)
		}
	}
}

func TestTrajFormat(Te *testing.T) {
	cases := map[string]string{
		"":                "",
		"a/b/test.xtc":    "xtc",
		"test.XTC.gz":     "xtc",
		"run.v2/traj.dcd": "dcd",
		"traj.dcd.lzw":    "dcd",
		"traj.xtc.zst":    "xtc",
	}
	for name, want := range cases {
		if got := trajFormat(name); got != want {
			Te.Errorf("trajFormat(%q) = %q, want %q", name, got, want)
		}
	}
}

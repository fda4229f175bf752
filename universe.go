/*
 * universe.go, part of mdbench.
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
	"fmt"
	"iter"
	"strings"

	"github.com/rmera/mdbench/traj/dcd"
	"github.com/rmera/mdbench/traj/xtc"
	v3 "github.com/rmera/mdbench/v3"
)

// Timestep is one frame of a trajectory. A Universe reuses the same Timestep
// (and its coordinates) for every frame it reads, so the values are only
// valid until the next frame is read.
type Timestep struct {
	Frame  int //index of the frame in the trajectory, starting from 0
	Step   int //MD step, if the format stores it
	Time   float64
	Coords *v3.Matrix
	Box    []float64
}

// Universe pairs a topology with a trajectory.
// It is not safe for concurrent use.
type Universe struct {
	top  *Topology
	traj RewindTraj
	ts   *Timestep
}

// NewUniverse reads the topology from the .gro file topology and opens the trajectory
// file trajectory. The trajectory format is chosen from the file extension: .xtc (also .xtc.gz
// and .xtc.zst), .dcd (also .dcd.gz and .dcd.lzw). If trajectory is empty, the coordinates in the
// topology file are used as a trajectory with one frame.
func NewUniverse(topology, trajectory string) (*Universe, error) {
	top, coords, box, err := GroRead(topology)
	if err != nil {
		return nil, errDecorate(err, "NewUniverse")
	}
	var traj RewindTraj
	switch trajFormat(trajectory) {
	case "":
		traj = newMemTraj(coords, box)
	case "xtc":
		traj, err = xtc.New(trajectory)
	case "dcd":
		traj, err = dcd.New(trajectory)
	default:
		err = CError{msg: fmt.Sprintf("Unknown trajectory format for %s", trajectory), filename: trajectory, format: "unknown", critical: true}
	}
	if err != nil {
		return nil, errDecorate(err, "NewUniverse")
	}
	return newUniverse(top, traj)
}

// NewUniverseFromTraj builds a Universe from an already opened trajectory.
func NewUniverseFromTraj(top *Topology, traj RewindTraj) (*Universe, error) {
	U, err := newUniverse(top, traj)
	return U, errDecorate(err, "NewUniverseFromTraj")
}

func newUniverse(top *Topology, traj RewindTraj) (*Universe, error) {
	//An empty trajectory has no atoms to compare with.
	if traj.NFrames() > 0 && traj.Len() != top.Len() {
		traj.Close()
		return nil, CError{msg: fmt.Sprintf("%s: %d vs %d", MismatchedAtoms, top.Len(), traj.Len()), critical: true}
	}
	U := &Universe{top: top, traj: traj}
	U.ts = &Timestep{Coords: v3.Zeros(top.Len()), Box: make([]float64, 9)}
	return U, nil
}

// trajFormat returns the trajectory format for the file name, ignoring
// a compression extension.
func trajFormat(name string) string {
	if name == "" {
		return ""
	}
	n := strings.ToLower(name)
	for _, c := range []string{".gz", ".zst", ".lzw"} {
		n = strings.TrimSuffix(n, c)
	}
	i := strings.LastIndexByte(n, '.')
	if i < 0 {
		return n
	}
	return n[i+1:]
}

// NAtoms returns the number of atoms in the Universe.
func (U *Universe) NAtoms() int {
	return U.top.Len()
}

// NFrames returns the number of frames in the trajectory.
func (U *Universe) NFrames() int {
	return U.traj.NFrames()
}

// Topology returns the topology of the Universe.
func (U *Universe) Topology() *Topology {
	return U.top
}

// Close releases the trajectory.
func (U *Universe) Close() error {
	return U.traj.Close()
}

// Frames returns an iterator over the frames of the trajectory. Every call
// starts again from the first frame. The iteration stops at the end of the
// trajectory, or after yielding the first error that is not the normal end of
// the trajectory. The caller may stop early.
func (U *Universe) Frames() iter.Seq2[*Timestep, error] {
	return func(yield func(*Timestep, error) bool) {
		if err := U.traj.Rewind(); err != nil {
			yield(nil, errDecorate(err, "Frames"))
			return
		}
		stepper, _ := U.traj.(Stepper)
		for i := 0; ; i++ {
			err := U.traj.Next(U.ts.Coords, U.ts.Box)
			if err != nil {
				if IsLastFrame(err) {
					return
				}
				yield(nil, errDecorate(err, "Frames"))
				return
			}
			U.ts.Frame = i
			if stepper != nil {
				U.ts.Step = stepper.Step()
				U.ts.Time = stepper.Time()
			}
			if !yield(U.ts, nil) {
				return
			}
		}
	}
}

// memTraj is a one-frame trajectory taken from the coordinates of the topology file.
type memTraj struct {
	coords *v3.Matrix
	box    []float64
	read   bool
}

func newMemTraj(coords *v3.Matrix, box []float64) *memTraj {
	return &memTraj{coords: coords, box: box}
}

func (M *memTraj) Readable() bool { return !M.read }

func (M *memTraj) Len() int { return M.coords.NVecs() }

func (M *memTraj) NFrames() int { return 1 }

func (M *memTraj) Rewind() error {
	M.read = false
	return nil
}

func (M *memTraj) Close() error { return nil }

func (M *memTraj) Next(output *v3.Matrix, box ...[]float64) error {
	if M.read {
		return memLastFrame{}
	}
	M.read = true
	if output != nil {
		if output.NVecs() < M.coords.NVecs() {
			return CError{msg: NotEnoughSpace, format: "memory", deco: []string{"Next"}, critical: true}
		}
		copy(output.Vecs(), M.coords.Vecs())
	}
	if len(box) > 0 && len(box[0]) >= 9 && len(M.box) >= 9 {
		copy(box[0], M.box)
	}
	return nil
}

// memLastFrame implements LastFrameError
type memLastFrame struct{}

func (E memLastFrame) NormalLastFrameTermination() {}
func (E memLastFrame) FileName() string            { return "" }
func (E memLastFrame) Error() string               { return "EOF" }
func (E memLastFrame) Critical() bool              { return false }
func (E memLastFrame) Format() string              { return "memory" }
func (E memLastFrame) Decorate(string) []string    { return nil }

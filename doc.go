/*
 * doc.go, part of mdbench.
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

/*
Package mdbench reads molecular dynamics trajectories and times how fast
they can be iterated.

The Universe type pairs a topology (a GROMACS .gro file) with a trajectory
(GROMACS XTC or CHARMM/NAMD DCD, optionally zstd, gzip or lzw compressed), and
exposes the frames as a restartable sequence:

	u, err := mdbench.NewUniverse("test.gro", "test.xtc")
	if err != nil {
		log.Fatal(err)
	}
	defer u.Close()
	for ts, err := range u.Frames() {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(ts.Frame, ts.Coords.VecView(0))
	}

Coordinates are given in Angstroms, as in goChem. GROMACS files store nm,
their readers do the conversion.

The trajectory readers live in traj/xtc and traj/dcd. They do not import
this package: they satisfy the Traj and LastFrameError interfaces
structurally. The benchmark driver is in the bench package, and the
command line program in cmd/mdbench.
*/
package mdbench

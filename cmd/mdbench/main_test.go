/*
 * main_test.go, part of mdbench.
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

package main

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/mdbench"
	"github.com/rmera/mdbench/traj/xtc"
	v3 "github.com/rmera/mdbench/v3"
)

func writeInputs(Te *testing.T, dir string, natoms, nframes int) (string, string) {
	Te.Helper()
	atoms := make([]*mdbench.Atom, natoms)
	coords := v3.Zeros(natoms)
	for i := range atoms {
		atoms[i] = &mdbench.Atom{Name: "CA", ID: i + 1, MolName: "ALA", MolID: i + 1, Symbol: "C"}
		coords.SetVec(i, 3.8*float64(i), 0.5*float64(i%2), 0)
	}
	top, _ := mdbench.NewTopology("chain", atoms)
	gro := filepath.Join(dir, "test.gro")
	f, err := os.Create(gro)
	if err != nil {
		Te.Fatal(err)
	}
	if err := mdbench.GroWrite(f, top, coords, []float64{100, 0, 0, 0, 100, 0, 0, 0, 100}); err != nil {
		Te.Fatal(err)
	}
	if err := f.Close(); err != nil {
		Te.Fatal(err)
	}
	traj := filepath.Join(dir, "test.xtc")
	w, err := xtc.NewWriter(traj, natoms)
	if err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < nframes; i++ {
		if err := w.WNext(coords); err != nil {
			Te.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		Te.Fatal(err)
	}
	return gro, traj
}

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFlags(Te *testing.T) {
	dir := Te.TempDir()
	gro, traj := writeInputs(Te, dir, 20, 3)
	plot := filepath.Join(dir, "runs.png")
	out, _, err := execute("--topology", gro, "--trajectory", traj, "--json", "--plot", plot, "--log-level", "error")
	if err != nil {
		Te.Fatal(err)
	}
	if !strings.HasPrefix(out, "Frames: 3\nAtoms: 20\nMDAnalysis Run 1: ") {
		Te.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "\"warmup_frames\": 1") {
		Te.Errorf("no JSON report in output:\n%s", out)
	}
	if _, err := os.Stat(plot); err != nil {
		Te.Errorf("plot not saved: %v", err)
	}
}

func TestConfigFile(Te *testing.T) {
	dir := Te.TempDir()
	gro, traj := writeInputs(Te, dir, 12, 2)
	cfg := filepath.Join(dir, "bench.toml")
	content := "topology = \"" + filepath.ToSlash(gro) + "\"\ntrajectory = \"" + filepath.ToSlash(traj) + "\"\nlog-level = \"debug\"\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		Te.Fatal(err)
	}
	out, logs, err := execute("--config", cfg)
	if err != nil {
		Te.Fatal(err)
	}
	if !strings.HasPrefix(out, "Frames: 2\nAtoms: 12\n") || strings.Contains(out, "{") {
		Te.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(logs, "benchmark finished") {
		Te.Errorf("no debug logs:\n%s", logs)
	}
	//flags win over the file
	out, _, err = execute("--config", cfg, "--trajectory", "")
	if err != nil {
		Te.Fatal(err)
	}
	if !strings.HasPrefix(out, "Frames: 1\nAtoms: 12\n") {
		Te.Errorf("trajectory flag ignored:\n%s", out)
	}
}

func TestFailures(Te *testing.T) {
	dir := Te.TempDir()
	out, _, err := execute("--topology", filepath.Join(dir, "test.gro"), "--trajectory", filepath.Join(dir, "test.xtc"))
	if !errors.Is(err, fs.ErrNotExist) || out != "" {
		Te.Errorf("missing files: got %v and output %q", err, out)
	}
	if _, _, err := execute("--log-level", "loud"); err == nil {
		Te.Error("bad log level accepted")
	}
	if _, _, err := execute("extra"); err == nil {
		Te.Error("positional argument accepted")
	}
}

/*
 * bench.go, part of mdbench.
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

// Package bench times how long it takes to iterate over all the frames of a trajectory.
//
// The benchmark opens a topology/trajectory pair, reads one frame to warm up,
// and then reads the whole trajectory twice, timing each pass. The results go to
// an io.Writer (stdout by default), in this order:
//
//	Frames: 10
//	Atoms: 500
//	MDAnalysis Run 1: 0.0123 seconds
//	MDAnalysis Run 2: 0.0119 seconds
//
//	Average time: 0.0121 seconds
//	Average FPS: 826.45
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rmera/mdbench"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// The files used when no others are given.
const (
	DefaultTopology   = "test.gro"
	DefaultTrajectory = "test.xtc"
)

// ErrZeroDuration is returned when both timed passes took no time at all, so
// the frames per second can't be computed.
var ErrZeroDuration = errors.New("average time is zero, frames per second undefined")

// Handle is an opened trajectory. Every call to Frames must start again from
// the first frame. *mdbench.Universe implements Handle.
type Handle interface {
	NAtoms() int
	NFrames() int
	Frames() iter.Seq2[*mdbench.Timestep, error]
}

// RunResult is one timed pass over the trajectory.
type RunResult struct {
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration_ns"`
}

// Result contains everything the benchmark measured.
type Result struct {
	ID         string        `json:"id"`
	Topology   string        `json:"topology,omitempty"`
	Trajectory string        `json:"trajectory,omitempty"`
	Frames     int           `json:"frames"`
	Atoms      int           `json:"atoms"`
	Warmup     int           `json:"warmup_frames"`
	Runs       []RunResult   `json:"runs"`
	Average    time.Duration `json:"average_ns"`
	FPS        float64       `json:"fps"`
}

type state int

const (
	stateInit state = iota
	stateWarmedUp
	stateRun1Done
	stateRun2Done
	stateReported
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateWarmedUp:
		return "warmed-up"
	case stateRun1Done:
		return "run1-done"
	case stateRun2Done:
		return "run2-done"
	case stateReported:
		return "reported"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type options struct {
	out io.Writer
	now func() time.Time
	log *zap.Logger
}

// Option changes how Run works.
type Option func(*options)

// WithOutput sends the console report to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger for the progress of the benchmark. Nothing is logged by default.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// RunFiles opens the topology and trajectory files and benchmarks them with Run.
// Nothing is printed if the files can't be opened.
func RunFiles(ctx context.Context, topology, trajectory string, opts ...Option) (*Result, error) {
	u, err := mdbench.NewUniverse(topology, trajectory)
	if err != nil {
		return nil, fmt.Errorf("opening %s and %s: %w", topology, trajectory, err)
	}
	defer u.Close()
	res, err := Run(ctx, u, opts...)
	if res != nil {
		res.Topology, res.Trajectory = topology, trajectory
	}
	return res, err
}

// Run benchmarks the iteration over the frames of h and prints the results.
// It returns ErrZeroDuration, after printing the average time, if the passes took no
// measurable time.
func Run(ctx context.Context, h Handle, opts ...Option) (*Result, error) {
	o := options{out: os.Stdout, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	res := &Result{ID: uuid.NewString(), Frames: h.NFrames(), Atoms: h.NAtoms()}
	st := stateInit
	o.log.Debug("benchmark", zap.Stringer("state", st), zap.String("id", res.ID))
	fmt.Fprintf(o.out, "Frames: %d\n", res.Frames)
	fmt.Fprintf(o.out, "Atoms: %d\n", res.Atoms)

	var err error
	res.Warmup, err = iterate(ctx, h, 1)
	if err != nil {
		return nil, fmt.Errorf("warmup: %w", err)
	}
	st = stateWarmedUp
	o.log.Debug("benchmark", zap.Stringer("state", st), zap.Int("frames", res.Warmup))

	for i := 1; i <= 2; i++ {
		start := o.now()
		count, err := iterate(ctx, h, -1)
		end := o.now()
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		d := end.Sub(start)
		res.Runs = append(res.Runs, RunResult{Count: count, Duration: d})
		fmt.Fprintf(o.out, "MDAnalysis Run %d: %.4f seconds\n", i, d.Seconds())
		st++
		o.log.Debug("benchmark", zap.Stringer("state", st), zap.Int("frames", count), zap.Duration("duration", d))
	}

	avg := stat.Mean([]float64{res.Runs[0].Duration.Seconds(), res.Runs[1].Duration.Seconds()}, nil)
	res.Average = time.Duration(avg * float64(time.Second))
	fmt.Fprintf(o.out, "\nAverage time: %.4f seconds\n", avg)
	if avg == 0 {
		return nil, ErrZeroDuration
	}
	res.FPS = float64(res.Runs[1].Count) / avg
	fmt.Fprintf(o.out, "Average FPS: %.2f\n", res.FPS)
	st = stateReported
	o.log.Debug("benchmark", zap.Stringer("state", st), zap.Float64("fps", res.FPS))
	return res, nil
}

// iterate goes through the frames of h, and returns how many it read.
// If limit is positive, it stops after limit frames.
func iterate(ctx context.Context, h Handle, limit int) (int, error) {
	count := 0
	if err := ctx.Err(); err != nil {
		return count, err
	}
	for _, err := range h.Frames() {
		if err != nil {
			return count, err
		}
		count++
		if count == limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

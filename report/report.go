/*
 * report.go, part of mdbench.
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

// Package report writes the results of a benchmark as JSON or as a plot.
package report

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"

	"github.com/rmera/mdbench/bench"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// JSON writes res to w as an indented JSON object.
func JSON(w io.Writer, res *bench.Result) error {
	if res == nil {
		return fmt.Errorf("report: nil result")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func basicPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.Y.Label.Text = "Time (s)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())
	return p
}

// Plot saves a bar chart with the duration of each run of res, and a line
// at the average time, to filename. The format (png, svg, pdf...) is taken from the
// extension of filename.
func Plot(filename string, res *bench.Result) error {
	if res == nil || len(res.Runs) == 0 {
		return fmt.Errorf("report: no runs to plot")
	}
	p := basicPlot(fmt.Sprintf("%d frames, %d atoms, %.2f FPS", res.Frames, res.Atoms, res.FPS))
	vals := make(plotter.Values, len(res.Runs))
	names := make([]string, len(res.Runs))
	for i, r := range res.Runs {
		vals[i] = r.Duration.Seconds()
		names[i] = fmt.Sprintf("Run %d", i+1)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	bars.Color = color.RGBA{R: 70, G: 110, B: 200, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	avg := res.Average.Seconds()
	line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: avg}, {X: float64(len(vals)) - 0.5, Y: avg}})
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	line.Color = color.RGBA{R: 200, A: 255}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("average", line)
	p.Legend.Top = true
	//here I  intentionally shadow err.
	if err := p.Save(4*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

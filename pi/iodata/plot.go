/*
DESCRIPTION
  plot.go provides plotting of data sets to PNG files.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses.
*/

package iodata

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const timeTitle = "Time (periods)"

// Plot saves two plots of d to dir: the reference and measurement as
// "<name> response.png" and the control signal as "<name> control.png".
// Time is the cumulative normalised period.
func Plot(dir, name string, d Data) error {
	t, r, y, uff, u := columns(d)

	err := plotToFile(
		dir,
		name+" response",
		timeTitle,
		"Signal",
		func(p *plot.Plot) error {
			return plotutil.AddLinePoints(p,
				"r", plotterXY(t, r),
				"y", plotterXY(t, y),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("could not plot response: %w", err)
	}

	err = plotToFile(
		dir,
		name+" control",
		timeTitle,
		"Control signal",
		func(p *plot.Plot) error {
			return plotutil.AddLinePoints(p,
				"u", plotterXY(t, u),
				"uff", plotterXY(t, uff),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("could not plot control signal: %w", err)
	}
	return nil
}

func columns(d Data) (t, r, y, uff, u []float64) {
	n := len(d)
	t, r, y, uff, u = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, rec := range d {
		t[i], r[i], y[i], uff[i], u[i] = rec.Tx, rec.R, rec.Y, rec.Uff, rec.U
	}
	floats.CumSum(t, t)
	return
}

// plotToFile creates a plot with a specified name and x&y titles using the
// provided draw function, and then saves to a PNG file in dir with filename
// of name.
func plotToFile(dir, name, xTitle, yTitle string, draw func(*plot.Plot) error) error {
	p := plot.New()

	p.Title.Text = name
	p.X.Label.Text = xTitle
	p.Y.Label.Text = yTitle

	err := draw(p)
	if err != nil {
		return fmt.Errorf("could not draw plot contents: %w", err)
	}

	if err := p.Save(15*vg.Centimeter, 15*vg.Centimeter, filepath.Join(dir, name+".png")); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// plotterXY provides a plotter.XYs type value based on the given x and y data.
func plotterXY(x, y []float64) plotter.XYs {
	xy := make(plotter.XYs, len(x))
	for i := range x {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	return xy
}

/*
DESCRIPTION
  replay.go provides running a controller over a data set and comparing the
  results.

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
	"errors"
	"fmt"

	"github.com/ausocean/pidctl/pi/pid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// ErrMismatch is returned by Compare if two output sequences differ.
var ErrMismatch = errors.New("outputs differ")

// Replay steps c once per record of d and returns the control signals.
// d is not modified.
func Replay(c *pid.Controller, d Data) ([]float64, error) {
	u := make([]float64, len(d))
	for i, r := range d {
		var err error
		u[i], err = c.Step(r.Inputs())
		if err != nil {
			return u[:i], fmt.Errorf("could not step record %d: %w", i, err)
		}
	}
	return u, nil
}

// Fill steps c once per record of d and stores the control signals in d.
func (d Data) Fill(c *pid.Controller) error {
	u, err := Replay(c, d)
	for i := range u {
		d[i].U = u[i]
	}
	return err
}

// Compare returns an ErrMismatch error describing the first element where
// got and want differ by more than both the absolute tolerance atol and the
// relative tolerance rtol.
func Compare(got, want []float64, rtol, atol float64) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: got %d samples, want %d", ErrMismatch, len(got), len(want))
	}
	if floats.Equal(got, want) {
		return nil
	}
	for i := range got {
		if !scalar.EqualWithinAbsOrRel(got[i], want[i], atol, rtol) {
			return fmt.Errorf("%w: at %d got %v, want %v", ErrMismatch, i, got[i], want[i])
		}
	}
	return nil
}

// Summary describes the control performance over a data set.
type Summary struct {
	N          int
	MeanError  float64 // Mean of r - y.
	StdDev     float64 // Sample standard deviation of r - y.
	MinU, MaxU float64
	Duration   float64 // Sum of normalised periods.
}

// Summarize returns a Summary of d. The zero Summary is returned for an empty
// data set.
func Summarize(d Data) Summary {
	if len(d) == 0 {
		return Summary{}
	}
	e := make([]float64, len(d))
	tx := make([]float64, len(d))
	for i, r := range d {
		e[i] = r.R - r.Y
		tx[i] = r.Tx
	}
	u := d.Outputs()

	s := Summary{
		N:        len(d),
		MinU:     floats.Min(u),
		MaxU:     floats.Max(u),
		Duration: floats.Sum(tx),
	}
	if len(d) == 1 {
		s.MeanError = e[0]
		return s
	}
	s.MeanError, s.StdDev = stat.MeanStdDev(e, nil)
	return s
}

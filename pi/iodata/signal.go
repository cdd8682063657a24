/*
DESCRIPTION
  signal.go provides generation of input signals for building data sets.

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

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// StepAt is the index at which Step switches from zero to one.
const StepAt = 2

// Step returns n samples that are zero before StepAt and one from StepAt.
func Step(n int) []float64 {
	s := make([]float64, n)
	for i := StepAt; i < n; i++ {
		s[i] = 1
	}
	return s
}

// Constant returns n samples of v.
func Constant(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Random returns n standard normal samples. The same seed always gives the
// same samples.
func Random(n int, seed uint64) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	s := make([]float64, n)
	for i := range s {
		s[i] = dist.Rand()
	}
	return s
}

// Irregular returns n log-normally distributed normalised periods with
// median one, for exercising non-uniform sampling.
func Irregular(n int, sigma float64, seed uint64) []float64 {
	dist := distuv.LogNormal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
	s := make([]float64, n)
	for i := range s {
		s[i] = dist.Rand()
	}
	return s
}

// Switch returns n booleans that are initial before index at and the
// negation of initial from at.
func Switch(initial bool, at, n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = initial
		if i >= at {
			s[i] = !initial
		}
	}
	return s
}

// Signals holds per-step input columns for building a data set. A nil
// column takes its default: zero for the float signals, one for Tx, true
// for Auto and false for Track.
type Signals struct {
	R, Y, Uff, Uman, Utrack, Tx []float64
	Auto, Track                 []bool
}

// Build returns a data set of n records from the given signals. Non-nil
// columns must have n samples. The output column is left zero; see Replay.
func (s Signals) Build(n int) (Data, error) {
	floats := []struct {
		name string
		col  []float64
	}{
		{ColR, s.R}, {ColY, s.Y}, {ColUff, s.Uff}, {ColUman, s.Uman}, {ColUtrack, s.Utrack}, {ColTx, s.Tx},
	}
	for _, f := range floats {
		if f.col != nil && len(f.col) != n {
			return nil, fmt.Errorf("%s has %d samples, want %d", f.name, len(f.col), n)
		}
	}
	if s.Auto != nil && len(s.Auto) != n {
		return nil, fmt.Errorf("%s has %d samples, want %d", ColAuto, len(s.Auto), n)
	}
	if s.Track != nil && len(s.Track) != n {
		return nil, fmt.Errorf("%s has %d samples, want %d", ColTrack, len(s.Track), n)
	}

	d := make(Data, n)
	for i := range d {
		d[i] = Record{
			R:      at(s.R, i, 0),
			Y:      at(s.Y, i, 0),
			Uff:    at(s.Uff, i, 0),
			Uman:   at(s.Uman, i, 0),
			Utrack: at(s.Utrack, i, 0),
			Tx:     at(s.Tx, i, 1),
			Auto:   at(s.Auto, i, true),
			Track:  at(s.Track, i, false),
		}
	}
	return d, nil
}

func at[T any](s []T, i int, def T) T {
	if s == nil {
		return def
	}
	return s[i]
}

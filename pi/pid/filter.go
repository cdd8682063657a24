/*
DESCRIPTION
  filter.go provides a second order measurement filter that supplies the
  PID controller with a filtered measurement and its filtered derivative.
  The filter is re-discretised whenever the execution period changes.

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

package pid

import (
	"fmt"
	"math"
)

// DefaultFilterRatio is the default filter time constant as a multiple of
// the nominal sample time.
const DefaultFilterRatio = 10.0

// Filter is a second order low-pass measurement filter. It is not safe for
// concurrent use.
type Filter struct {
	tfts float64 // Filter time constant in nominal sample periods.

	coeffs Coefficients
	tx     float64 // Period coeffs were computed for; meaningful only if valid.
	valid  bool

	yf, dyf float64
}

// NewFilter returns a new Filter with a time constant of tfts nominal sample
// periods.
func NewFilter(tfts float64) (*Filter, error) {
	if !(tfts > 0) || math.IsInf(tfts, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilterRatio, tfts)
	}
	return &Filter{tfts: tfts}, nil
}

// Update filters the measurement y, executed with normalised period tx, and
// returns the new filtered output and filtered derivative.
func (f *Filter) Update(y, tx float64) (yf, dyf float64) {
	if !f.valid || tx != f.tx {
		f.coeffs = Discretize(f.tfts, tx)
		f.tx = tx
		f.valid = true
	}

	c := &f.coeffs
	yf = c.A11*f.yf + c.A12*f.dyf + c.B1*y
	dyf = c.A21*f.yf + c.A22*f.dyf + c.B2*y
	f.yf, f.dyf = yf, dyf
	return yf, dyf
}

// Reset zeroes the filter state and invalidates the cached coefficients so
// that they are recomputed on the next update. The time constant is kept.
func (f *Filter) Reset() {
	f.yf, f.dyf = 0, 0
	f.tx = 0
	f.valid = false
}

// Coefficients returns the cached coefficients and the period they are valid
// for. ok is false if no coefficients have been computed since construction
// or the last reset.
func (f *Filter) Coefficients() (c Coefficients, tx float64, ok bool) {
	return f.coeffs, f.tx, f.valid
}

// Output returns the current filtered output and filtered derivative.
func (f *Filter) Output() (yf, dyf float64) { return f.yf, f.dyf }

// Ratio returns the filter time constant in nominal sample periods.
func (f *Filter) Ratio() float64 { return f.tfts }

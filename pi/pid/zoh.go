/*
DESCRIPTION
  zoh.go provides zero-order hold discretisation of the second order
  measurement filter used by the PID controller.

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

import "math"

// Coefficients holds the state-space coefficients of the discretised
// measurement filter i.e.
//
//	[yf ]    [A11 A12] [yf ]   [B1]
//	[dyf]  = [A21 A22] [dyf] + [B2] y
type Coefficients struct {
	A11, A12 float64
	A21, A22 float64
	B1, B2   float64
}

// Discretize computes the filter coefficients for a filter time constant of
// tfts nominal sample periods, executed with normalised period tx, using
// zero-order hold discretisation.
//
// Both tfts and tx must be finite and strictly positive; this is not checked
// here so that output matches the closed form exactly.
func Discretize(tfts, tx float64) Coefficients {
	h1 := tx / tfts
	h2 := math.Exp(-h1)
	h3 := h1 * h2
	h4 := h3 / tfts

	return Coefficients{
		A11: h2 + h3,
		A12: h2,
		A21: -h4,
		A22: h2 - h3,
		B1:  1 - h2 - h3,
		B2:  h4,
	}
}

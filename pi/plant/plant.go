/*
DESCRIPTION
  plant.go provides linear time-invariant process models for closed loop
  simulation of the PID controller.

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

// Package plant provides single-input single-output process models of the
// form
//
//	x'(t) = A x(t) + B u(t)
//	y(t)  = C x(t)
//
// with an optional input dead time. Models are stepped with a piecewise
// constant input over each interval, so they may be driven at irregular
// intervals.
package plant

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is a continuous-time linear process model.
type Model struct {
	ac, bc, c *mat.Dense // Continuous dynamics and observation.

	// Discretisation cache, valid for interval dt.
	ad, bd *mat.Dense
	dt     float64
	valid  bool

	x     *mat.VecDense
	delay []float64 // Input FIFO; nil for no dead time.
}

// Option is the function signature returned by option functions below for
// use in the Model initialisers.
type Option func(*Model) error

// WithDelay returns an Option that delays the input by n steps.
func WithDelay(n int) Option {
	return func(m *Model) error {
		if n < 0 {
			return fmt.Errorf("invalid delay: %d", n)
		}
		m.delay = nil
		if n > 0 {
			m.delay = make([]float64, n)
		}
		return nil
	}
}

// WithInitialState returns an Option that sets the initial state.
func WithInitialState(x ...float64) Option {
	return func(m *Model) error {
		if len(x) != m.x.Len() {
			return fmt.Errorf("initial state has %d elements, want %d", len(x), m.x.Len())
		}
		for i, v := range x {
			m.x.SetVec(i, v)
		}
		return nil
	}
}

// New returns a new Model with continuous dynamics a (n×n), input b (n×1)
// and observation c (1×n).
func New(a, b, c mat.Matrix, options ...Option) (*Model, error) {
	n, na := a.Dims()
	if n != na || n == 0 {
		return nil, errors.New("dynamics must be square and non-empty")
	}
	if r, cols := b.Dims(); r != n || cols != 1 {
		return nil, fmt.Errorf("input matrix is %d×%d, want %d×1", r, cols, n)
	}
	if r, cols := c.Dims(); r != 1 || cols != n {
		return nil, fmt.Errorf("observation matrix is %d×%d, want 1×%d", r, cols, n)
	}

	m := &Model{
		ac: mat.DenseCopyOf(a),
		bc: mat.DenseCopyOf(b),
		c:  mat.DenseCopyOf(c),
		x:  mat.NewVecDense(n, nil),
	}
	for i, opt := range options {
		err := opt(m)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}
	return m, nil
}

// NewFirstOrder returns a first order lag with static gain k and time
// constant tau, i.e. K/(tau s + 1).
func NewFirstOrder(k, tau float64, options ...Option) (*Model, error) {
	if !(tau > 0) {
		return nil, fmt.Errorf("invalid time constant: %v", tau)
	}
	return New(
		mat.NewDense(1, 1, []float64{-1 / tau}),
		mat.NewDense(1, 1, []float64{k / tau}),
		mat.NewDense(1, 1, []float64{1}),
		options...,
	)
}

// NewSecondOrder returns two first order lags in series with static gain k
// and time constants tau1 and tau2, i.e. K/((tau1 s + 1)(tau2 s + 1)).
func NewSecondOrder(k, tau1, tau2 float64, options ...Option) (*Model, error) {
	if !(tau1 > 0) || !(tau2 > 0) {
		return nil, fmt.Errorf("invalid time constants: %v, %v", tau1, tau2)
	}
	return New(
		mat.NewDense(2, 2, []float64{
			-1 / tau1, 0,
			1 / tau2, -1 / tau2,
		}),
		mat.NewDense(2, 1, []float64{k / tau1, 0}),
		mat.NewDense(1, 2, []float64{0, 1}),
		options...,
	)
}

// Step holds input u over an interval of dt and returns the output at the
// end of the interval. dt must be positive.
func (m *Model) Step(u, dt float64) (float64, error) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return 0, fmt.Errorf("invalid interval: %v", dt)
	}
	if !m.valid || dt != m.dt {
		m.discretize(dt)
	}

	if n := len(m.delay); n > 0 {
		d := m.delay[0]
		copy(m.delay, m.delay[1:])
		m.delay[n-1] = u
		u = d
	}

	var ax mat.VecDense
	ax.MulVec(m.ad, m.x)
	bu := m.bd.ColView(0)
	m.x.AddScaledVec(&ax, u, bu)
	return m.Output(), nil
}

// Output returns the current output.
func (m *Model) Output() float64 {
	return mat.Dot(m.c.RowView(0), m.x)
}

// State returns a copy of the current state.
func (m *Model) State() []float64 {
	s := make([]float64, m.x.Len())
	for i := range s {
		s[i] = m.x.AtVec(i)
	}
	return s
}

// Reset zeroes the state and any delayed inputs.
func (m *Model) Reset() {
	m.x.Zero()
	for i := range m.delay {
		m.delay[i] = 0
	}
}

// discretize computes the zero-order hold discretisation for interval dt
// from the exponential of the augmented matrix
//
//	[A B]
//	[0 0] dt
func (m *Model) discretize(dt float64) {
	n, _ := m.ac.Dims()
	aug := mat.NewDense(n+1, n+1, nil)
	aug.Slice(0, n, 0, n).(*mat.Dense).Scale(dt, m.ac)
	aug.Slice(0, n, n, n+1).(*mat.Dense).Scale(dt, m.bc)

	var e mat.Dense
	e.Exp(aug)

	m.ad = mat.DenseCopyOf(e.Slice(0, n, 0, n))
	m.bd = mat.DenseCopyOf(e.Slice(0, n, n, n+1))
	m.dt = dt
	m.valid = true
}

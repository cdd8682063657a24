/*
DESCRIPTION
  pid.go provides a discrete-time PID controller in incremental (velocity)
  form. The incremental form gives intrinsic integrator anti-windup and
  bumpless transfer between manual, tracking and automatic modes.

  Reference: E. Sundström, T. Hägglund, M. Bauer, J. Eker, K. Soltesz,
  Reference Implementation of the PID Controller, IFAC-PapersOnLine 58(7),
  2024, pp. 370-375.

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

// Package pid provides a single-input single-output PID controller intended
// to be stepped once per tick of a periodic control loop. The controller
// filters the raw measurement with a second order filter, which is
// re-discretised whenever the execution period changes, and computes the
// control signal in incremental form.
//
// Nothing in this package is safe for concurrent use. A Controller should be
// owned by a single control loop, or access serialised by the caller.
package pid

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by this package.
var (
	ErrInvalidParams      = errors.New("invalid controller parameters")
	ErrInvalidPeriod      = errors.New("normalised period must be finite and positive")
	ErrInvalidFilterRatio = errors.New("filter ratio must be finite and positive")
	ErrInvalidWindup      = errors.New("invalid windup state")
	ErrInvalidSignal      = errors.New("signal must be finite")
)

// Params holds the controller parameters.
type Params struct {
	Kp, Ki, Kd float64 // Proportional, integral and derivative gains.
	TfTs       float64 // Filter time constant as a multiple of nominal sample time.
	Umin, Umax float64 // Control signal limits; may be infinite.
	U0         float64 // Bias used in P and PD control i.e. when Ki == 0.
	B          float64 // Setpoint weight for the proportional term.
}

// DefaultParams returns Params with the given gains and defaults for
// everything else i.e. no output limits, zero bias, unity setpoint weight and
// a filter time constant of DefaultFilterRatio.
func DefaultParams(kp, ki, kd float64) Params {
	return Params{
		Kp:   kp,
		Ki:   ki,
		Kd:   kd,
		TfTs: DefaultFilterRatio,
		Umin: math.Inf(-1),
		Umax: math.Inf(1),
		B:    1,
	}
}

// Validate checks that p describes a usable controller.
func (p Params) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"Kp", p.Kp}, {"Ki", p.Ki}, {"Kd", p.Kd}, {"U0", p.U0}, {"B", p.B},
	} {
		if !isFinite(v.val) {
			return fmt.Errorf("%w: %s is not finite: %v", ErrInvalidParams, v.name, v.val)
		}
	}
	if err := checkLimits(p.Umin, p.Umax); err != nil {
		return err
	}
	if !(p.TfTs > 0) || math.IsInf(p.TfTs, 0) {
		return fmt.Errorf("%w: %w: %v", ErrInvalidParams, ErrInvalidFilterRatio, p.TfTs)
	}
	return nil
}

// Inputs holds the signals and mode flags for a single controller step.
type Inputs struct {
	R      float64 // Reference.
	Y      float64 // Raw process measurement.
	Uff    float64 // Feedforward.
	Uman   float64 // Control signal used in manual mode.
	Utrack float64 // Tracking signal for bumpless transfer.
	Tx     float64 // Execution period normalised by the nominal sample time.

	Track  bool   // If true, Utrack becomes the incremental baseline.
	Manual bool   // If true, the output is Uman (automatic mode otherwise).
	Windup Windup // Saturation state of the downstream actuator.
}

// NewInputs returns Inputs for reference r and measurement y at the nominal
// rate (Tx = 1) in automatic mode, with all other signals zero.
func NewInputs(r, y float64) Inputs {
	return Inputs{R: r, Y: y, Tx: 1}
}

// State is a snapshot of the controller signal state.
type State struct {
	U   float64 // Previous saturated control signal.
	Up  float64 // Previous proportional contribution.
	Ud  float64 // Previous derivative contribution.
	Uff float64 // Previous feedforward signal.
	B   float64 // Setpoint weight in use.
}

// Option is the function signature returned by option functions below for
// use in the Controller initialiser.
type Option func(*Params) error

// WithFilterRatio returns an Option that sets the filter time constant as a
// multiple of the nominal sample time.
func WithFilterRatio(tfts float64) Option {
	return func(p *Params) error {
		p.TfTs = tfts
		return nil
	}
}

// WithLimits returns an Option that sets the control signal limits.
func WithLimits(umin, umax float64) Option {
	return func(p *Params) error {
		if err := checkLimits(umin, umax); err != nil {
			return err
		}
		p.Umin, p.Umax = umin, umax
		return nil
	}
}

// WithBias returns an Option that sets the bias used in P and PD control.
func WithBias(u0 float64) Option {
	return func(p *Params) error {
		p.U0 = u0
		return nil
	}
}

// WithSetpointWeight returns an Option that sets the setpoint weight of the
// proportional term.
func WithSetpointWeight(b float64) Option {
	return func(p *Params) error {
		p.B = b
		return nil
	}
}

// Controller is a PID controller in incremental form.
type Controller struct {
	p Params

	// Signal state.
	uOld, upOld, udOld, uffOld float64

	filter *Filter
}

// New returns a new Controller with parameters p, modified by any options.
func New(p Params, options ...Option) (*Controller, error) {
	for i, opt := range options {
		err := opt(&p)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}

	err := p.Validate()
	if err != nil {
		return nil, err
	}

	f, err := NewFilter(p.TfTs)
	if err != nil {
		return nil, fmt.Errorf("could not create measurement filter: %w", err)
	}

	return &Controller{p: p, filter: f}, nil
}

// NewWithGains returns a new Controller with the given gains and default
// parameters otherwise (see DefaultParams), modified by any options.
func NewWithGains(kp, ki, kd float64, options ...Option) (*Controller, error) {
	return New(DefaultParams(kp, ki, kd), options...)
}

// Step performs one controller update and returns the saturated control
// signal. ErrInvalidPeriod is returned, and no state is modified, if in.Tx is
// not finite and strictly positive. Likewise ErrInvalidSignal is returned if
// R, Y or Uff is not finite, or Uman in manual mode or Utrack in tracking
// mode is not finite.
func (c *Controller) Step(in Inputs) (float64, error) {
	if !(in.Tx > 0) || math.IsInf(in.Tx, 1) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPeriod, in.Tx)
	}
	err := checkSignals(in)
	if err != nil {
		return 0, err
	}

	yf, dyf := c.filter.Update(in.Y, in.Tx)

	var u float64
	if in.Manual {
		u = in.Uman
	} else {
		// P and PD control have no integrator, so the baseline is the bias
		// and setpoint weighting is not used.
		if c.p.Ki == 0 {
			c.uOld = c.p.U0
			c.upOld, c.udOld, c.uffOld = 0, 0, 0
			c.p.B = 1
		}

		if in.Track {
			c.uOld = in.Utrack
			c.upOld, c.udOld, c.uffOld = 0, 0, 0
		}

		dup := c.p.Kp*(c.p.B*in.R-yf) - c.upOld
		dui := AntiWindup(c.p.Ki*(in.R-yf)*in.Tx, in.Windup)
		dud := (-c.p.Kd*dyf - c.udOld) / in.Tx
		duff := in.Uff - c.uffOld

		du := dup + dui + dud + duff
		u = c.uOld + du
	}

	u = math.Max(math.Min(u, c.p.Umax), c.p.Umin)

	// Next increments are relative to what was actually applied.
	c.uOld = u
	c.upOld = c.p.Kp * (c.p.B*in.R - yf)
	c.udOld = -c.p.Kd * dyf
	c.uffOld = in.Uff

	return u, nil
}

// Reset returns the signal state to zero and resets the measurement filter.
// Parameters, including a setpoint weight forced to 1 by P or PD operation,
// are unchanged.
func (c *Controller) Reset() {
	c.uOld, c.upOld, c.udOld, c.uffOld = 0, 0, 0, 0
	c.filter.Reset()
}

// State returns a snapshot of the controller signal state.
func (c *Controller) State() State {
	return State{U: c.uOld, Up: c.upOld, Ud: c.udOld, Uff: c.uffOld, B: c.p.B}
}

// Params returns the controller parameters currently in use.
func (c *Controller) Params() Params { return c.p }

// Filter returns the controller's measurement filter.
func (c *Controller) Filter() *Filter { return c.filter }

// SetGains sets the controller gains. The setpoint weight is not restored if
// it was forced to 1 by an earlier step with Ki == 0; use SetSetpointWeight.
func (c *Controller) SetGains(kp, ki, kd float64) error {
	for _, g := range []float64{kp, ki, kd} {
		if !isFinite(g) {
			return fmt.Errorf("%w: gain is not finite: %v", ErrInvalidParams, g)
		}
	}
	c.p.Kp, c.p.Ki, c.p.Kd = kp, ki, kd
	return nil
}

// SetLimits sets the control signal limits.
func (c *Controller) SetLimits(umin, umax float64) error {
	if err := checkLimits(umin, umax); err != nil {
		return err
	}
	c.p.Umin, c.p.Umax = umin, umax
	return nil
}

// SetBias sets the bias used in P and PD control.
func (c *Controller) SetBias(u0 float64) error {
	if !isFinite(u0) {
		return fmt.Errorf("%w: bias is not finite: %v", ErrInvalidParams, u0)
	}
	c.p.U0 = u0
	return nil
}

// SetSetpointWeight sets the setpoint weight of the proportional term.
func (c *Controller) SetSetpointWeight(b float64) error {
	if !isFinite(b) {
		return fmt.Errorf("%w: setpoint weight is not finite: %v", ErrInvalidParams, b)
	}
	c.p.B = b
	return nil
}

func checkSignals(in Inputs) error {
	signals := []struct {
		name string
		v    float64
		used bool
	}{
		{"r", in.R, true},
		{"y", in.Y, true},
		{"uff", in.Uff, true},
		{"uman", in.Uman, in.Manual},
		{"utrack", in.Utrack, in.Track && !in.Manual},
	}
	for _, s := range signals {
		if s.used && !isFinite(s.v) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidSignal, s.name, s.v)
		}
	}
	return nil
}

func checkLimits(umin, umax float64) error {
	switch {
	case math.IsNaN(umin) || math.IsNaN(umax):
		return fmt.Errorf("%w: limits must not be NaN: [%v, %v]", ErrInvalidParams, umin, umax)
	case umin > umax:
		return fmt.Errorf("%w: lower limit %v exceeds upper limit %v", ErrInvalidParams, umin, umax)
	}
	return nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

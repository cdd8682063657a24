/*
DESCRIPTION
  loop.go provides a periodic control loop that reads input signals, steps
  a PID controller with the normalised execution period and applies the
  control signal to an actuator.

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

// Package loop provides the periodic execution loop around a pid.Controller.
// The loop owns the controller and serialises all access to it, so mode
// flags and parameters may be changed from other goroutines while the loop
// is running.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/utils/logging"
)

// Error statistic window sizes.
const (
	medianWindow = 10
	stdDevWindow = 100
)

// Signals provides the loop input signals. Each is read once per tick.
type Signals interface {
	Reference() (float64, error)
	Measurement() (float64, error)
	Feedforward() (float64, error)
	Tracking() (float64, error)
	Manual() (float64, error)
}

// Actuator accepts the control signal once per tick.
type Actuator interface {
	Set(u float64) error
}

// SignalFuncs implements Signals using functions. A nil function reads as
// zero.
type SignalFuncs struct {
	R, Y, Uff, Utrack, Uman func() (float64, error)
}

func (s SignalFuncs) Reference() (float64, error)   { return call(s.R) }
func (s SignalFuncs) Measurement() (float64, error) { return call(s.Y) }
func (s SignalFuncs) Feedforward() (float64, error) { return call(s.Uff) }
func (s SignalFuncs) Tracking() (float64, error)    { return call(s.Utrack) }
func (s SignalFuncs) Manual() (float64, error)      { return call(s.Uman) }

func call(f func() (float64, error)) (float64, error) {
	if f == nil {
		return 0, nil
	}
	return f()
}

// ActuatorFunc adapts a function to the Actuator interface.
type ActuatorFunc func(u float64) error

// Set implements Actuator.
func (f ActuatorFunc) Set(u float64) error { return f(u) }

// Option is the function signature returned by option functions below for
// use in the Loop initialiser.
type Option func(*Loop) error

// WithClock returns an Option that sets the clock used to measure the
// execution period.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) error {
		if now == nil {
			return errors.New("nil clock")
		}
		l.now = now
		return nil
	}
}

// WithMode returns an Option that sets the initial automatic and tracking
// modes.
func WithMode(auto, track bool) Option {
	return func(l *Loop) error {
		l.auto, l.track = auto, track
		return nil
	}
}

// WithObserver returns an Option that calls observe with a Sample after
// every successful controller step.
func WithObserver(observe func(Sample)) Option {
	return func(l *Loop) error {
		if observe == nil {
			return errors.New("nil observer")
		}
		l.observe = observe
		return nil
	}
}

// Sample describes one controller step.
type Sample struct {
	R, Y, Tx, U float64
	Auto, Track bool
	MedianError float64
	ErrorStdDev float64
}

// Loop runs a pid.Controller periodically.
type Loop struct {
	sig     Signals
	act     Actuator
	log     logging.Logger
	now     func() time.Time
	observe func(Sample)

	mu      sync.Mutex // Protects everything below, including ctrl.
	ctrl    *pid.Controller
	period  time.Duration // Nominal sample time.
	ticker  *time.Ticker
	auto    bool
	track   bool
	windup  pid.Windup
	last    time.Time // Time of the last successful step.
	started bool
	ticks   int
	lastU   float64
	stats   *errorStats
	resetOn bool // Last value of VarReset applied.
}

// New returns a new Loop that steps ctrl every period using signals from sig
// and writes the control signal to act. The loop takes ownership of ctrl.
func New(ctrl *pid.Controller, sig Signals, act Actuator, period time.Duration, log logging.Logger, options ...Option) (*Loop, error) {
	switch {
	case ctrl == nil:
		return nil, errors.New("nil controller")
	case sig == nil:
		return nil, errors.New("nil signals")
	case act == nil:
		return nil, errors.New("nil actuator")
	case period <= 0:
		return nil, fmt.Errorf("invalid period: %v", period)
	}

	l := &Loop{
		ctrl:   ctrl,
		sig:    sig,
		act:    act,
		log:    log,
		now:    time.Now,
		period: period,
		auto:   true,
		stats:  newErrorStats(medianWindow, stdDevWindow),
	}
	for i, opt := range options {
		err := opt(l)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}
	return l, nil
}

// Run ticks the loop every period until ctx is cancelled. Errors from a tick
// are logged and the loop continues. Run always returns a non-nil error.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.ticker = time.NewTicker(l.period)
	t := l.ticker
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.ticker.Stop()
		l.ticker = nil
		l.mu.Unlock()
	}()

	l.log.Info("starting control loop", "period", l.Period().String())
	for {
		select {
		case <-ctx.Done():
			l.log.Info("stopping control loop", "ticks", l.Ticks())
			return ctx.Err()
		case <-t.C:
			err := l.Tick()
			if err != nil {
				l.log.Warning("tick failed", "error", err.Error())
			}
		}
	}
}

// Tick performs one loop iteration: signals are read, the normalised period
// is derived from the time since the last successful step, the controller is
// stepped and the control signal is applied. The controller is not stepped if
// any signal cannot be read.
func (l *Loop) Tick() error {
	r, err := l.sig.Reference()
	if err != nil {
		return fmt.Errorf("could not read reference: %w", err)
	}
	y, err := l.sig.Measurement()
	if err != nil {
		return fmt.Errorf("could not read measurement: %w", err)
	}
	uff, err := l.sig.Feedforward()
	if err != nil {
		return fmt.Errorf("could not read feedforward: %w", err)
	}
	utrack, err := l.sig.Tracking()
	if err != nil {
		return fmt.Errorf("could not read tracking signal: %w", err)
	}
	uman, err := l.sig.Manual()
	if err != nil {
		return fmt.Errorf("could not read manual signal: %w", err)
	}

	l.mu.Lock()
	now := l.now()
	tx := 1.0
	if l.started {
		tx = float64(now.Sub(l.last)) / float64(l.period)
	}

	u, err := l.ctrl.Step(pid.Inputs{
		R:      r,
		Y:      y,
		Uff:    uff,
		Uman:   uman,
		Utrack: utrack,
		Tx:     tx,
		Track:  l.track,
		Manual: !l.auto,
		Windup: l.windup,
	})
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("could not step controller: %w", err)
	}
	l.last = now
	l.started = true
	l.ticks++
	l.lastU = u
	l.stats.update(r - y)
	sample := Sample{
		R: r, Y: y, Tx: tx, U: u,
		Auto: l.auto, Track: l.track,
		MedianError: l.stats.median(),
		ErrorStdDev: l.stats.stdDev(),
	}
	l.mu.Unlock()

	if l.observe != nil {
		l.observe(sample)
	}

	l.log.Debug("stepped controller", "r", r, "y", y, "tx", tx, "u", u)

	err = l.act.Set(u)
	if err != nil {
		return fmt.Errorf("could not set actuator: %w", err)
	}
	return nil
}

// Reset resets the controller state. The next tick runs at the nominal
// period.
func (l *Loop) Reset() {
	l.mu.Lock()
	l.ctrl.Reset()
	l.started = false
	l.mu.Unlock()
	l.log.Info("reset controller")
}

// SetAuto sets automatic (true) or manual (false) mode.
func (l *Loop) SetAuto(auto bool) {
	l.mu.Lock()
	changed := l.auto != auto
	l.auto = auto
	l.mu.Unlock()
	if changed {
		l.log.Info("mode changed", "auto", auto)
	}
}

// SetTrack enables or disables tracking mode.
func (l *Loop) SetTrack(track bool) {
	l.mu.Lock()
	l.track = track
	l.mu.Unlock()
}

// SetWindup sets the actuator saturation state passed to the controller.
func (l *Loop) SetWindup(w pid.Windup) {
	l.mu.Lock()
	l.windup = w
	l.mu.Unlock()
}

// SetPeriod sets the nominal sample time.
func (l *Loop) SetPeriod(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid period: %v", d)
	}
	l.mu.Lock()
	l.period = d
	if l.ticker != nil {
		l.ticker.Reset(d)
	}
	l.mu.Unlock()
	return nil
}

// Configure calls f with exclusive access to the controller, e.g. to change
// gains or limits between ticks.
func (l *Loop) Configure(f func(c *pid.Controller) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return f(l.ctrl)
}

// Params returns the controller parameters.
func (l *Loop) Params() pid.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctrl.Params()
}

// Period returns the nominal sample time.
func (l *Loop) Period() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.period
}

// Mode returns the automatic and tracking mode flags and windup state.
func (l *Loop) Mode() (auto, track bool, windup pid.Windup) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auto, l.track, l.windup
}

// Ticks returns the number of successful controller steps.
func (l *Loop) Ticks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// LastOutput returns the most recent control signal.
func (l *Loop) LastOutput() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastU
}

// MedianError returns the running median of the control error r - y. Large
// values indicate the loop is not tracking its reference.
func (l *Loop) MedianError() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.median()
}

// ErrorStdDev returns the running standard deviation of the control error,
// which is indicative of measurement noise.
func (l *Loop) ErrorStdDev() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.stdDev()
}

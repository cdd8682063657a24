/*
DESCRIPTION
  relay.go provides time proportioned control of a digital output, e.g. a
  heater relay, from a continuous control signal.

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

package actuator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/kidoman/embd"
)

// Resolution of the relay switching, relative to the window.
const relaySteps = 100

// Relay switches a GPIO pin on for a fraction of each window proportional to
// the control signal, so u = umin is always off and u = umax always on.
type Relay struct {
	pin        int
	umin, umax float64
	window     time.Duration
	log        logging.Logger
	write      func(pin, val int) error
	now        func() time.Time

	mu    sync.Mutex
	duty  float64
	start time.Time // Start of the current window.
	on    bool
	init  bool // Pin state known.
}

// RelayOption is the function signature returned by option functions below
// for use in the Relay initialiser.
type RelayOption func(*Relay) error

// WithPinWriter returns a RelayOption that replaces the GPIO pin writer.
// Initialisation of the GPIO drivers is skipped.
func WithPinWriter(write func(pin, val int) error) RelayOption {
	return func(r *Relay) error {
		if write == nil {
			return errors.New("nil pin writer")
		}
		r.write = write
		return nil
	}
}

// WithRelayClock returns a RelayOption that sets the time source.
func WithRelayClock(now func() time.Time) RelayOption {
	return func(r *Relay) error {
		r.now = now
		return nil
	}
}

// NewRelay returns a Relay on the given GPIO pin mapping [umin, umax] to a
// duty cycle over each window.
func NewRelay(pin int, umin, umax float64, window time.Duration, log logging.Logger, options ...RelayOption) (*Relay, error) {
	if !(umin < umax) {
		return nil, fmt.Errorf("invalid signal range: [%v, %v]", umin, umax)
	}
	if window < relaySteps*time.Millisecond {
		return nil, fmt.Errorf("window too short: %v", window)
	}

	r := &Relay{
		pin:    pin,
		umin:   umin,
		umax:   umax,
		window: window,
		log:    log,
		now:    time.Now,
	}
	for i, opt := range options {
		err := opt(r)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}

	if r.write == nil {
		err := embd.InitGPIO()
		if err != nil {
			return nil, fmt.Errorf("could not initialise GPIO drivers: %w", err)
		}
		err = embd.SetDirection(pin, embd.Out)
		if err != nil {
			return nil, fmt.Errorf("could not set pin %d as output: %w", pin, err)
		}
		r.write = func(pin, val int) error { return embd.DigitalWrite(pin, val) }
	}
	r.start = r.now()
	return r, nil
}

// Set implements loop.Actuator. The new duty cycle takes effect on the next
// Update.
func (r *Relay) Set(u float64) error {
	if math.IsNaN(u) {
		return fmt.Errorf("invalid control signal: %v", u)
	}
	d := max(0, min(1, (u-r.umin)/(r.umax-r.umin)))
	r.mu.Lock()
	r.duty = d
	r.mu.Unlock()
	return nil
}

// Duty returns the current duty cycle in [0, 1].
func (r *Relay) Duty() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duty
}

// Update switches the pin according to the position in the current window
// and returns the pin state.
func (r *Relay) Update() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(r.start)
	switch {
	case elapsed < 0:
		r.start, elapsed = now, 0
	case elapsed >= r.window:
		elapsed %= r.window
		r.start = now.Add(-elapsed)
	}
	on := float64(elapsed) < r.duty*float64(r.window)

	if r.init && on == r.on {
		return on, nil
	}
	val := embd.Low
	if on {
		val = embd.High
	}
	err := r.write(r.pin, val)
	if err != nil {
		return r.on, fmt.Errorf("could not write pin %d: %w", r.pin, err)
	}
	r.on, r.init = on, true
	r.log.Debug("relay switched", "pin", r.pin, "on", on, "duty", r.duty)
	return on, nil
}

// Run calls Update at the relay resolution until ctx is cancelled, then
// switches the pin off.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.window / relaySteps)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			err := r.Off()
			if err != nil {
				r.log.Error("could not switch relay off", "error", err.Error())
			}
			return ctx.Err()
		case <-t.C:
			_, err := r.Update()
			if err != nil {
				r.log.Warning("relay update failed", "error", err.Error())
			}
		}
	}
}

// Off switches the pin off and zeroes the duty cycle.
func (r *Relay) Off() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duty = 0
	err := r.write(r.pin, embd.Low)
	if err != nil {
		return fmt.Errorf("could not write pin %d: %w", r.pin, err)
	}
	r.on, r.init = false, true
	return nil
}

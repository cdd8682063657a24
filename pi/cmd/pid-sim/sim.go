/*
DESCRIPTION
  sim.go provides a closed loop simulation of a PID control loop and a
  process model.

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

package main

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ausocean/pidctl/pi/iodata"
	"github.com/ausocean/pidctl/pi/loop"
	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/pidctl/pi/plant"
	"github.com/ausocean/utils/logging"
)

// Plant model names.
const (
	plantFirst  = "first"
	plantSecond = "second"
)

// simConfig holds the simulation settings.
type simConfig struct {
	params   pid.Params
	plant    string
	gain     float64
	tau      float64 // Seconds.
	tau2     float64 // Seconds, second order only.
	delay    int     // Steps of input dead time.
	steps    int
	period   time.Duration
	setpoint float64
	jitter   float64 // Sigma of log-normal normalised periods; zero for none.
	noise    float64 // Sigma of measurement noise; zero for none.
	seed     uint64
}

func newPlant(c simConfig) (*plant.Model, error) {
	switch c.plant {
	case plantFirst:
		return plant.NewFirstOrder(c.gain, c.tau, plant.WithDelay(c.delay))
	case plantSecond:
		return plant.NewSecondOrder(c.gain, c.tau, c.tau2, plant.WithDelay(c.delay))
	default:
		return nil, fmt.Errorf("unknown plant: %q", c.plant)
	}
}

// simulate runs a control loop against the configured plant with a simulated
// clock and returns one record per tick. The reference steps to the setpoint
// at iodata.StepAt.
func simulate(c simConfig, log logging.Logger) (iodata.Data, error) {
	if c.steps <= 0 {
		return nil, errors.New("steps must be positive")
	}
	if c.period <= 0 {
		return nil, fmt.Errorf("invalid period: %v", c.period)
	}

	ctrl, err := pid.New(c.params)
	if err != nil {
		return nil, fmt.Errorf("could not create controller: %w", err)
	}
	p, err := newPlant(c)
	if err != nil {
		return nil, fmt.Errorf("could not create plant: %w", err)
	}

	// Time between tick i-1 and tick i.
	durs := make([]time.Duration, c.steps)
	txs := iodata.Constant(1, c.steps)
	if c.jitter > 0 {
		txs = iodata.Irregular(c.steps, c.jitter, c.seed)
	}
	for i := range durs {
		durs[i] = time.Duration(txs[i] * float64(c.period))
		if durs[i] <= 0 {
			durs[i] = 1
		}
	}

	noise := func() float64 { return 0 }
	if c.noise > 0 {
		dist := distuv.Normal{Mu: 0, Sigma: c.noise, Src: rand.NewSource(c.seed + 1)}
		noise = dist.Rand
	}

	r := iodata.Step(c.steps)
	var (
		i    int
		y, u float64
		now  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	)
	sig := loop.SignalFuncs{
		R: func() (float64, error) { return r[i] * c.setpoint, nil },
		Y: func() (float64, error) { return y, nil },
	}
	act := loop.ActuatorFunc(func(v float64) error { u = v; return nil })

	l, err := loop.New(ctrl, sig, act, c.period, log, loop.WithClock(func() time.Time { return now }))
	if err != nil {
		return nil, fmt.Errorf("could not create loop: %w", err)
	}

	d := make(iodata.Data, c.steps)
	for i = 0; i < c.steps; i++ {
		tx := 1.0
		if i > 0 {
			now = now.Add(durs[i])
			tx = float64(durs[i]) / float64(c.period)
		}
		y = p.Output() + noise()

		err = l.Tick()
		if err != nil {
			return d[:i], fmt.Errorf("could not tick at step %d: %w", i, err)
		}
		d[i] = iodata.Record{R: r[i] * c.setpoint, Y: y, Tx: tx, Auto: true, U: u}

		// The control signal is held until the next tick.
		if i+1 < c.steps {
			_, err = p.Step(u, durs[i+1].Seconds())
			if err != nil {
				return d[:i+1], fmt.Errorf("could not step plant at step %d: %w", i, err)
			}
		}
	}

	log.Info("simulation complete", "steps", c.steps, "medianError", l.MedianError(), "errorStdDev", l.ErrorStdDev())
	return d, nil
}

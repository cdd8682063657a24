/*
DESCRIPTION
  fixtures.go provides the controller regression fixtures and their
  generation and verification.

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
	"path/filepath"

	"github.com/ausocean/pidctl/pi/iodata"
	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/utils/logging"
)

// Seeds of the random signals.
const (
	seedA = 42
	seedB = 43
)

// Switch point of boolean signals.
const switchAt = 5

// controllers are the parameter sets fixtures are generated for.
var controllers = map[string]pid.Params{
	"p":   withLimits(pid.DefaultParams(2, 0, 0), -5, 5),
	"pi":  withLimits(pid.DefaultParams(1, 0.5, 0), -2, 2),
	"pid": withLimits(pid.DefaultParams(1, 0.5, 0.1), -2, 2),
}

func withLimits(p pid.Params, umin, umax float64) pid.Params {
	p.Umin, p.Umax = umin, umax
	return p
}

// fixture describes one regression data set.
type fixture struct {
	name       string
	controller string
	signals    func(n int) iodata.Signals
}

var fixtures = []fixture{
	{
		name:       "p_step",
		controller: "p",
		signals:    func(n int) iodata.Signals { return iodata.Signals{R: iodata.Step(n)} },
	},
	{
		name:       "pi_step",
		controller: "pi",
		signals:    func(n int) iodata.Signals { return iodata.Signals{R: iodata.Step(n)} },
	},
	{
		name:       "pid_step",
		controller: "pid",
		signals:    func(n int) iodata.Signals { return iodata.Signals{R: iodata.Step(n)} },
	},
	{
		name:       "pid_random",
		controller: "pid",
		signals: func(n int) iodata.Signals {
			return iodata.Signals{R: iodata.Random(n, seedA), Y: iodata.Random(n, seedB)}
		},
	},
	{
		name:       "pid_feedforward",
		controller: "pid",
		signals: func(n int) iodata.Signals {
			return iodata.Signals{R: iodata.Step(n), Uff: iodata.Random(n, seedA)}
		},
	},
	{
		name:       "pid_manual_to_auto",
		controller: "pid",
		signals: func(n int) iodata.Signals {
			return iodata.Signals{R: iodata.Step(n), Uman: iodata.Constant(0.5, n), Auto: iodata.Switch(false, switchAt, n)}
		},
	},
	{
		name:       "pid_track_release",
		controller: "pid",
		signals: func(n int) iodata.Signals {
			return iodata.Signals{R: iodata.Step(n), Utrack: iodata.Constant(1, n), Track: iodata.Switch(true, switchAt, n)}
		},
	},
	{
		name:       "pid_irregular",
		controller: "pid",
		signals: func(n int) iodata.Signals {
			return iodata.Signals{R: iodata.Step(n), Tx: iodata.Irregular(n, 0.5, seedA)}
		},
	},
}

func (f fixture) file(dir string) string { return filepath.Join(dir, f.name+".csv") }

// build returns the fixture data with outputs from a fresh controller.
func (f fixture) build(n int) (iodata.Data, error) {
	p, ok := controllers[f.controller]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", f.controller)
	}
	d, err := f.signals(n).Build(n)
	if err != nil {
		return nil, fmt.Errorf("could not build signals: %w", err)
	}
	c, err := pid.New(p)
	if err != nil {
		return nil, fmt.Errorf("could not create controller: %w", err)
	}
	err = d.Fill(c)
	if err != nil {
		return nil, fmt.Errorf("could not run controller: %w", err)
	}
	return d, nil
}

// generate writes all fixtures of n samples to dir.
func generate(dir string, n int, log logging.Logger) error {
	for _, f := range fixtures {
		d, err := f.build(n)
		if err != nil {
			return fmt.Errorf("could not build %s: %w", f.name, err)
		}
		err = iodata.Save(f.file(dir), d)
		if err != nil {
			return err
		}
		log.Info("generated fixture", "file", f.file(dir), "controller", f.controller, "samples", n)
	}
	return nil
}

// verify replays every fixture in dir through a fresh controller and
// compares the outputs with those recorded. All fixtures are checked; the
// failures are returned joined.
func verify(dir string, rtol, atol float64, log logging.Logger) error {
	var errs []error
	for _, f := range fixtures {
		d, err := iodata.Load(f.file(dir))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c, err := pid.New(controllers[f.controller])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got, err := iodata.Replay(c, d)
		if err == nil {
			err = iodata.Compare(got, d.Outputs(), rtol, atol)
		}
		if err != nil {
			log.Warning("fixture failed", "name", f.name, "error", err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		log.Info("fixture passed", "name", f.name)
	}
	return errors.Join(errs...)
}

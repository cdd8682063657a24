/*
DESCRIPTION
  pid-sim simulates a PID control loop against a first or second order
  process model, saving the input-output data as CSV and optionally plotting
  the response.

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

// pid-sim simulates a PID control loop against a process model. For
// example, to simulate a PI controller on a heater with a 30 s time constant
// and 2 s of dead time sampled every second:
//
//	pid-sim -Params "Kp=0.05,Ki=0.005,TfTs=2,Umin=0,Umax=1" -Gain 40 -Tau 30 -Delay 2 -Plots plots
package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/ausocean/pidctl/pi/iodata"
	"github.com/ausocean/pidctl/pi/loop"
	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logging configuration.
const (
	logMaxSize   = 500 // MB.
	logMaxBackup = 10
	logMaxAge    = 28 // Days.
	logSuppress  = true
)

// Default controller gains.
const (
	defaultKp = 0.5
	defaultKi = 0.1
	defaultKd = 0.0
)

func main() {
	paramStr := flag.String("Params", "", "Controller parameters, e.g. Kp=1.2,Ki=0.1,Umin=0,Umax=1")
	plantName := flag.String("Plant", plantFirst, "Process model: first or second order")
	gain := flag.Float64("Gain", 1, "Process static gain")
	tau := flag.Float64("Tau", 10, "Process time constant (s)")
	tau2 := flag.Float64("Tau2", 2, "Second process time constant (s), second order only")
	delay := flag.Int("Delay", 0, "Process dead time in periods")
	steps := flag.Int("Steps", 100, "Number of controller steps")
	period := flag.Duration("Period", time.Second, "Nominal sample time")
	setpoint := flag.Float64("Setpoint", 1, "Reference after the step")
	jitter := flag.Float64("Jitter", 0, "Sigma of log-normal period jitter, 0 for none")
	noise := flag.Float64("Noise", 0, "Sigma of measurement noise, 0 for none")
	seed := flag.Uint64("Seed", 42, "Random seed for jitter and noise")
	out := flag.String("Out", "sim.csv", "Output CSV file, empty for none")
	plotDir := flag.String("Plots", "", "Directory for plots, empty for none")
	logLevel := flag.Int("LogLevel", int(logging.Info), "Specifies log level")
	logPath := flag.String("LogPath", "", "Specifies log file, empty for stderr only")
	flag.Parse()

	validLogLevel := true
	if *logLevel < int(logging.Debug) || *logLevel > int(logging.Fatal) {
		*logLevel = int(logging.Info)
		validLogLevel = false
	}

	var w io.Writer = os.Stderr
	if *logPath != "" {
		fileLog := &lumberjack.Logger{
			Filename:   *logPath,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		w = io.MultiWriter(fileLog, os.Stderr)
	}
	log := logging.New(int8(*logLevel), w, logSuppress)
	if !validLogLevel {
		log.Error("invalid log level was defaulted to Info")
	}

	vars, err := loop.ParseVars(*paramStr)
	if err != nil {
		log.Fatal("could not parse params", "error", err.Error())
	}
	params, err := loop.ParamsFromVars(pid.DefaultParams(defaultKp, defaultKi, defaultKd), vars)
	if err != nil {
		log.Fatal("invalid params", "error", err.Error())
	}
	log.Debug("controller params", "params", params)

	d, err := simulate(simConfig{
		params:   params,
		plant:    *plantName,
		gain:     *gain,
		tau:      *tau,
		tau2:     *tau2,
		delay:    *delay,
		steps:    *steps,
		period:   *period,
		setpoint: *setpoint,
		jitter:   *jitter,
		noise:    *noise,
		seed:     *seed,
	}, log)
	if err != nil {
		log.Fatal("simulation failed", "error", err.Error())
	}

	s := iodata.Summarize(d)
	log.Info("summary", "meanError", s.MeanError, "errorStdDev", s.StdDev, "minU", s.MinU, "maxU", s.MaxU, "periods", s.Duration)

	if *out != "" {
		err = iodata.Save(*out, d)
		if err != nil {
			log.Fatal("could not save data", "error", err.Error())
		}
		log.Info("saved data", "file", *out)
	}

	if *plotDir != "" {
		err = os.MkdirAll(*plotDir, 0755)
		if err != nil {
			log.Fatal("could not create plot directory", "error", err.Error())
		}
		err = iodata.Plot(*plotDir, "sim", d)
		if err != nil {
			log.Fatal("could not plot data", "error", err.Error())
		}
		log.Info("saved plots", "dir", *plotDir)
	}
}

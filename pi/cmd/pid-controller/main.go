/*
DESCRIPTION
  pid-controller runs a PID control loop on a Raspberry Pi, reading a
  process measurement from an attached sensor and driving a relay, serial
  device or log with the control signal.

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

// pid-controller runs a PID control loop. For example, to hold a tank at
// 25 degrees with a DS18B20 probe and a heater relay on GPIO 17:
//
//	pid-controller -Sensor ds18b20 -Actuator relay -RelayPin 17 -Setpoint 25 -Params "Kp=0.2,Ki=0.01,Umin=0,Umax=1"
//
// Controller parameters, modes and the setpoint may be changed while running
// by editing the file given by -ConfigFile, one Name Value pair per line.
// The variables are those of the loop package plus Setpoint and logging.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/kidoman/embd/host/rpi"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/pidctl/pi/config"
	"github.com/ausocean/pidctl/pi/loop"
	"github.com/ausocean/pidctl/pi/metrics"
	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/pidctl/pi/sensor"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logMaxSize   = 500 // MB.
	logMaxBackup = 10
	logMaxAge    = 28 // Days.
	logSuppress  = true
)

// Defaults.
const (
	defaultConfig = "/etc/pid-controller.conf"
	defaultPeriod = time.Second
	defaultPoll   = 10 * time.Second
	defaultWindow = 10 * time.Second
)

func main() {
	var sc sensorConfig
	flag.StringVar(&sc.kind, "Sensor", string(sensor.KindDS18B20), "Sensor kind: ds18b20, dht11, dht22, adc, ezo, serial or cpu")
	flag.StringVar(&sc.id, "SensorID", "", "DS18B20 sensor ID, empty for the first found")
	flag.IntVar(&sc.pin, "Pin", 4, "DHT data pin")
	flag.BoolVar(&sc.humidity, "Humidity", false, "Read DHT humidity instead of temperature")
	flag.IntVar(&sc.channel, "Channel", 0, "ADC channel")
	flag.Float64Var(&sc.vref, "Vref", 3.3, "ADC reference voltage")
	flag.IntVar(&sc.i2cPort, "I2CPort", 1, "I2C bus")
	flag.IntVar(&sc.addr, "Addr", sensor.EZOConductivityAddr, "EZO I2C address")
	flag.StringVar(&sc.port, "SensorPort", "/dev/ttyUSB0", "Serial sensor port")
	flag.UintVar(&sc.baud, "SensorBaud", 9600, "Serial sensor baud rate")
	flag.DurationVar(&sc.maxAge, "MaxAge", 5*time.Second, "Maximum age of a serial sensor value")
	flag.Float64Var(&sc.gain, "Gain", 1, "Measurement scale")
	flag.Float64Var(&sc.offset, "Offset", 0, "Measurement offset")

	var ac actuatorConfig
	flag.StringVar(&ac.kind, "Actuator", actLog, "Actuator: relay, serial or log")
	flag.IntVar(&ac.pin, "RelayPin", 17, "Relay GPIO pin")
	flag.DurationVar(&ac.window, "Window", defaultWindow, "Relay time proportioning window")
	flag.StringVar(&ac.port, "ActuatorPort", "/dev/ttyUSB1", "Serial actuator port")
	flag.UintVar(&ac.baud, "ActuatorBaud", 9600, "Serial actuator baud rate")
	flag.IntVar(&ac.prec, "Precision", 3, "Serial actuator decimal places, -1 for exact")

	paramStr := flag.String("Params", "", "Controller parameters and modes, e.g. Kp=1.2,Ki=0.1,Umin=0,Umax=1")
	period := flag.Duration("Period", defaultPeriod, "Sample time")
	sp := flag.Float64("Setpoint", 0, "Initial reference")
	configFile := flag.String("ConfigFile", defaultConfig, "Variables file, empty for none")
	poll := flag.Duration("Poll", defaultPoll, "Variables file poll period")
	metricsAddr := flag.String("MetricsAddr", "", "Prometheus metrics listen address, e.g. :9100, empty for none")
	logLevel := flag.Int("LogLevel", int(logging.Info), "Specifies log level")
	logPath := flag.String("LogPath", "/var/log/pid-controller/pid-controller.log", "Specifies log file, empty for stderr only")
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
	params, err := loop.ParamsFromVars(pid.DefaultParams(1, 0, 0), vars)
	if err != nil {
		log.Fatal("invalid params", "error", err.Error())
	}
	ctrl, err := pid.New(params)
	if err != nil {
		log.Fatal("could not create controller", "error", err.Error())
	}

	y, sensorCloser, err := newSensor(sc, log)
	if err != nil {
		log.Fatal("could not initialise sensor", "error", err.Error())
	}
	defer sensorCloser.Close()

	ac.umin, ac.umax = params.Umin, params.Umax
	if math.IsInf(ac.umin, -1) {
		ac.umin = 0
	}
	if math.IsInf(ac.umax, 1) {
		ac.umax = 1
	}
	act, runAct, actCloser, err := newActuator(ac, log)
	if err != nil {
		log.Fatal("could not initialise actuator", "error", err.Error())
	}
	defer actCloser.Close()

	var opts []loop.Option
	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		m, err := metrics.New("pidctl", reg)
		if err != nil {
			log.Fatal("could not create metrics", "error", err.Error())
		}
		opts = append(opts, loop.WithObserver(m.Observe))
	}

	setpoint := newSetpoint(*sp)
	l, err := loop.New(ctrl, loop.SignalFuncs{R: setpoint.Read, Y: y}, act, *period, log, opts...)
	if err != nil {
		log.Fatal("could not create loop", "error", err.Error())
	}

	// Modes and windup given with -Params.
	err = l.Update(vars)
	if err != nil {
		log.Fatal("could not apply params", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := run(ctx)
			if !errors.Is(err, context.Canceled) {
				log.Error("stopped unexpectedly", "name", name, "error", err)
				return
			}
			log.Debug("stopped", "name", name)
		}()
	}

	if *configFile != "" {
		watcher, err := config.NewWatcher(*configFile, *poll, applyVars(l, setpoint, log), log)
		if err != nil {
			log.Fatal("could not create config watcher", "error", err.Error())
		}
		start("config watcher", watcher.Run)
	}
	if *metricsAddr != "" {
		start("metrics", func(ctx context.Context) error { return metrics.Serve(ctx, *metricsAddr, reg, log) })
	}
	if runAct != nil {
		start("actuator", runAct)
	}
	start("control loop", l.Run)

	wg.Wait()
	log.Info("shut down", "ticks", l.Ticks(), "medianError", l.MedianError(), "errorStdDev", l.ErrorStdDev())
}

/*
DESCRIPTION
  setup.go provides construction of the sensor and actuator used by
  pid-controller, and application of variables from the config file.

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
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ausocean/pidctl/pi/actuator"
	"github.com/ausocean/pidctl/pi/loop"
	"github.com/ausocean/pidctl/pi/sensor"
	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/sliceutils"
)

// Actuator kinds.
const (
	actRelay  = "relay"
	actSerial = "serial"
	actLog    = "log"
)

// VarSetpoint is the config file variable holding the reference.
const VarSetpoint = "Setpoint"

// sensorConfig holds the measurement settings.
type sensorConfig struct {
	kind     string
	id       string // DS18B20 sensor ID.
	pin      int    // DHT data pin.
	humidity bool
	channel  int // ADC channel.
	vref     float64
	i2cPort  int
	addr     int // EZO I2C address.
	port     string
	baud     uint
	maxAge   time.Duration
	gain     float64
	offset   float64
}

// actuatorConfig holds the control output settings.
type actuatorConfig struct {
	kind       string
	pin        int
	window     time.Duration
	umin, umax float64
	port       string
	baud       uint
	prec       int
}

// nopCloser is a closer for devices that need no cleanup.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSensor returns a measurement function for the configured sensor and a
// closer releasing the device.
func newSensor(c sensorConfig, log logging.Logger) (func() (float64, error), io.Closer, error) {
	kind, err := sensor.ParseKind(c.kind)
	if err != nil {
		return nil, nil, err
	}

	var (
		r      sensor.Reader
		closer io.Closer = nopCloser{}
	)
	switch kind {
	case sensor.KindDS18B20:
		r, err = sensor.NewDS18B20(c.id, log)
	case sensor.KindDHT11, sensor.KindDHT22:
		r, err = sensor.NewDHT(kind, c.pin, c.humidity, log)
	case sensor.KindADC:
		var adc *sensor.ADC
		adc, err = sensor.NewADC(c.channel, c.vref)
		r, closer = adc, adc
	case sensor.KindEZO:
		if c.addr < 0 || c.addr > 0x7f || c.i2cPort < 0 || c.i2cPort > 0xff {
			return nil, nil, fmt.Errorf("invalid I2C port or address: %d, %#x", c.i2cPort, c.addr)
		}
		r = sensor.NewEZO(byte(c.i2cPort), byte(c.addr), log)
	case sensor.KindSerial:
		var s *sensor.Serial
		s, err = sensor.OpenSerial(c.port, c.baud, c.maxAge, log)
		r, closer = s, s
	case sensor.KindCPU:
		r = sensor.NewCPU()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not create %s sensor: %w", kind, err)
	}
	return sensor.Scaled(r, c.gain, c.offset), closer, nil
}

// newActuator returns the configured actuator, a function to run alongside
// the loop (nil if none is needed) and a closer releasing the device.
func newActuator(c actuatorConfig, log logging.Logger) (loop.Actuator, func(context.Context) error, io.Closer, error) {
	switch strings.ToLower(c.kind) {
	case actRelay:
		if math.IsInf(c.umin, 0) || math.IsInf(c.umax, 0) {
			return nil, nil, nil, errors.New("relay needs finite control limits")
		}
		r, err := actuator.NewRelay(c.pin, c.umin, c.umax, c.window, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("could not create relay: %w", err)
		}
		return r, r.Run, nopCloser{}, nil
	case actSerial:
		s, closer, err := actuator.OpenSerial(c.port, c.baud, c.prec)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, closer, nil
	case actLog:
		return actuator.NewLog(log), nil, nopCloser{}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown actuator: %q", c.kind)
	}
}

// setpoint holds the reference, settable while the loop runs.
type setpoint struct {
	bits atomic.Uint64
}

func newSetpoint(v float64) *setpoint {
	s := &setpoint{}
	s.Set(v)
	return s
}

func (s *setpoint) Set(v float64) { s.bits.Store(math.Float64bits(v)) }

func (s *setpoint) Get() float64 { return math.Float64frombits(s.bits.Load()) }

// Read satisfies the reference function signature.
func (s *setpoint) Read() (float64, error) { return s.Get(), nil }

// applyVars returns a function applying config file variables to l and sp.
// Unknown variables are logged and otherwise ignored.
func applyVars(l *loop.Loop, sp *setpoint, log logging.Logger) func(map[string]string) error {
	names := loop.VarNames()
	return func(vars map[string]string) error {
		var errs []error
		for k, v := range vars {
			switch {
			case k == VarSetpoint:
				f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
				if err != nil {
					errs = append(errs, fmt.Errorf("could not convert %s value to float: %w", k, err))
					continue
				}
				sp.Set(f)
				log.Info("setpoint changed", "setpoint", f)
			case !sliceutils.ContainsString(names, k):
				log.Warning("ignoring unknown variable", "name", k)
			}
		}
		errs = append(errs, l.Update(vars))
		return errors.Join(errs...)
	}
}

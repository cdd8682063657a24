/*
DESCRIPTION
  sensor.go provides common definitions for measurement sources.

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

// Package sensor provides measurement sources for a control loop. Each
// source has a Read method of the form func() (float64, error), suitable for
// use in a loop.SignalFuncs.
package sensor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSensor  = errors.New("no sensor connected")
	ErrNoReading = errors.New("no reading available")
	ErrStale     = errors.New("reading is stale")
)

// Reader is implemented by all sensors in this package.
type Reader interface {
	Read() (float64, error)
}

// Scaled returns a function reading r and applying v*gain + offset, e.g. to
// convert volts to engineering units.
func Scaled(r Reader, gain, offset float64) func() (float64, error) {
	return func() (float64, error) {
		v, err := r.Read()
		if err != nil {
			return 0, err
		}
		return v*gain + offset, nil
	}
}

// Kind names a sensor type for command line selection.
type Kind string

const (
	KindDS18B20 Kind = "ds18b20"
	KindDHT11   Kind = "dht11"
	KindDHT22   Kind = "dht22"
	KindADC     Kind = "adc"
	KindEZO     Kind = "ezo"
	KindSerial  Kind = "serial"
	KindCPU     Kind = "cpu"
)

// Kinds lists the supported sensor kinds.
var Kinds = []Kind{KindDS18B20, KindDHT11, KindDHT22, KindADC, KindEZO, KindSerial, KindCPU}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sensor kind: %q", s)
}

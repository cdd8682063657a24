/*
DESCRIPTION
  actuator.go provides control signal outputs for a control loop.

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

// Package actuator provides outputs for the control signal of a loop. Each
// type implements loop.Actuator.
package actuator

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/ausocean/utils/logging"
	"github.com/jacobsa/go-serial/serial"
)

// Log writes the control signal to a logger, for dry runs.
type Log struct {
	log logging.Logger
}

// NewLog returns a Log writing at info level to log.
func NewLog(log logging.Logger) *Log { return &Log{log: log} }

// Set implements loop.Actuator.
func (a *Log) Set(u float64) error {
	a.log.Info("control signal", "u", u)
	return nil
}

// Serial writes the control signal as one decimal number per line.
type Serial struct {
	mu   sync.Mutex
	w    io.Writer
	prec int
	buf  []byte
}

// OpenSerial opens the named serial port at the given baud rate and returns a
// Serial writing u with prec decimal places.
func OpenSerial(port string, baud uint, prec int) (*Serial, io.Closer, error) {
	options := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 4,
	}
	rwc, err := serial.Open(options)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open serial port %s: %w", port, err)
	}
	return NewSerial(rwc, prec), rwc, nil
}

// NewSerial returns a Serial writing to w with prec decimal places. A
// negative prec uses the smallest number of digits that represent u exactly.
func NewSerial(w io.Writer, prec int) *Serial {
	return &Serial{w: w, prec: prec}
}

// Set implements loop.Actuator.
func (a *Serial) Set(u float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf = strconv.AppendFloat(a.buf[:0], u, 'f', a.prec, 64)
	a.buf = append(a.buf, '\n')
	_, err := a.w.Write(a.buf)
	if err != nil {
		return fmt.Errorf("could not write control signal: %w", err)
	}
	return nil
}

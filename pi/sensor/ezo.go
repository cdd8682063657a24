/*
DESCRIPTION
  ezo.go provides a source for Atlas Scientific EZO sensors, e.g.
  conductivity or dissolved oxygen, on the I2C bus.

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

package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/kidoman/embd"
)

// EZO I2C protocol values.
const (
	ezoReadDelay   = 600 * time.Millisecond
	ezoReadCmd     = "R"
	ezoMinResponse = 3
	ezoMaxResponse = 40
	ezoSuccess     = 1
)

// Common EZO I2C addresses.
const (
	EZOConductivityAddr = 0x64
	EZODissolvedO2Addr  = 0x61
)

type i2cBus interface {
	WriteBytes(addr byte, value []byte) error
	ReadBytes(addr byte, num int) ([]byte, error)
}

// EZO reads a single value from an Atlas Scientific EZO circuit.
type EZO struct {
	bus   i2cBus
	addr  byte
	delay time.Duration
	log   logging.Logger
}

// NewEZO returns an EZO at addr on the given I2C port.
func NewEZO(port, addr byte, log logging.Logger) *EZO {
	return &EZO{bus: embd.NewI2CBus(port), addr: addr, delay: ezoReadDelay, log: log}
}

// Read implements Reader. It blocks for the EZO processing delay.
func (s *EZO) Read() (float64, error) {
	err := s.bus.WriteBytes(s.addr, []byte(ezoReadCmd))
	if err != nil {
		return 0, fmt.Errorf("failed to write command to I2C device: %w", err)
	}
	time.Sleep(s.delay)
	b, err := s.bus.ReadBytes(s.addr, ezoMaxResponse)
	if err != nil {
		return 0, fmt.Errorf("failed to read I2C device: %w", err)
	}
	v, code, err := parseEZO(b)
	if err != nil {
		return 0, fmt.Errorf("could not parse response: %w", err)
	}
	if code != ezoSuccess {
		s.log.Warning("error code in response", "addr", s.addr, "code", code)
	}
	return v, nil
}

// parseEZO parses an EZO response of a response code byte followed by an
// ASCII value padded with NULs.
func parseEZO(b []byte) (float64, int, error) {
	n := len(b)
	if n < ezoMinResponse || ezoMaxResponse < n {
		return -1, -1, fmt.Errorf("wrong number of bytes in response, should be %d < n < %d, but contains %d", ezoMinResponse, ezoMaxResponse, n)
	}
	code := int(b[0])
	v, err := strconv.ParseFloat(strings.TrimRight(string(b[1:]), "\x00"), 64)
	if err != nil {
		return -1, -1, fmt.Errorf("could not parse float from response: %w", err)
	}
	return v, code, nil
}

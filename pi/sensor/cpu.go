/*
DESCRIPTION
  cpu.go provides a reader of the Raspberry Pi SoC temperature, e.g. for
  fan control.

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
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const vcgencmd = "/opt/vc/bin/vcgencmd"

// ErrParsingCPUTemp is returned when the vcgencmd output is not understood.
var ErrParsingCPUTemp = errors.New("could not parse CPU temperature")

// CPU reads the SoC temperature in degrees Celsius.
type CPU struct {
	run func() ([]byte, error)
}

// NewCPU returns a CPU using vcgencmd.
func NewCPU() *CPU {
	return &CPU{run: func() ([]byte, error) {
		return exec.Command(vcgencmd, "measure_temp").Output()
	}}
}

// Read implements Reader.
func (s *CPU) Read() (float64, error) {
	out, err := s.run()
	if err != nil {
		return 0, fmt.Errorf("could not run vcgencmd: %w", err)
	}
	return parseCPUTemp(string(out))
}

// parseCPUTemp parses output of the form "temp=47.2'C".
func parseCPUTemp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, ok := strings.CutPrefix(s, "temp=")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParsingCPUTemp, s)
	}
	v, ok = strings.CutSuffix(v, "'C")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParsingCPUTemp, s)
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParsingCPUTemp, s)
	}
	return t, nil
}

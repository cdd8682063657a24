/*
DESCRIPTION
  windup.go provides anti-windup handling of the integral increment of the
  PID controller.

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

package pid

import (
	"fmt"
	"strings"
)

// Windup indicates which output limit(s), if any, an external actuator is
// pinned at.
type Windup uint8

// Windup states.
const (
	WindupNone  Windup = iota
	WindupUpper        // Pinned at upper limit; integral may not increase.
	WindupLower        // Pinned at lower limit; integral may not decrease.
	WindupBoth
)

// String implements fmt.Stringer.
func (w Windup) String() string {
	switch w {
	case WindupNone:
		return "none"
	case WindupUpper:
		return "upper"
	case WindupLower:
		return "lower"
	case WindupBoth:
		return "both"
	default:
		return fmt.Sprintf("Windup(%d)", uint8(w))
	}
}

// ParseWindup parses a windup state from s. Parsing is case insensitive.
// The empty string and "false" are accepted as WindupNone.
func ParseWindup(s string) (Windup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false":
		return WindupNone, nil
	case "upper":
		return WindupUpper, nil
	case "lower":
		return WindupLower, nil
	case "both":
		return WindupBoth, nil
	default:
		return WindupNone, fmt.Errorf("%w: %q", ErrInvalidWindup, s)
	}
}

// AntiWindup restricts the integral increment dui so that the integrator
// cannot move further in the direction of active saturation.
func AntiWindup(dui float64, w Windup) float64 {
	if w == WindupLower || w == WindupBoth {
		dui = max(dui, 0)
	}
	if w == WindupUpper || w == WindupBoth {
		dui = min(dui, 0)
	}
	return dui
}

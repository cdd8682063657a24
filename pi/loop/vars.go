/*
DESCRIPTION
  vars.go provides a table of tunable loop variables that may be updated
  from string values, e.g. from a "key=value,..." parameter string.

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

package loop

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/utils/filemap"
	"github.com/ausocean/utils/sliceutils"
)

// Variable names.
const (
	VarKp     = "Kp"
	VarKi     = "Ki"
	VarKd     = "Kd"
	VarTfTs   = "TfTs"
	VarUmin   = "Umin"
	VarUmax   = "Umax"
	VarU0     = "U0"
	VarB      = "B"
	VarAuto   = "Auto"
	VarTrack  = "Track"
	VarWindup = "Windup"
	VarPeriod = "Period"
	VarReset  = "Reset"
)

// Information for variables that are tunable.
var variables = []struct {
	name   string
	typ    string
	update func(l *Loop, value string) error
}{
	{
		name: VarKp,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, func(c *pid.Controller, f float64) error {
				p := c.Params()
				return c.SetGains(f, p.Ki, p.Kd)
			})
		},
	},
	{
		name: VarKi,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, func(c *pid.Controller, f float64) error {
				p := c.Params()
				return c.SetGains(p.Kp, f, p.Kd)
			})
		},
	},
	{
		name: VarKd,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, func(c *pid.Controller, f float64) error {
				p := c.Params()
				return c.SetGains(p.Kp, p.Ki, f)
			})
		},
	},
	{
		name: VarTfTs,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, func(c *pid.Controller, f float64) error {
				if f != c.Filter().Ratio() {
					return errors.New("filter ratio can only be set when the controller is created")
				}
				return nil
			})
		},
	},
	{
		name: VarUmin,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, func(c *pid.Controller, f float64) error {
				return c.SetLimits(f, c.Params().Umax)
			})
		},
	},
	{
		name: VarUmax,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, func(c *pid.Controller, f float64) error {
				return c.SetLimits(c.Params().Umin, f)
			})
		},
	},
	{
		name: VarU0,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, (*pid.Controller).SetBias)
		},
	},
	{
		name: VarB,
		typ:  "float",
		update: func(l *Loop, v string) error {
			return setParam(l, v, (*pid.Controller).SetSetpointWeight)
		},
	},
	{
		name: VarAuto,
		typ:  "bool",
		update: func(l *Loop, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			l.SetAuto(b)
			return nil
		},
	},
	{
		name: VarTrack,
		typ:  "bool",
		update: func(l *Loop, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			l.SetTrack(b)
			return nil
		},
	},
	{
		name: VarWindup,
		typ:  "enum:none,upper,lower,both",
		update: func(l *Loop, v string) error {
			w, err := pid.ParseWindup(v)
			if err != nil {
				return err
			}
			l.SetWindup(w)
			return nil
		},
	},
	{
		name: VarPeriod,
		typ:  "uint",
		update: func(l *Loop, v string) error {
			ms, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("could not convert %s value to int: %w", VarPeriod, err)
			}
			return l.SetPeriod(time.Duration(ms) * time.Millisecond)
		},
	},
	{
		name: VarReset,
		typ:  "bool",
		// Reset acts on a change to true, so a file left with Reset true
		// does not reset the controller on every later update.
		update: func(l *Loop, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			l.mu.Lock()
			rising := b && !l.resetOn
			l.resetOn = b
			l.mu.Unlock()
			if rising {
				l.Reset()
			}
			return nil
		},
	},
}

// VarTypes returns a map of variable name to type.
func VarTypes() map[string]string {
	m := make(map[string]string, len(variables))
	for _, v := range variables {
		m[v.name] = v.typ
	}
	return m
}

// VarNames returns the names of the tunable variables.
func VarNames() []string {
	names := make([]string, len(variables))
	for i, v := range variables {
		names[i] = v.name
	}
	return names
}

// ParseVars decodes a parameter string of the form "Kp=1.2,Ki=0.1,...".
// Unknown variable names are an error.
func ParseVars(s string) (map[string]string, error) {
	vars := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return vars, nil
	}
	names := VarNames()
	for k, v := range filemap.Split(s, ",", "=") {
		k = strings.TrimSpace(k)
		if !sliceutils.ContainsString(names, k) {
			return nil, fmt.Errorf("unknown variable: %q", k)
		}
		vars[k] = strings.TrimSpace(v)
	}
	return vars, nil
}

// Update applies the given variable values to the loop, in table order.
// vars is taken to be the complete variable set, so an absent Reset counts
// as false.
// Failed updates are logged and returned joined; they do not prevent the
// remaining variables being applied.
func (l *Loop) Update(vars map[string]string) error {
	if _, ok := vars[VarReset]; !ok {
		l.mu.Lock()
		l.resetOn = false
		l.mu.Unlock()
	}

	var errs []error
	for _, v := range variables {
		value, ok := vars[v.name]
		if !ok {
			continue
		}
		err := v.update(l, strings.TrimSpace(value))
		if err != nil {
			l.log.Warning("could not update variable", "name", v.name, "error", err)
			errs = append(errs, fmt.Errorf("could not update %s: %w", v.name, err))
			continue
		}
		l.log.Debug("updated variable", "name", v.name, "value", value)
	}
	return errors.Join(errs...)
}

// ParamsFromVars returns p modified by any controller parameters in vars.
// It is intended for building a controller before a Loop exists.
func ParamsFromVars(p pid.Params, vars map[string]string) (pid.Params, error) {
	fields := []struct {
		name string
		dst  *float64
	}{
		{VarKp, &p.Kp}, {VarKi, &p.Ki}, {VarKd, &p.Kd}, {VarTfTs, &p.TfTs},
		{VarUmin, &p.Umin}, {VarUmax, &p.Umax}, {VarU0, &p.U0}, {VarB, &p.B},
	}
	for _, f := range fields {
		v, ok := vars[f.name]
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return p, fmt.Errorf("could not convert %s value to float: %w", f.name, err)
		}
		*f.dst = val
	}
	return p, p.Validate()
}

func setParam(l *Loop, v string, set func(c *pid.Controller, f float64) error) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("could not convert value to float: %w", err)
	}
	return l.Configure(func(c *pid.Controller) error { return set(c, f) })
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value: %s", v)
	}
}

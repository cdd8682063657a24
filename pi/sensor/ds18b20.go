/*
DESCRIPTION
  ds18b20.go provides a DS18B20 1-wire temperature sensor source.

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

	"github.com/ausocean/utils/logging"
	"github.com/yryz/ds18b20"
)

// DS18B20 reads temperature in degrees Celsius from a DS18B20 sensor.
type DS18B20 struct {
	id          string
	log         logging.Logger
	temperature func(id string) (float64, error)
}

// NewDS18B20 returns a DS18B20 for the sensor with the given 1-wire id. If id
// is empty the first connected sensor is used.
func NewDS18B20(id string, log logging.Logger) (*DS18B20, error) {
	return newDS18B20(id, log, ds18b20.Sensors, ds18b20.Temperature)
}

func newDS18B20(id string, log logging.Logger, sensors func() ([]string, error), temp func(string) (float64, error)) (*DS18B20, error) {
	if id == "" {
		ids, err := sensors()
		if err != nil {
			return nil, fmt.Errorf("could not list 1-wire sensors: %w", err)
		}
		if len(ids) == 0 {
			return nil, ErrNoSensor
		}
		id = ids[0]
		log.Info("using first DS18B20 sensor", "id", id, "found", len(ids))
	}
	return &DS18B20{id: id, log: log, temperature: temp}, nil
}

// Read implements Reader.
func (s *DS18B20) Read() (float64, error) {
	t, err := s.temperature(s.id)
	if err != nil {
		return 0, fmt.Errorf("could not read DS18B20 %s: %w", s.id, err)
	}
	return t, nil
}

// ID returns the 1-wire id of the sensor.
func (s *DS18B20) ID() string { return s.id }

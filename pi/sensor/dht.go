/*
DESCRIPTION
  dht.go provides a DHT11/DHT22 temperature and humidity sensor source.

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

	dht "github.com/d2r2/go-dht"

	"github.com/ausocean/utils/logging"
)

const dhtRetries = 5

// DHT reads either temperature (degrees Celsius) or relative humidity (%)
// from a DHT11 or DHT22 sensor.
type DHT struct {
	typ      dht.SensorType
	pin      int
	humidity bool
	log      logging.Logger
	read     func(typ dht.SensorType, pin int, boost bool, retries int) (float32, float32, int, error)
}

// NewDHT returns a DHT of the given kind (KindDHT11 or KindDHT22) on the
// given GPIO pin. Humidity is read if humidity is true, otherwise
// temperature.
func NewDHT(kind Kind, pin int, humidity bool, log logging.Logger) (*DHT, error) {
	var typ dht.SensorType
	switch kind {
	case KindDHT11:
		typ = dht.DHT11
	case KindDHT22:
		typ = dht.DHT22
	default:
		return nil, fmt.Errorf("invalid DHT kind: %s", kind)
	}
	return &DHT{typ: typ, pin: pin, humidity: humidity, log: log, read: dht.ReadDHTxxWithRetry}, nil
}

// Read implements Reader.
func (s *DHT) Read() (float64, error) {
	temp, hum, retried, err := s.read(s.typ, s.pin, true, dhtRetries)
	if err != nil {
		return 0, fmt.Errorf("could not read DHT on pin %d: %w", s.pin, err)
	}
	if retried > 0 {
		s.log.Debug("DHT read retried", "pin", s.pin, "retries", retried)
	}
	if s.humidity {
		return float64(hum), nil
	}
	return float64(temp), nil
}

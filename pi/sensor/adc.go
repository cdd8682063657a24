/*
DESCRIPTION
  adc.go provides an analog voltage source using an MCP3008 analog to
  digital converter on the SPI bus.

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
	"io"

	"github.com/kidoman/embd"
	"github.com/kidoman/embd/convertors/mcp3008"
)

// SPI bus properties.
const (
	spiMode    = embd.SPIMode0
	spiChannel = 0
	spiSpeed   = 1000000
	spiBPW     = 0
	spiDelay   = 0
)

// MCP3008 properties.
const (
	adcChannels = 8
	adcMax      = 1023
)

type analogReader interface {
	AnalogValueAt(chanNum int) (int, error)
}

// ADC reads a voltage from one channel of an MCP3008.
type ADC struct {
	adc  analogReader
	bus  io.Closer
	ch   int
	vref float64
}

// NewADC initialises the SPI bus and returns an ADC reading channel ch with
// reference voltage vref.
func NewADC(ch int, vref float64) (*ADC, error) {
	err := checkADC(ch, vref)
	if err != nil {
		return nil, err
	}

	err = embd.InitSPI()
	if err != nil {
		return nil, fmt.Errorf("could not initialise SPI drivers: %w", err)
	}

	bus := embd.NewSPIBus(
		spiMode,
		spiChannel,
		spiSpeed,
		spiBPW,
		spiDelay,
	)
	return &ADC{
		adc:  mcp3008.New(mcp3008.SingleMode, bus),
		bus:  bus,
		ch:   ch,
		vref: vref,
	}, nil
}

func checkADC(ch int, vref float64) error {
	if ch < 0 || ch >= adcChannels {
		return fmt.Errorf("invalid ADC channel: %d", ch)
	}
	if !(vref > 0) {
		return fmt.Errorf("invalid reference voltage: %v", vref)
	}
	return nil
}

// Read implements Reader, returning volts.
func (s *ADC) Read() (float64, error) {
	v, err := s.adc.AnalogValueAt(s.ch)
	if err != nil {
		return 0, fmt.Errorf("could not read ADC channel %d: %w", s.ch, err)
	}
	return float64(v) / adcMax * s.vref, nil
}

// Close releases the SPI bus.
func (s *ADC) Close() error {
	if s.bus == nil {
		return nil
	}
	err := s.bus.Close()
	if err != nil {
		return err
	}
	return embd.CloseSPI()
}

/*
DESCRIPTION
  sensor_test.go provides testing of the sensor sources using fake devices.

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
	"io"
	"sync"
	"testing"
	"time"

	dht "github.com/d2r2/go-dht"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ausocean/utils/logging"
)

func testLogger() logging.Logger {
	return logging.New(logging.Debug, io.Discard, true)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"ds18b20", KindDS18B20, true},
		{" DHT22 ", KindDHT22, true},
		{"Serial", KindSerial, true},
		{"cpu", KindCPU, true},
		{"thermocouple", "", false},
	}

	for i, test := range tests {
		got, err := ParseKind(test.in)
		if (err == nil) != test.ok {
			t.Errorf("did not get expected error state from test: %d. Got: %v", i, err)
		}
		if got != test.want {
			t.Errorf("did not get expected result from test: %d. Got: %s, Want: %s", i, got, test.want)
		}
	}
}

type constReader float64

func (r constReader) Read() (float64, error) { return float64(r), nil }

func TestScaled(t *testing.T) {
	f := Scaled(constReader(2.5), 10, -5)
	got, err := f()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 20 {
		t.Errorf("did not get expected result. Got: %v, Want: 20", got)
	}
}

func TestDS18B20(t *testing.T) {
	temps := map[string]float64{"28-0001": 21.5, "28-0002": 19}
	temp := func(id string) (float64, error) {
		v, ok := temps[id]
		if !ok {
			return 0, errors.New("no such sensor")
		}
		return v, nil
	}

	s, err := newDS18B20("", testLogger(), func() ([]string, error) { return []string{"28-0001", "28-0002"}, nil }, temp)
	if err != nil {
		t.Fatalf("could not create sensor: %v", err)
	}
	if s.ID() != "28-0001" {
		t.Errorf("did not use first sensor. Got: %s", s.ID())
	}
	got, err := s.Read()
	if err != nil || got != 21.5 {
		t.Errorf("did not get expected reading. Got: %v, %v, Want: 21.5", got, err)
	}

	s, _ = newDS18B20("28-0003", testLogger(), nil, temp)
	_, err = s.Read()
	if err == nil {
		t.Error("expected error reading missing sensor")
	}

	_, err = newDS18B20("", testLogger(), func() ([]string, error) { return nil, nil }, temp)
	if !errors.Is(err, ErrNoSensor) {
		t.Errorf("expected ErrNoSensor. Got: %v", err)
	}
}

func TestDHT(t *testing.T) {
	s, err := NewDHT(KindDHT22, 22, false, testLogger())
	if err != nil {
		t.Fatalf("could not create sensor: %v", err)
	}
	var gotType dht.SensorType
	s.read = func(typ dht.SensorType, pin int, boost bool, retries int) (float32, float32, int, error) {
		gotType = typ
		return 23.5, 61, 2, nil
	}

	temp, err := s.Read()
	if err != nil || temp != 23.5 {
		t.Errorf("did not get expected temperature. Got: %v, %v", temp, err)
	}
	if gotType != dht.DHT22 {
		t.Errorf("did not read expected sensor type. Got: %v", gotType)
	}

	s.humidity = true
	hum, err := s.Read()
	if err != nil || hum != 61 {
		t.Errorf("did not get expected humidity. Got: %v, %v", hum, err)
	}

	_, err = NewDHT(KindADC, 22, false, testLogger())
	if err == nil {
		t.Error("expected error for non DHT kind")
	}
}

type fakeADC map[int]int

func (f fakeADC) AnalogValueAt(ch int) (int, error) {
	v, ok := f[ch]
	if !ok {
		return 0, errors.New("channel not connected")
	}
	return v, nil
}

func TestADC(t *testing.T) {
	s := &ADC{adc: fakeADC{0: 0, 3: 1023, 5: 341}, ch: 3, vref: 3.3}
	if got, _ := s.Read(); got != 3.3 {
		t.Errorf("did not get full scale reading. Got: %v, Want: 3.3", got)
	}
	s.ch = 5
	if got, _ := s.Read(); !scalar.EqualWithinAbsOrRel(got, 1.1, 1e-12, 1e-12) {
		t.Errorf("did not get expected reading. Got: %v, Want: 1.1", got)
	}
	s.ch = 7
	if _, err := s.Read(); err == nil {
		t.Error("expected error from unconnected channel")
	}
	if err := s.Close(); err != nil {
		t.Errorf("unexpected error closing: %v", err)
	}

	for _, test := range []struct {
		ch   int
		vref float64
	}{{-1, 3.3}, {8, 3.3}, {0, 0}} {
		if checkADC(test.ch, test.vref) == nil {
			t.Errorf("expected error for channel %d and vref %v", test.ch, test.vref)
		}
	}
}

type fakeI2C struct {
	written []byte
	resp    []byte
}

func (f *fakeI2C) WriteBytes(addr byte, b []byte) error {
	f.written = append(f.written, b...)
	return nil
}

func (f *fakeI2C) ReadBytes(addr byte, n int) ([]byte, error) {
	return f.resp, nil
}

func TestEZO(t *testing.T) {
	bus := &fakeI2C{resp: append([]byte{1}, []byte("53.2\x00\x00\x00")...)}
	s := &EZO{bus: bus, addr: EZOConductivityAddr, log: testLogger()}

	got, err := s.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 53.2 {
		t.Errorf("did not get expected reading. Got: %v, Want: 53.2", got)
	}
	if string(bus.written) != ezoReadCmd {
		t.Errorf("did not write read command. Got: %q", bus.written)
	}

	tests := []struct {
		in   []byte
		want float64
		code int
		ok   bool
	}{
		{in: []byte("\x0112.5"), want: 12.5, code: 1, ok: true},
		{in: []byte("\x02"), want: -1, code: -1},
		{in: []byte("\x01abc"), want: -1, code: -1},
	}
	for i, test := range tests {
		v, code, err := parseEZO(test.in)
		if (err == nil) != test.ok {
			t.Errorf("did not get expected error state from test: %d. Got: %v", i, err)
		}
		if v != test.want || code != test.code {
			t.Errorf("did not get expected result from test: %d. Got: %v, %d, Want: %v, %d", i, v, code, test.want, test.code)
		}
	}
}

// clock is a settable time source safe for concurrent use.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// waitFor polls s until it reads want or the deadline passes.
func waitFor(t *testing.T, s *Serial, want float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		v, err := s.Read()
		if err == nil && v == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("did not read expected value: %v", want)
}

func TestSerial(t *testing.T) {
	pr, pw := io.Pipe()
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newSerial(pr, time.Second, testLogger(), c.now)

	_, err := s.Read()
	if !errors.Is(err, ErrNoReading) {
		t.Errorf("expected ErrNoReading before first line. Got: %v", err)
	}

	io.WriteString(pw, "21.5\r\n")
	waitFor(t, s, 21.5)

	io.WriteString(pw, "garbage\n\n22.25\n")
	waitFor(t, s, 22.25)

	c.add(2 * time.Second)
	v, err := s.Read()
	if !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale. Got: %v", err)
	}
	if v != 22.25 {
		t.Errorf("did not get last value with stale error. Got: %v", v)
	}

	if err := s.Close(); err != nil {
		t.Errorf("unexpected error closing: %v", err)
	}
	pw.Close()
}

func TestCPU(t *testing.T) {
	tests := []struct {
		out     string
		runErr  error
		want    float64
		wantErr bool
	}{
		{out: "temp=47.2'C\n", want: 47.2},
		{out: "temp=-3.0'C", want: -3},
		{out: "temp=47.2", wantErr: true},
		{out: "47.2'C", wantErr: true},
		{out: "temp=hot'C", wantErr: true},
		{runErr: errors.New("no vcgencmd"), wantErr: true},
	}

	for i, test := range tests {
		s := &CPU{run: func() ([]byte, error) { return []byte(test.out), test.runErr }}
		got, err := s.Read()
		if (err != nil) != test.wantErr {
			t.Errorf("did not get expected error for test: %d. Got: %v", i, err)
			continue
		}
		if got != test.want {
			t.Errorf("did not get expected result from test: %d. Got: %v, Want: %v", i, got, test.want)
		}
	}
}

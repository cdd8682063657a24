/*
DESCRIPTION
  serial.go provides a source reading line oriented numeric values from a
  serial device.

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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/jacobsa/go-serial/serial"
)

// Serial keeps the most recent value of a device that writes one number per
// line, e.g. "21.5\r\n". Lines that do not parse are logged and skipped.
type Serial struct {
	rc     io.ReadCloser
	log    logging.Logger
	now    func() time.Time
	maxAge time.Duration

	mu   sync.Mutex
	v    float64
	at   time.Time
	ok   bool
	err  error // Terminal read error.
	done chan struct{}
}

// OpenSerial opens the named serial port at the given baud rate. If maxAge is
// non-zero, readings older than maxAge are reported as ErrStale.
func OpenSerial(port string, baud uint, maxAge time.Duration, log logging.Logger) (*Serial, error) {
	options := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 4,
	}
	rc, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", port, err)
	}
	log.Info("opened serial port", "port", port, "baud", baud)
	return NewSerial(rc, maxAge, log), nil
}

// NewSerial returns a Serial reading from rc, which is closed by Close.
func NewSerial(rc io.ReadCloser, maxAge time.Duration, log logging.Logger) *Serial {
	return newSerial(rc, maxAge, log, time.Now)
}

func newSerial(rc io.ReadCloser, maxAge time.Duration, log logging.Logger, now func() time.Time) *Serial {
	s := &Serial{
		rc:     rc,
		log:    log,
		now:    now,
		maxAge: maxAge,
		done:   make(chan struct{}),
	}
	go s.scan()
	return s
}

func (s *Serial) scan() {
	defer close(s.done)
	sc := bufio.NewScanner(s.rc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			s.log.Warning("could not parse serial reading", "line", line, "error", err.Error())
			continue
		}
		s.mu.Lock()
		s.v, s.at, s.ok = v, s.now(), true
		s.mu.Unlock()
	}

	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.Debug("serial scan finished", "error", err.Error())
}

// Read implements Reader, returning the most recent value.
func (s *Serial) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.ok && s.err != nil:
		return 0, fmt.Errorf("%w: %w", ErrNoReading, s.err)
	case !s.ok:
		return 0, ErrNoReading
	case s.maxAge > 0 && s.now().Sub(s.at) > s.maxAge:
		return s.v, fmt.Errorf("%w: last reading at %s", ErrStale, s.at.Format(time.RFC3339))
	}
	return s.v, nil
}

// Close closes the device and waits for the reader to finish.
func (s *Serial) Close() error {
	err := s.rc.Close()
	<-s.done
	return err
}

/*
DESCRIPTION
  stats.go provides running statistics of the control error.

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
	"sort"

	"gonum.org/v1/gonum/stat"
)

// window is a fixed size ring of the most recent values.
type window struct {
	buf  []float64
	i, l int
}

func newWindow(n int) *window { return &window{buf: make([]float64, n)} }

func (w *window) add(v float64) {
	w.buf[w.i] = v
	w.i = (w.i + 1) % len(w.buf)
	if w.l != len(w.buf) {
		w.l++
	}
}

// values returns the filled part of the window, in no particular order.
func (w *window) values() []float64 { return w.buf[:w.l] }

// errorStats holds a running median and running standard deviation of the
// control error over separate windows.
type errorStats struct {
	med, sd *window
	sorted  []float64
}

func newErrorStats(medN, sdN int) *errorStats {
	return &errorStats{
		med:    newWindow(medN),
		sd:     newWindow(sdN),
		sorted: make([]float64, medN),
	}
}

func (s *errorStats) update(e float64) {
	s.med.add(e)
	s.sd.add(e)
}

// median returns the median of the median window, averaging the two middle
// values for an even count. Zero is returned for an empty window.
func (s *errorStats) median() float64 {
	v := s.med.values()
	n := len(v)
	if n == 0 {
		return 0
	}
	sorted := s.sorted[:n]
	copy(sorted, v)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// stdDev returns the sample standard deviation of the std dev window; zero
// until at least two values have been seen.
func (s *errorStats) stdDev() float64 {
	v := s.sd.values()
	if len(v) < 2 {
		return 0
	}
	_, sd := stat.MeanStdDev(v, nil)
	return sd
}

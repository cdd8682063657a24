/*
DESCRIPTION
  iodata.go provides reading and writing of controller input-output data,
  one record per controller step, in CSV form.

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

// Package iodata provides controller input-output data sets used as
// regression fixtures and simulation records. A data set is stored as CSV
// with the header
//
//	r,y,uff,uman,utrack,Tx,auto,track,u
//
// Columns may appear in any order on read. Booleans are read case
// insensitively and written in lower case.
package iodata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ausocean/pidctl/pi/pid"
)

// Column names.
const (
	ColR      = "r"
	ColY      = "y"
	ColUff    = "uff"
	ColUman   = "uman"
	ColUtrack = "utrack"
	ColTx     = "Tx"
	ColAuto   = "auto"
	ColTrack  = "track"
	ColU      = "u"
)

// Header is the column order used when writing.
var Header = []string{ColR, ColY, ColUff, ColUman, ColUtrack, ColTx, ColAuto, ColTrack, ColU}

// ErrMissingColumn is returned by Read if the header lacks a column.
var ErrMissingColumn = errors.New("missing column")

// Record holds the inputs and resulting control signal for one step.
type Record struct {
	R, Y, Uff, Uman, Utrack, Tx float64
	Auto, Track                 bool
	U                           float64
}

// Inputs returns the controller inputs for the record.
func (r Record) Inputs() pid.Inputs {
	return pid.Inputs{
		R:      r.R,
		Y:      r.Y,
		Uff:    r.Uff,
		Uman:   r.Uman,
		Utrack: r.Utrack,
		Tx:     r.Tx,
		Track:  r.Track,
		Manual: !r.Auto,
	}
}

// Data is a sequence of records in step order.
type Data []Record

// Outputs returns the control signal column.
func (d Data) Outputs() []float64 {
	u := make([]float64, len(d))
	for i, r := range d {
		u[i] = r.U
	}
	return u
}

// Read decodes a data set from CSV.
func Read(r io.Reader) (Data, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	idx := make(map[string]int, len(head))
	for i, h := range head {
		idx[strings.TrimSpace(h)] = i
	}
	for _, h := range Header {
		if _, ok := idx[h]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, h)
		}
	}

	var d Data
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return d, nil
		}
		if err != nil {
			return nil, fmt.Errorf("could not read line %d: %w", line, err)
		}

		var (
			rec  Record
			errs []error
		)
		float := func(col string, dst *float64) {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx[col]]), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", col, err))
			}
			*dst = v
		}
		boolean := func(col string, dst *bool) {
			v, err := parseBool(row[idx[col]])
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", col, err))
			}
			*dst = v
		}
		float(ColR, &rec.R)
		float(ColY, &rec.Y)
		float(ColUff, &rec.Uff)
		float(ColUman, &rec.Uman)
		float(ColUtrack, &rec.Utrack)
		float(ColTx, &rec.Tx)
		boolean(ColAuto, &rec.Auto)
		boolean(ColTrack, &rec.Track)
		float(ColU, &rec.U)
		if len(errs) != 0 {
			return nil, fmt.Errorf("could not parse line %d: %w", line, errors.Join(errs...))
		}
		d = append(d, rec)
	}
}

// Write encodes a data set as CSV.
func Write(w io.Writer, d Data) error {
	cw := csv.NewWriter(w)
	err := cw.Write(Header)
	if err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}

	row := make([]string, len(Header))
	for i, r := range d {
		row[0] = formatFloat(r.R)
		row[1] = formatFloat(r.Y)
		row[2] = formatFloat(r.Uff)
		row[3] = formatFloat(r.Uman)
		row[4] = formatFloat(r.Utrack)
		row[5] = formatFloat(r.Tx)
		row[6] = strconv.FormatBool(r.Auto)
		row[7] = strconv.FormatBool(r.Track)
		row[8] = formatFloat(r.U)
		err = cw.Write(row)
		if err != nil {
			return fmt.Errorf("could not write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads a data set from the named file.
func Load(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open data file: %w", err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return d, nil
}

// Save writes a data set to the named file, replacing any existing file.
func Save(path string, d Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create data file: %w", err)
	}

	err = Write(f, d)
	if err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value: %q", s)
	}
}

/*
DESCRIPTION
  iodata_test.go provides testing of data set encoding, signal generation,
  replay and plotting.

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

package iodata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/ausocean/pidctl/pi/pid"
	"gonum.org/v1/gonum/floats"
)

const plotFolder = "plots"

var sample = Data{
	{R: 1, Y: 0.5, Tx: 1, Auto: true, U: 0.25},
	{R: 1, Y: 0.75, Uff: 0.1, Utrack: 2, Tx: 1.5, Track: true, U: 2},
}

const sampleCSV = `r,y,uff,uman,utrack,Tx,auto,track,u
1,0.5,0,0,0,1,true,false,0.25
1,0.75,0.1,0,2,1.5,false,true,2
`

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, sample)
	if err != nil {
		t.Fatalf("could not write data: %v", err)
	}
	if got := buf.String(); got != sampleCSV {
		t.Errorf("did not get expected output. Diff:\n%v", diff.LineDiff(sampleCSV, got))
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Data
		err  error
	}{
		{
			name: "written",
			in:   sampleCSV,
			want: sample,
		},
		{
			name: "title case booleans",
			in:   "r,y,uff,uman,utrack,Tx,auto,track,u\n0.0,0.0,0.0,0.0,0.0,1.0,True,False,0.5\n",
			want: Data{{Tx: 1, Auto: true, U: 0.5}},
		},
		{
			name: "reordered columns",
			in:   "u,track,auto,Tx,utrack,uman,uff,y,r\n3,false,TRUE,2,0,0.5,0,0,1\n",
			want: Data{{R: 1, Uman: 0.5, Tx: 2, Auto: true, U: 3}},
		},
		{
			name: "missing column",
			in:   "r,y,uff,uman,Tx,auto,track,u\n0,0,0,0,1,true,false,0\n",
			err:  ErrMissingColumn,
		},
		{
			name: "bad bool",
			in:   "r,y,uff,uman,utrack,Tx,auto,track,u\n0,0,0,0,0,1,yes,false,0\n",
			err:  errors.New(""),
		},
		{
			name: "bad float",
			in:   "r,y,uff,uman,utrack,Tx,auto,track,u\n0,x,0,0,0,1,true,false,0\n",
			err:  errors.New(""),
		},
	}

	for _, test := range tests {
		got, err := Read(strings.NewReader(test.in))
		if test.err != nil {
			if err == nil {
				t.Errorf("expected error for test: %s", test.name)
			}
			if errors.Is(test.err, ErrMissingColumn) && !errors.Is(err, ErrMissingColumn) {
				t.Errorf("did not get expected error for test: %s. Got: %v, Want: %v", test.name, err, test.err)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error for test: %s: %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("did not get expected result from test: %s. Got: %+v, Want: %+v", test.name, got, test.want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "step.csv")
	err := Save(path, sample)
	if err != nil {
		t.Fatalf("could not save data: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("could not load data: %v", err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("did not get expected data. Got: %+v, Want: %+v", got, sample)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Error("expected error loading missing file")
	}
}

func TestSignals(t *testing.T) {
	if got, want := Step(5), []float64{0, 0, 1, 1, 1}; !floats.Equal(got, want) {
		t.Errorf("did not get expected step. Got: %v, Want: %v", got, want)
	}
	if got, want := Constant(0.5, 3), []float64{0.5, 0.5, 0.5}; !floats.Equal(got, want) {
		t.Errorf("did not get expected constant. Got: %v, Want: %v", got, want)
	}
	if got, want := Switch(true, 2, 4), []bool{true, true, false, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("did not get expected switch. Got: %v, Want: %v", got, want)
	}

	a, b := Random(10, 42), Random(10, 42)
	if !floats.Equal(a, b) {
		t.Errorf("random signal not reproducible. Got: %v and %v", a, b)
	}
	if floats.Equal(a, Random(10, 43)) {
		t.Error("different seeds gave the same random signal")
	}

	for i, tx := range Irregular(50, 0.5, 1) {
		if !(tx > 0) {
			t.Errorf("non-positive period at: %d. Got: %v", i, tx)
		}
	}
}

func TestBuild(t *testing.T) {
	d, err := Signals{R: Step(4), Auto: Switch(false, 3, 4)}.Build(4)
	if err != nil {
		t.Fatalf("could not build data: %v", err)
	}
	want := Data{
		{Tx: 1},
		{Tx: 1},
		{R: 1, Tx: 1},
		{R: 1, Tx: 1, Auto: true},
	}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("did not get expected data. Got: %+v, Want: %+v", d, want)
	}

	_, err = Signals{R: Step(3)}.Build(4)
	if err == nil {
		t.Error("expected error for short signal")
	}
	_, err = Signals{Track: Switch(false, 1, 5)}.Build(4)
	if err == nil {
		t.Error("expected error for long signal")
	}
}

// TestReplay generates a fixture, saves it, and checks that a fresh
// controller reproduces the recorded outputs from the loaded file.
func TestReplay(t *testing.T) {
	d, err := Signals{R: Step(6)}.Build(6)
	if err != nil {
		t.Fatalf("could not build data: %v", err)
	}

	c, err := pid.NewWithGains(2, 0, 0)
	if err != nil {
		t.Fatalf("could not create controller: %v", err)
	}
	err = d.Fill(c)
	if err != nil {
		t.Fatalf("could not fill data: %v", err)
	}
	if got, want := d.Outputs(), []float64{0, 0, 2, 2, 2, 2}; !floats.Equal(got, want) {
		t.Errorf("did not get expected outputs. Got: %v, Want: %v", got, want)
	}

	path := filepath.Join(t.TempDir(), "p_step.csv")
	if err := Save(path, d); err != nil {
		t.Fatalf("could not save data: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("could not load data: %v", err)
	}

	fresh, _ := pid.NewWithGains(2, 0, 0)
	got, err := Replay(fresh, loaded)
	if err != nil {
		t.Fatalf("could not replay data: %v", err)
	}
	if err := Compare(got, loaded.Outputs(), 1e-12, 1e-12); err != nil {
		t.Errorf("replay did not match: %v", err)
	}

	d[3].Tx = 0
	fresh.Reset()
	got, err = Replay(fresh, d)
	if !errors.Is(err, pid.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod. Got: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("did not get outputs up to failure. Got: %d, Want: 3", len(got))
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		got, want []float64
		ok        bool
	}{
		{got: []float64{1, 2, 3}, want: []float64{1, 2, 3}, ok: true},
		{got: []float64{1, 2, 3 + 1e-12}, want: []float64{1, 2, 3}, ok: true},
		{got: []float64{1, 2.1, 3}, want: []float64{1, 2, 3}, ok: false},
		{got: []float64{1, 2}, want: []float64{1, 2, 3}, ok: false},
	}

	for i, test := range tests {
		err := Compare(test.got, test.want, 1e-9, 1e-9)
		if test.ok && err != nil {
			t.Errorf("unexpected error from test: %d: %v", i, err)
		}
		if !test.ok && !errors.Is(err, ErrMismatch) {
			t.Errorf("did not get expected error from test: %d. Got: %v", i, err)
		}
	}
}

func TestSummarize(t *testing.T) {
	d := Data{
		{R: 1, Y: 0, Tx: 1, U: -1},
		{R: 3, Y: 1, Tx: 0.5, U: 4},
		{R: 3, Y: 0, Tx: 1.5, U: 2},
	}
	s := Summarize(d)
	want := Summary{N: 3, MeanError: 2, StdDev: 1, MinU: -1, MaxU: 4, Duration: 3}
	if s != want {
		t.Errorf("did not get expected summary. Got: %+v, Want: %+v", s, want)
	}

	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("expected zero summary for empty data. Got: %+v", s)
	}
}

// TestPlot checks that data sets are plotted and saved to file.
func TestPlot(t *testing.T) {
	_, err := os.Stat(plotFolder)
	if os.IsNotExist(err) {
		t.Skip("plot folder does not exist, skipping")
	}

	d, err := Signals{R: Step(20), Tx: Irregular(20, 0.3, 7)}.Build(20)
	if err != nil {
		t.Fatalf("could not build data: %v", err)
	}
	c, _ := pid.NewWithGains(1, 0.5, 0.1, pid.WithLimits(-2, 2))
	if err := d.Fill(c); err != nil {
		t.Fatalf("could not fill data: %v", err)
	}

	err = Plot(plotFolder, "step", d)
	if err != nil {
		t.Errorf("could not plot data: %v", err)
	}
}

/*
DESCRIPTION
  loop_test.go provides testing of functionality in loop.go, stats.go and
  vars.go.

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
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/ausocean/pidctl/pi/pid"
	"github.com/ausocean/utils/logging"
)

func testLogger() logging.Logger {
	return logging.New(logging.Debug, io.Discard, true)
}

// fakeClock returns the given times in order, repeating the last.
func fakeClock(times ...time.Duration) func() time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	return func() time.Time {
		t := base.Add(times[i])
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

// TestTickPeriod checks that the normalised period passed to the controller
// is derived from the time between steps.
func TestTickPeriod(t *testing.T) {
	const period = 100 * time.Millisecond
	times := []time.Duration{0, 100 * time.Millisecond, 250 * time.Millisecond, 300 * time.Millisecond}
	txs := []float64{1, 1, 1.5, 0.5}
	ys := []float64{0, 0.2, 0.5, 0.7}

	ctrl, err := pid.NewWithGains(1, 0.5, 0.3)
	if err != nil {
		t.Fatalf("could not create controller: %v", err)
	}
	ref, _ := pid.NewWithGains(1, 0.5, 0.3)

	i := 0
	sig := SignalFuncs{
		R: func() (float64, error) { return 1, nil },
		Y: func() (float64, error) { return ys[i], nil },
	}
	var got float64
	act := ActuatorFunc(func(u float64) error { got = u; return nil })

	l, err := New(ctrl, sig, act, period, testLogger(), WithClock(fakeClock(times...)))
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	for ; i < len(times); i++ {
		err := l.Tick()
		if err != nil {
			t.Fatalf("unexpected error from tick: %d: %v", i, err)
		}
		want, _ := ref.Step(pid.Inputs{R: 1, Y: ys[i], Tx: txs[i]})
		if got != want {
			t.Errorf("did not get expected output for tick: %d. Got: %v, Want: %v", i, got, want)
		}
		if l.LastOutput() != got {
			t.Errorf("last output not recorded for tick: %d. Got: %v, Want: %v", i, l.LastOutput(), got)
		}
	}

	if l.Ticks() != len(times) {
		t.Errorf("did not get expected tick count. Got: %d, Want: %d", l.Ticks(), len(times))
	}
}

func TestTickSignalError(t *testing.T) {
	errSensor := errors.New("sensor unplugged")
	called := false
	l, err := New(
		mustController(t),
		SignalFuncs{Y: func() (float64, error) { return 0, errSensor }},
		ActuatorFunc(func(u float64) error { called = true; return nil }),
		time.Second,
		testLogger(),
	)
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	err = l.Tick()
	if !errors.Is(err, errSensor) {
		t.Errorf("did not get expected error. Got: %v, Want: %v", err, errSensor)
	}
	if called {
		t.Error("actuator set after failed signal read")
	}
	if l.Ticks() != 0 {
		t.Errorf("controller stepped after failed signal read. Ticks: %d", l.Ticks())
	}
}

// TestTickZeroPeriod checks that a tick with no elapsed time is rejected by
// the controller and does not count as a step.
func TestTickZeroPeriod(t *testing.T) {
	l, err := New(mustController(t), SignalFuncs{}, ActuatorFunc(func(float64) error { return nil }),
		time.Second, testLogger(), WithClock(fakeClock(0)))
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	if err := l.Tick(); err != nil {
		t.Fatalf("unexpected error from first tick: %v", err)
	}
	err = l.Tick()
	if !errors.Is(err, pid.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod. Got: %v", err)
	}
	if l.Ticks() != 1 {
		t.Errorf("did not get expected tick count. Got: %d, Want: 1", l.Ticks())
	}
}

func TestManualMode(t *testing.T) {
	var got float64
	l, err := New(
		mustController(t),
		SignalFuncs{
			R:    func() (float64, error) { return 10, nil },
			Uman: func() (float64, error) { return 0.4, nil },
		},
		ActuatorFunc(func(u float64) error { got = u; return nil }),
		time.Second,
		testLogger(),
		WithMode(false, false),
	)
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	if err := l.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.4 {
		t.Errorf("did not get manual output. Got: %v, Want: 0.4", got)
	}

	l.SetAuto(true)
	if auto, _, _ := l.Mode(); !auto {
		t.Error("expected automatic mode")
	}
}

func TestRun(t *testing.T) {
	const wantTicks = 5
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := 0
	act := ActuatorFunc(func(u float64) error {
		n++
		if n == wantTicks {
			cancel()
		}
		return nil
	})

	l, err := New(mustController(t), SignalFuncs{}, act, time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	done := make(chan error)
	go func() { done <- l.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("did not get expected error from run. Got: %v, Want: %v", err, context.Canceled)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	if l.Ticks() < wantTicks {
		t.Errorf("did not get expected tick count. Got: %d, Want: >= %d", l.Ticks(), wantTicks)
	}
}

func TestMedian(t *testing.T) {
	s := newErrorStats(5, 5)

	tests := []struct {
		update, want float64
	}{
		{13, 13},
		{46, 29.5},
		{5, 13},
		{53, 29.5},
		{26, 26},
		{21, 26},
		{33, 26},
		{67, 33},
		{8, 26},
		{3, 21},
	}

	for i, test := range tests {
		s.update(test.update)
		if got := s.median(); got != test.want {
			t.Errorf("did not get expected result from test: %d. Got: %f, Want: %f", i, got, test.want)
		}
	}
}

func TestStdDev(t *testing.T) {
	s := newErrorStats(5, 5)

	tests := []struct {
		update, want float64
	}{
		{13, 0},
		{46, 23.33},
		{5, 21.73},
		{53, 23.78},
		{26, 20.65},
		{21, 19.41},
		{33, 17.54},
		{67, 19.39},
		{8, 22.10},
		{3, 25.53},
	}

	for i, test := range tests {
		s.update(test.update)
		got := math.Round(s.stdDev()*100) / 100
		if got != test.want {
			t.Errorf("did not get expected result from test: %d. Got: %f, Want: %f", i, got, test.want)
		}
	}
}

func TestUpdateVars(t *testing.T) {
	l, err := New(mustController(t), SignalFuncs{}, ActuatorFunc(func(float64) error { return nil }), time.Second, testLogger())
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	vars, err := ParseVars("Kp=2, Ki=0.5,Kd=0.1,Umin=-3,Umax=3,B=0.7,Auto=false,Track=True,Windup=upper,Period=250")
	if err != nil {
		t.Fatalf("could not parse vars: %v", err)
	}
	err = l.Update(vars)
	if err != nil {
		t.Fatalf("unexpected error from update: %v", err)
	}

	p := l.Params()
	if p.Kp != 2 || p.Ki != 0.5 || p.Kd != 0.1 || p.Umin != -3 || p.Umax != 3 || p.B != 0.7 {
		t.Errorf("did not get expected params. Got: %+v", p)
	}
	auto, track, windup := l.Mode()
	if auto || !track || windup != pid.WindupUpper {
		t.Errorf("did not get expected mode. Got: auto=%v track=%v windup=%v", auto, track, windup)
	}
	if l.Period() != 250*time.Millisecond {
		t.Errorf("did not get expected period. Got: %v, Want: %v", l.Period(), 250*time.Millisecond)
	}

	// A bad value is reported while the others are still applied.
	err = l.Update(map[string]string{VarKp: "fast", VarKd: "0.2", VarUmin: "10", VarTfTs: "3"})
	if err == nil {
		t.Error("expected error from bad variable values")
	}
	p = l.Params()
	if p.Kp != 2 || p.Kd != 0.2 || p.Umin != -3 {
		t.Errorf("did not get expected params after partial update. Got: %+v", p)
	}

	_, err = ParseVars("Kp=1,Gain=2")
	if err == nil {
		t.Error("expected error for unknown variable")
	}
}

func TestParamsFromVars(t *testing.T) {
	vars, err := ParseVars("Kp=1.5,Ki=0.2,TfTs=4,Umin=0,Umax=100")
	if err != nil {
		t.Fatalf("could not parse vars: %v", err)
	}

	p, err := ParamsFromVars(pid.DefaultParams(0, 0, 0), vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := pid.Params{Kp: 1.5, Ki: 0.2, TfTs: 4, Umin: 0, Umax: 100, B: 1}
	if p != want {
		t.Errorf("did not get expected params. Got: %+v, Want: %+v", p, want)
	}

	_, err = ParamsFromVars(pid.DefaultParams(0, 0, 0), map[string]string{VarUmin: "5", VarUmax: "1"})
	if !errors.Is(err, pid.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams. Got: %v", err)
	}
}

func TestVarTypes(t *testing.T) {
	vt := VarTypes()
	if len(vt) != len(VarNames()) {
		t.Fatalf("did not get expected number of var types. Got: %d, Want: %d", len(vt), len(VarNames()))
	}
	if vt[VarWindup] != "enum:none,upper,lower,both" {
		t.Errorf("did not get expected windup type. Got: %s", vt[VarWindup])
	}
}

func mustController(t *testing.T) *pid.Controller {
	t.Helper()
	c, err := pid.NewWithGains(1, 0.5, 0)
	if err != nil {
		t.Fatalf("could not create controller: %v", err)
	}
	return c
}

func TestObserver(t *testing.T) {
	var samples []Sample
	l, err := New(
		mustController(t),
		SignalFuncs{
			R: func() (float64, error) { return 2, nil },
			Y: func() (float64, error) { return 0.5, nil },
		},
		ActuatorFunc(func(u float64) error { return nil }),
		time.Second,
		testLogger(),
		WithClock(fakeClock(0, 2*time.Second)),
		WithObserver(func(s Sample) { samples = append(samples, s) }),
	)
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := l.Tick(); err != nil {
			t.Fatalf("unexpected error from tick: %d: %v", i, err)
		}
	}
	if len(samples) != 2 {
		t.Fatalf("did not get expected samples. Got: %d, Want: 2", len(samples))
	}
	s := samples[1]
	if s.R != 2 || s.Y != 0.5 || s.Tx != 2 || !s.Auto || s.Track {
		t.Errorf("did not get expected sample. Got: %+v", s)
	}
	if s.U != l.LastOutput() {
		t.Errorf("sample output differs from last output. Got: %v, Want: %v", s.U, l.LastOutput())
	}
	if s.MedianError != 1.5 || s.ErrorStdDev != 0 {
		t.Errorf("did not get expected error stats. Got: %v, %v", s.MedianError, s.ErrorStdDev)
	}

	if _, err := New(mustController(t), SignalFuncs{}, ActuatorFunc(func(float64) error { return nil }), time.Second, testLogger(), WithObserver(nil)); err == nil {
		t.Error("expected error for nil observer")
	}
}

// TestTickNonFiniteMeasurement checks that one bad reading is skipped and
// does not corrupt later outputs.
func TestTickNonFiniteMeasurement(t *testing.T) {
	ctrl, err := pid.NewWithGains(1, 0.5, 0.1, pid.WithLimits(0, 1))
	if err != nil {
		t.Fatalf("could not create controller: %v", err)
	}
	ys := []float64{0.2, math.NaN(), 0.3, 0.3, 0.3}
	i := 0
	var got []float64
	l, err := New(
		ctrl,
		SignalFuncs{
			R: func() (float64, error) { return 1, nil },
			Y: func() (float64, error) { return ys[i], nil },
		},
		ActuatorFunc(func(u float64) error { got = append(got, u); return nil }),
		time.Second,
		testLogger(),
		WithClock(fakeClock(0, time.Second, 2*time.Second, 3*time.Second, 4*time.Second)),
	)
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}

	for ; i < len(ys); i++ {
		err := l.Tick()
		if math.IsNaN(ys[i]) {
			if !errors.Is(err, pid.ErrInvalidSignal) {
				t.Errorf("did not get expected error for tick: %d. Got: %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error for tick: %d: %v", i, err)
		}
	}

	if len(got) != len(ys)-1 {
		t.Fatalf("did not get expected number of outputs. Got: %d, Want: %d", len(got), len(ys)-1)
	}
	for j, u := range got {
		if math.IsNaN(u) || u < 0 || u > 1 {
			t.Errorf("control signal invalid at: %d. Got: %v", j, u)
		}
	}
	if l.Ticks() != len(ys)-1 {
		t.Errorf("did not get expected tick count. Got: %d, Want: %d", l.Ticks(), len(ys)-1)
	}
}

func TestUpdateResetEdge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { now = now.Add(time.Second); return now }
	l, err := New(
		mustController(t),
		SignalFuncs{R: func() (float64, error) { return 1, nil }},
		ActuatorFunc(func(float64) error { return nil }),
		time.Second,
		testLogger(),
		WithClock(clock),
	)
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}
	stateU := func() float64 {
		var u float64
		l.Configure(func(c *pid.Controller) error { u = c.State().U; return nil })
		return u
	}

	tests := []struct {
		vars      map[string]string
		wantReset bool
	}{
		{vars: map[string]string{VarReset: "true"}, wantReset: true},
		{vars: map[string]string{VarReset: "true", VarKp: "1"}, wantReset: false},
		{vars: map[string]string{VarReset: "false"}, wantReset: false},
		{vars: map[string]string{VarReset: "true"}, wantReset: true},
		{vars: map[string]string{VarKp: "1"}, wantReset: false},
		{vars: map[string]string{VarReset: "true"}, wantReset: true},
	}

	for i, test := range tests {
		if err := l.Tick(); err != nil {
			t.Fatalf("unexpected tick error: %v", err)
		}
		if stateU() == 0 {
			t.Fatalf("expected non-zero state before test: %d", i)
		}
		if err := l.Update(test.vars); err != nil {
			t.Fatalf("unexpected update error for test: %d: %v", i, err)
		}
		if reset := stateU() == 0; reset != test.wantReset {
			t.Errorf("did not get expected reset for test: %d. Got: %v, Want: %v", i, reset, test.wantReset)
		}
	}
}

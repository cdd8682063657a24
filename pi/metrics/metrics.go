/*
DESCRIPTION
  metrics.go provides Prometheus metrics for a running control loop.

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

// Package metrics exports control loop samples as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ausocean/pidctl/pi/loop"
	"github.com/ausocean/utils/logging"
)

const shutdownTimeout = 5 * time.Second

// Metrics holds the loop gauges and counters.
type Metrics struct {
	Reference     prometheus.Gauge
	Measurement   prometheus.Gauge
	ControlSignal prometheus.Gauge
	Period        prometheus.Gauge
	MedianError   prometheus.Gauge
	ErrorStdDev   prometheus.Gauge
	Auto          prometheus.Gauge
	Track         prometheus.Gauge
	Steps         prometheus.Counter
}

// New returns Metrics under the given namespace, registered with reg.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	m := &Metrics{
		Reference:     gauge("pid_reference", "Current reference."),
		Measurement:   gauge("pid_measurement", "Current process measurement."),
		ControlSignal: gauge("pid_control_signal", "Current control signal from the PID controller."),
		Period:        gauge("pid_period_ratio", "Last execution period relative to the nominal period."),
		MedianError:   gauge("pid_error_median", "Running median of the control error."),
		ErrorStdDev:   gauge("pid_error_stddev", "Running standard deviation of the control error."),
		Auto:          gauge("pid_auto", "1 in automatic mode, 0 in manual."),
		Track:         gauge("pid_track", "1 in tracking mode."),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pid_steps_total",
			Help:      "Number of controller steps.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Reference, m.Measurement, m.ControlSignal, m.Period,
		m.MedianError, m.ErrorStdDev, m.Auto, m.Track, m.Steps,
	} {
		err := reg.Register(c)
		if err != nil {
			return nil, fmt.Errorf("could not register metric: %w", err)
		}
	}
	return m, nil
}

// Observe records s. It is intended for use with loop.WithObserver.
func (m *Metrics) Observe(s loop.Sample) {
	m.Reference.Set(s.R)
	m.Measurement.Set(s.Y)
	m.ControlSignal.Set(s.U)
	m.Period.Set(s.Tx)
	m.MedianError.Set(s.MedianError)
	m.ErrorStdDev.Set(s.ErrorStdDev)
	m.Auto.Set(boolToFloat(s.Auto))
	m.Track.Set(boolToFloat(s.Track))
	m.Steps.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Serve serves the metrics gathered by g on addr at /metrics until ctx is
// cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		log.Info("serving metrics", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(sctx)
	if err != nil {
		return fmt.Errorf("could not shut down metrics server: %w", err)
	}
	err = <-errc
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

/*
DESCRIPTION
  config.go provides reading, writing and watching of a controller variables
  file, so that a running controller can be tuned by editing the file.

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

// Package config provides a variables file of "name value" lines, e.g.
//
//	Kp 1.2
//	Ki 0.05
//	logging Debug
//
// and a Watcher that applies the variables whenever the file's var sum
// changes.
package config

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ausocean/utils/filemap"
	"github.com/ausocean/utils/logging"
)

// VarLogging is a special variable setting the log level, one of "Debug",
// "Info", "Warning", "Error" or "Fatal".
const VarLogging = "logging"

// Read returns the variables in the file at path.
func Read(path string) (map[string]string, error) {
	raw, err := filemap.ReadFrom(path, "\n", " ")
	if err != nil {
		return nil, fmt.Errorf("could not read variables file: %w", err)
	}
	vars := make(map[string]string, len(raw))
	for k, v := range raw {
		k = strings.TrimSpace(k)
		if k == "" || strings.HasPrefix(k, "#") {
			continue
		}
		vars[k] = strings.TrimSpace(v)
	}
	return vars, nil
}

// Write writes vars to the file at path, in the order of keys followed by any
// remaining variables in name order.
func Write(path string, vars map[string]string, keys []string) error {
	order := make([]string, 0, len(vars))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := vars[k]; ok && !seen[k] {
			order = append(order, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range vars {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	err := filemap.WriteTo(path, "\n", " ", vars, order)
	if err != nil {
		return fmt.Errorf("could not write variables file: %w", err)
	}
	return nil
}

// Sum returns a CRC-32 checksum of the variables and their values,
// independent of order.
func Sum(vars map[string]string) uint32 {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := crc32.NewIEEE()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(vars[k]))
		h.Write([]byte{0})
	}
	return h.Sum32()
}

// ParseLevel returns the logging level named by s.
func ParseLevel(s string) (int8, error) {
	switch strings.ToLower(s) {
	case "debug":
		return logging.Debug, nil
	case "info":
		return logging.Info, nil
	case "warning", "warn":
		return logging.Warning, nil
	case "error":
		return logging.Error, nil
	case "fatal":
		return logging.Fatal, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
}

// Watcher polls a variables file and applies its variables when they
// change.
type Watcher struct {
	path  string
	poll  time.Duration
	apply func(map[string]string) error
	log   logging.Logger

	sum     uint32
	checked bool
}

// NewWatcher returns a Watcher of the file at path that calls apply with the
// variables, minus VarLogging, every time they change.
func NewWatcher(path string, poll time.Duration, apply func(map[string]string) error, log logging.Logger) (*Watcher, error) {
	if poll <= 0 {
		return nil, fmt.Errorf("invalid poll period: %v", poll)
	}
	if apply == nil {
		return nil, errors.New("nil apply function")
	}
	return &Watcher{path: path, poll: poll, apply: apply, log: log}, nil
}

// Check reads the file and applies the variables if their var sum has
// changed since the last successful check. A missing file is not an error.
func (w *Watcher) Check() (bool, error) {
	_, err := os.Stat(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	vars, err := Read(w.path)
	if err != nil {
		return false, err
	}

	sum := Sum(vars)
	if w.checked && sum == w.sum {
		return false, nil
	}
	w.log.Info("varsum changed", "vs", sum)

	if lvl, ok := vars[VarLogging]; ok {
		l, err := ParseLevel(lvl)
		if err != nil {
			w.log.Warning("could not set log level", "error", err.Error())
		} else {
			w.log.SetLevel(l)
			w.log.Debug("set log level", "level", lvl)
		}
		delete(vars, VarLogging)
	}

	// Failed vars are not retried until the file changes.
	w.sum, w.checked = sum, true
	err = w.apply(vars)
	if err != nil {
		return true, fmt.Errorf("could not apply variables: %w", err)
	}
	return true, nil
}

// Run checks the file every poll period until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.poll)
	defer t.Stop()
	for {
		_, err := w.Check()
		if err != nil {
			w.log.Warning("variables check failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

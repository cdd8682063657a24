/*
DESCRIPTION
  pid-iodata generates and verifies input-output regression fixtures for
  the PID controller.

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

// pid-iodata writes one CSV file per regression fixture, each holding the
// controller inputs and resulting control signal per step. With -Verify the
// existing files are instead replayed and checked against the recorded
// control signal, e.g. to compare another implementation's output.
package main

import (
	"flag"
	"os"

	"github.com/ausocean/utils/logging"
)

const (
	defaultDir     = "testdata"
	defaultSamples = 10
	logSuppress    = true
)

func main() {
	dir := flag.String("Dir", defaultDir, "Fixture directory")
	n := flag.Int("N", defaultSamples, "Samples per fixture")
	verifyOnly := flag.Bool("Verify", false, "Verify existing fixtures instead of generating")
	rtol := flag.Float64("RTol", 1e-9, "Relative tolerance for verification")
	atol := flag.Float64("ATol", 1e-12, "Absolute tolerance for verification")
	logLevel := flag.Int("LogLevel", int(logging.Info), "Specifies log level")
	flag.Parse()

	if *logLevel < int(logging.Debug) || *logLevel > int(logging.Fatal) {
		*logLevel = int(logging.Info)
	}
	log := logging.New(int8(*logLevel), os.Stderr, logSuppress)

	if *verifyOnly {
		err := verify(*dir, *rtol, *atol, log)
		if err != nil {
			log.Fatal("verification failed", "error", err.Error())
		}
		return
	}

	if *n <= 0 {
		log.Fatal("invalid number of samples", "N", *n)
	}
	err := os.MkdirAll(*dir, 0755)
	if err != nil {
		log.Fatal("could not create fixture directory", "error", err.Error())
	}
	err = generate(*dir, *n, log)
	if err != nil {
		log.Fatal("could not generate fixtures", "error", err.Error())
	}
}

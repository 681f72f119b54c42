// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// Source is anything that can provide fixes over time: a receiver on a
// serial port, a recorded NMEA log, a mock walk.
type Source interface {
	Next(ctx context.Context) (Fix, error)
}

type nmeaSource struct {
	reader    *bufio.Reader
	assembler *Assembler
}

// NewNMEASource reads NMEA 0183 lines from r. Next returns io.EOF when r
// is exhausted.
func NewNMEASource(r io.Reader, source string) Source {
	return &nmeaSource{
		reader:    bufio.NewReader(r),
		assembler: NewAssembler(source),
	}
}

func (s *nmeaSource) Next(ctx context.Context) (Fix, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Fix{}, err
		}

		line, readErr := s.reader.ReadString('\n')
		if line != "" {
			fix, ok, err := s.assembler.Feed(line)
			if err != nil {
				// noisy GPS or partial sentences
				log.Debugf("gps: %v (line: %q)", err, line)
			} else if ok {
				return fix, nil
			}
		}
		if readErr != nil {
			if fix, ok := s.assembler.Flush(); ok {
				return fix, nil
			}
			return Fix{}, readErr
		}
	}
}

// SerialSource is a receiver attached to a serial port.
type SerialSource struct {
	Source
	port io.ReadWriteCloser
}

// NewSerialSource opens the serial port of the GPS receiver.
func NewSerialSource(portName string, baudRate uint, source string) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open gps serial port %s: %w", portName, err)
	}
	log.Infof("gps: serial port opened on %s at %d baud", portName, baudRate)

	return &SerialSource{Source: NewNMEASource(port, source), port: port}, nil
}

// Close releases the serial port. A pending Next returns with an error.
func (s *SerialSource) Close() error {
	return s.port.Close()
}

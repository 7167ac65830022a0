// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens the receiver's serial port with 8N1 framing.
func OpenSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rw, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open gps serial %s: %w", port, err)
	}
	return rw, nil
}

// ReadFixes parses NMEA sentences from r and calls fn for every RMC
// sentence. Garbled or partial lines are skipped. It returns when r is
// exhausted (nil) or fails.
func ReadFixes(r io.Reader, fn func(Fix)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "$") {
			if sentence, perr := nmea.Parse(line); perr == nil && sentence.DataType() == nmea.TypeRMC {
				fn(FromRMC(sentence.(nmea.RMC)))
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read nmea: %w", err)
		}
	}
}

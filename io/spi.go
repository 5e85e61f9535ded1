// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package io

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// spidev ioctl requests (linux/spi/spidev.h).
const (
	spiIocWrMode        = 0x40016b01
	spiIocWrMaxSpeedHz  = 0x40046b04
	spiIocWrBitsPerWord = 0x40016b03
)

// SpiMaxTransfer is the spidev default maximum transfer size.
const SpiMaxTransfer = 4096

// Spi is a write-only spidev bus. Only MOSI is used; the SPI shift
// register clocks each byte out MSB first at a fixed rate, which
// makes it usable as a deterministic bit-timing unit.
type Spi struct {
	name string
	f    *os.File
	hz   int
}

// NewSpi opens /dev/spidevB.C and sets mode 0, 8 bit words and the clock rate.
func NewSpi(bus, cs, hz int) (*Spi, error) {
	s := new(Spi)
	s.name = fmt.Sprintf("/dev/spidev%d.%d", bus, cs)
	s.hz = hz
	var err error
	s.f, err = os.OpenFile(s.name, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	fd := int(s.f.Fd())
	for _, r := range []struct {
		req uint
		v   int
	}{
		{spiIocWrMode, 0},
		{spiIocWrBitsPerWord, 8},
		{spiIocWrMaxSpeedHz, hz},
	} {
		if err := unix.IoctlSetPointerInt(fd, r.req, r.v); err != nil {
			s.f.Close()
			return nil, fmt.Errorf("%s: ioctl 0x%x: %v", s.name, r.req, err)
		}
	}
	return s, nil
}

// Write sends the buffer as a single transfer so that there are
// no gaps in the clocked output.
func (s *Spi) Write(b []byte) (int, error) {
	if len(b) > SpiMaxTransfer {
		return 0, fmt.Errorf("%s: transfer of %d bytes exceeds %d", s.name, len(b), SpiMaxTransfer)
	}
	return s.f.Write(b)
}

// MaxTransfer returns the largest buffer Write accepts.
func (s *Spi) MaxTransfer() int {
	return SpiMaxTransfer
}

// Hz returns the configured clock rate.
func (s *Spi) Hz() int {
	return s.hz
}

// Close releases the device.
func (s *Spi) Close() error {
	return s.f.Close()
}

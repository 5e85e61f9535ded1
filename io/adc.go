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

	"golang.org/x/sys/unix"
)

const iioBaseDir = "/sys/bus/iio/devices/"

// Adc is a single IIO analog input channel.
type Adc struct {
	name string
}

// NewAdc checks that the raw value file for the channel is readable.
func NewAdc(device, channel int) (*Adc, error) {
	a := &Adc{name: fmt.Sprintf("%siio:device%d/in_voltage%d_raw", iioBaseDir, device, channel)}
	if err := unix.Access(a.name, unix.R_OK); err != nil {
		return nil, fmt.Errorf("%s: %v", a.name, err)
	}
	return a, nil
}

// Read returns the raw conversion value.
func (a *Adc) Read() (int, error) {
	return readInt(a.name)
}

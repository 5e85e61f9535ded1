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

// DC motor control through an H-bridge

package drive

import (
	"fmt"

	rerrors "github.com/aamcrae/rover/errors"
)

// MaxPower is the magnitude of full forward or reverse power.
const MaxPower = 100

// Channel is one PWM input of an H-bridge. The duty cycle
// is given as a fraction duty/full.
type Channel interface {
	SetDuty(duty, full uint32) error
}

// Motor holds the commanded power of one DC motor and converts it
// to a duty cycle pair on the two H-bridge channels driving it.
// Power is in the range [-MaxPower, MaxPower], positive being forward.
type Motor struct {
	Name  string
	a, b  Channel
	min   int    // Duty percentage applied once power is non-zero
	max   int    // Duty percentage applied at full power
	full  uint32 // Full scale duty value of the PWM hardware
	power int
}

// NewMotor creates a Motor driven by channels a and b.
// minDuty and maxDuty are percentages bounding the drive applied
// to the motor; minDuty overcomes the motor's static friction.
func NewMotor(name string, a, b Channel, minDuty, maxDuty int, full uint32) (*Motor, error) {
	if a == nil || b == nil {
		return nil, rerrors.Invalid(name, "channel", "both H-bridge channels are required")
	}
	if minDuty < 0 || maxDuty > 100 || minDuty > maxDuty {
		return nil, rerrors.Invalid(name, "duty", "need 0 <= min (%d) <= max (%d) <= 100", minDuty, maxDuty)
	}
	if full == 0 {
		return nil, rerrors.Invalid(name, "fullscale", "must be non-zero")
	}
	return &Motor{Name: name, a: a, b: b, min: minDuty, max: maxDuty, full: full}, nil
}

// Power returns the current power level.
func (m *Motor) Power() int {
	return m.power
}

// SetPower sets the power level, clamped to [-MaxPower, MaxPower].
// The outputs are not changed until Apply is called.
func (m *Motor) SetPower(p int) {
	m.power = clamp(p, -MaxPower, MaxPower)
}

// Duty returns the duty value for the current power level.
func (m *Motor) Duty() uint32 {
	return m.duty(m.power)
}

// duty maps a power level onto the PWM range. The H-bridge input
// carrying the duty is active low, so the value falls from full
// towards full*(1-max/100) as the power magnitude rises; any
// non-zero power applies at least min percent drive.
func (m *Motor) duty(p int) uint32 {
	if p == 0 {
		return m.full
	}
	if p < 0 {
		p = -p
	}
	// Percent scaled by 100 to stay in integer arithmetic.
	drive := uint64(m.min*MaxPower + p*(m.max-m.min))
	return m.full - uint32(uint64(m.full)*drive/(100*MaxPower))
}

// Apply writes the duty cycle for the current power to the channels.
// Forward drives the duty on channel A with B held at full scale,
// reverse swaps the channels, and zero power holds both at full scale
// so neither side of the bridge drives. Both channels are always
// written; the first error is returned.
func (m *Motor) Apply() error {
	d := m.Duty()
	var da, db uint32
	switch {
	case m.power > 0:
		da, db = d, m.full
	case m.power < 0:
		da, db = m.full, d
	default:
		da, db = m.full, m.full
	}
	var err error
	if e := m.a.SetDuty(da, m.full); e != nil {
		err = fmt.Errorf("%s: channel A: %v", m.Name, e)
	}
	if e := m.b.SetDuty(db, m.full); e != nil && err == nil {
		err = fmt.Errorf("%s: channel B: %v", m.Name, e)
	}
	return err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

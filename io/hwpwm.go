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
	"strconv"
	"time"
)

const pwmBaseDir = "/sys/class/pwm/"

// PWM is a PWM output whose duty cycle is set as a fraction
// of a full scale value.
type PWM interface {
	Close()
	SetDuty(duty, full uint32) error
}

// HwPwm is one channel of a sysfs hardware PWM chip.
type HwPwm struct {
	chip   string
	unit   int
	base   string
	pFile  *os.File
	dFile  *os.File
	period int64
	duty   int64
}

// NewHwPWM creates a new hardware PWM controller on the chip and unit
// selected, with the period given.
func NewHwPWM(chip, unit int, period time.Duration) (*HwPwm, error) {
	p := new(HwPwm)
	p.chip = fmt.Sprintf("%spwmchip%d/", pwmBaseDir, chip)
	p.unit = unit
	p.base = fmt.Sprintf("%spwm%d", p.chip, unit)
	p.period = -1
	p.duty = -1

	pName := p.base + "/period"
	err := export(pName, p.chip+"export", unit)
	if err != nil {
		return nil, err
	}
	p.pFile, err = os.OpenFile(pName, os.O_RDWR, 0600)
	if err != nil {
		unexport(p.chip+"unexport", unit)
		return nil, err
	}
	dName := p.base + "/duty_cycle"
	err = verifyFile(dName)
	if err != nil {
		p.pFile.Close()
		unexport(p.chip+"unexport", unit)
		return nil, err
	}
	p.dFile, err = os.OpenFile(dName, os.O_RDWR, 0600)
	if err != nil {
		p.pFile.Close()
		unexport(p.chip+"unexport", unit)
		return nil, err
	}
	err = p.set(period.Nanoseconds(), 0)
	if err == nil {
		err = writeFile(p.base+"/enable", "1")
	}
	if err != nil {
		p.pFile.Close()
		p.dFile.Close()
		unexport(p.chip+"unexport", unit)
		return nil, err
	}
	return p, nil
}

// Close disables the output and releases the PWM channel.
func (p *HwPwm) Close() {
	writeFile(p.base+"/enable", "0")
	p.pFile.Close()
	p.dFile.Close()
	unexport(p.chip+"unexport", p.unit)
}

// SetDuty sets the high time of the output to duty/full of the period.
func (p *HwPwm) SetDuty(duty, full uint32) error {
	if full == 0 || duty > full {
		return fmt.Errorf("pwm%d: invalid duty %d/%d", p.unit, duty, full)
	}
	return p.set(p.period, p.period*int64(duty)/int64(full))
}

// SetPulse sets the high time of the output as an absolute duration.
func (p *HwPwm) SetPulse(width time.Duration) error {
	w := width.Nanoseconds()
	if w < 0 || w > p.period {
		return fmt.Errorf("pwm%d: pulse %s outside period", p.unit, width)
	}
	return p.set(p.period, w)
}

func (p *HwPwm) set(pNano, dNano int64) error {
	if pNano < 15 {
		return fmt.Errorf("pwm%d: invalid period", p.unit)
	}
	// When writing the period and duty cycle, the order may be important
	// since duty cycle must not be greater than the current period.
	if dNano > p.period {
		// Write period first
		_, err := p.pFile.WriteAt([]byte(strconv.FormatInt(pNano, 10)), 0)
		if err != nil {
			return err
		}
		_, err = p.dFile.WriteAt([]byte(strconv.FormatInt(dNano, 10)), 0)
		if err != nil {
			return err
		}
	} else {
		if dNano != p.duty {
			_, err := p.dFile.WriteAt([]byte(strconv.FormatInt(dNano, 10)), 0)
			if err != nil {
				return err
			}
		}
		if pNano != p.period {
			_, err := p.pFile.WriteAt([]byte(strconv.FormatInt(pNano, 10)), 0)
			if err != nil {
				return err
			}
		}
	}
	p.period = pNano
	p.duty = dNano
	return nil
}

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
	"time"
)

type pwmMsg struct {
	on   time.Duration
	stop chan bool
}

// SwPwm drives a GPIO from a goroutine to approximate PWM on
// pins without a hardware PWM unit. Only suitable for slow periods.
type SwPwm struct {
	pin    Setter
	period time.Duration
	c      chan pwmMsg
}

// NewSwPWM creates a new s/w PWM controller. The output starts low.
func NewSwPWM(pin Setter, period time.Duration) *SwPwm {
	p := new(SwPwm)
	p.pin = pin
	p.period = period
	p.c = make(chan pwmMsg, 1)
	go p.handler()
	return p
}

// Close closes the PWM controller
func (p *SwPwm) Close() {
	sc := make(chan bool)
	p.c <- pwmMsg{stop: sc}
	<-sc
	close(sc)
	close(p.c)
}

// SetDuty sets the duty cycle as duty/full of the period. The change
// takes place at the end of the current period.
func (p *SwPwm) SetDuty(duty, full uint32) error {
	if full == 0 || duty > full {
		return fmt.Errorf("invalid duty %d/%d", duty, full)
	}
	on := p.period * time.Duration(duty) / time.Duration(full)
	// Replace any request that has not been picked up yet.
	select {
	case <-p.c:
	default:
	}
	p.c <- pwmMsg{on: on}
	return nil
}

// goroutine handler
// Listens on message channel, and runs the PWM.
func (p *SwPwm) handler() {
	var on time.Duration
	off := p.period
	current := 0
	p.pin.Set(0)
	for {
		if on != 0 {
			if current != 1 {
				p.pin.Set(1)
				current = 1
			}
			time.Sleep(on)
		}
		if off != 0 {
			if current != 0 {
				p.pin.Set(0)
				current = 0
			}
			time.Sleep(off)
		}
		// Check for new parameters after each cycle.
		select {
		case m := <-p.c:
			if m.stop != nil {
				p.pin.Set(0)
				m.stop <- true
				return
			}
			on = m.on
			off = p.period - on
		default:
		}
	}
}

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

// Program to demonstrate driving one motor from two hardware PWM channels.

package main

import (
	"flag"
	"log"
	"time"

	"github.com/aamcrae/rover/drive"
	"github.com/aamcrae/rover/io"
)

var chip = flag.Int("chip", 0, "PWM chip")
var unitA = flag.Int("a", 0, "PWM unit for motor channel A")
var unitB = flag.Int("b", 1, "PWM unit for motor channel B")
var period = flag.Duration("period", 50*time.Microsecond, "PWM period")
var min = flag.Int("min", 20, "Minimum duty percent")
var step = flag.Duration("step", 50*time.Millisecond, "Time per power step")

func main() {
	flag.Parse()
	a, err := io.NewHwPWM(*chip, *unitA, *period)
	if err != nil {
		log.Fatalf("PWM unit %d: %v", *unitA, err)
	}
	defer a.Close()
	b, err := io.NewHwPWM(*chip, *unitB, *period)
	if err != nil {
		log.Fatalf("PWM unit %d: %v", *unitB, err)
	}
	defer b.Close()
	m, err := drive.NewMotor("sweep", a, b, *min, 100, 0xffff)
	if err != nil {
		log.Fatalf("Motor: %v", err)
	}
	for _, target := range []int{drive.MaxPower, 0, -drive.MaxPower, 0} {
		for m.Power() != target {
			p := m.Power() + 1
			if target < m.Power() {
				p = m.Power() - 1
			}
			m.SetPower(p)
			if err := m.Apply(); err != nil {
				log.Fatalf("Power %d: %v", p, err)
			}
			time.Sleep(*step)
		}
		log.Printf("power %d, duty %d", m.Power(), m.Duty())
	}
}

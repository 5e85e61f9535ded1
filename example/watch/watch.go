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

// Program to demonstrate counting wheel encoder pulses on edge triggered inputs

package main

import (
	"flag"
	"log"
	"time"

	gpio "github.com/aamcrae/gpio"
	"github.com/aamcrae/rover/sensor"
)

var pin = flag.Int("gpio", 4, "GPIO pin for the wheel encoder")
var slots = flag.Int("slots", sensor.DefaultSlots, "Encoder slots per revolution")

func main() {
	flag.Parse()
	p, err := gpio.Pin(*pin)
	if err != nil {
		log.Fatalf("Pin %d: %v", *pin, err)
	}
	err = p.Edge(gpio.FALLING)
	if err != nil {
		log.Fatalf("Pin %d: edge FALLING: %v", *pin, err)
	}
	defer p.Close()
	var c sensor.Counter
	go func() {
		for {
			if _, err := p.Get(); err != nil {
				log.Fatalf("Pin %d: Get: %v", *pin, err)
			}
			c.Pulse()
		}
	}()
	for {
		time.Sleep(time.Second)
		n := c.Take()
		log.Printf("pin %d: %d pulses, %.1f rpm", *pin, n, float64(n)*60/float64(*slots))
	}
}

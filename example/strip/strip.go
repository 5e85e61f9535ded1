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

// Program to demonstrate cycling the colours of a WS2812 strip over SPI.

package main

import (
	"flag"
	"log"
	"time"

	"github.com/aamcrae/rover/io"
	"github.com/aamcrae/rover/status"
)

var bus = flag.Int("bus", 0, "SPI bus")
var cs = flag.Int("cs", 0, "SPI chip select")
var leds = flag.Int("leds", 24, "Number of LEDs")
var delay = flag.Duration("delay", 500*time.Millisecond, "Time per colour")

func main() {
	flag.Parse()
	spi, err := io.NewSpi(*bus, *cs, status.WS2812.Hz)
	if err != nil {
		log.Fatalf("SPI %d.%d: %v", *bus, *cs, err)
	}
	defer spi.Close()
	enc, err := status.NewEncoder(status.WS2812, status.OrderGRB)
	if err != nil {
		log.Fatalf("Encoder: %v", err)
	}
	strip, err := status.NewStrip(enc, spi, *leds)
	if err != nil {
		log.Fatalf("Strip: %v", err)
	}
	defer strip.Show(status.Black)
	colours := []status.Color{status.Red, status.RGB(0, 0xFF, 0), status.RGB(0, 0, 0xFF), status.White}
	for i := 0; i < 10; i++ {
		for _, c := range colours {
			if err := strip.Show(c); err != nil {
				log.Fatalf("Show %s: %v", c, err)
			}
			time.Sleep(*delay)
		}
	}
}

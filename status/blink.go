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

// Status blinking

package status

import (
	"log"
	"sync"
	"time"
)

// BlinkPeriod is the default time between toggles.
const BlinkPeriod = 500 * time.Millisecond

// LED is a single on/off indicator.
type LED interface {
	Set(int) error
}

// Renderer presents a status, on or off.
type Renderer interface {
	Render(c Code, on bool) error
}

// Blinker periodically toggles the status LED and the strip
// between showing the current status and off.
type Blinker struct {
	led    LED      // May be nil
	strip  Renderer // May be nil
	status *Shared
	period time.Duration
	mu     sync.Mutex // Serialises toggles
	on     bool
}

// NewBlinker creates a Blinker presenting status.
func NewBlinker(led LED, strip Renderer, status *Shared, period time.Duration) *Blinker {
	if period <= 0 {
		period = BlinkPeriod
	}
	return &Blinker{led: led, strip: strip, status: status, period: period}
}

// On reports whether the last toggle turned the indicators on.
func (b *Blinker) On() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

// Toggle flips the presentation and updates both indicators.
// Output errors are logged and the next toggle proceeds regardless.
func (b *Blinker) Toggle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.on = !b.on
	if b.led != nil {
		v := 0
		if b.on {
			v = 1
		}
		if err := b.led.Set(v); err != nil {
			log.Printf("blink: status LED: %v", err)
		}
	}
	if b.strip != nil {
		if err := b.strip.Render(b.status.Get(), b.on); err != nil {
			log.Printf("blink: %v", err)
		}
	}
}

// Run toggles once per period until stop is closed. A nil stop
// channel runs forever.
func (b *Blinker) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(b.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.Toggle()
		}
	}
}

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

// Package sensor reads the rover's wheel, range and line sensors.
package sensor

import (
	"log"
	"math"
	"sync/atomic"
	"time"

	rio "github.com/aamcrae/rover/io"
)

const (
	SampleWindow = 200 * time.Millisecond // Default RPM sampling window
	DefaultSlots = 20                     // Encoder disc slots per revolution
	pollTimeout  = 100 * time.Millisecond // Edge wait, bounds stop latency
)

// EdgeInput returns the pin value when an edge is detected.
type EdgeInput interface {
	Wait(timeout time.Duration) (int, error)
}

// Counter counts wheel encoder pulses. Pulse may be called from any
// goroutine concurrently with Take.
type Counter struct {
	n int64
}

// Pulse records one pulse.
func (c *Counter) Pulse() {
	atomic.AddInt64(&c.n, 1)
}

// Take returns the pulses counted since the last Take and resets the count.
func (c *Counter) Take() int64 {
	return atomic.SwapInt64(&c.n, 0)
}

// Wheels measures the left and right wheel speeds from pulse counts
// taken once per sampling window.
type Wheels struct {
	Left, Right Counter
	slots       int
	window      time.Duration
	lrpm, rrpm  uint64 // float64 bits
}

// NewWheels creates a Wheels for encoder discs with the given number of slots.
func NewWheels(slots int, window time.Duration) *Wheels {
	if slots <= 0 {
		slots = DefaultSlots
	}
	if window <= 0 {
		window = SampleWindow
	}
	return &Wheels{slots: slots, window: window}
}

// Sample takes the pulse counts and updates the RPM values.
func (w *Wheels) Sample() {
	atomic.StoreUint64(&w.lrpm, math.Float64bits(w.rpm(w.Left.Take())))
	atomic.StoreUint64(&w.rrpm, math.Float64bits(w.rpm(w.Right.Take())))
}

func (w *Wheels) rpm(count int64) float64 {
	return float64(count) * float64(time.Minute) / float64(w.window) / float64(w.slots)
}

// RPM returns the wheel speeds measured over the last window.
func (w *Wheels) RPM() (left, right float64) {
	left = math.Float64frombits(atomic.LoadUint64(&w.lrpm))
	right = math.Float64frombits(atomic.LoadUint64(&w.rrpm))
	return
}

// Run samples once per window until stop is closed.
func (w *Wheels) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.Sample()
		}
	}
}

// Watch counts edges from the input until stop is closed.
// The input should be set to report falling edges only.
func Watch(name string, in EdgeInput, c *Counter, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, err := in.Wait(pollTimeout)
		if err == rio.ErrTimeout {
			continue
		}
		if err != nil {
			log.Printf("%s: wheel input: %v", name, err)
			return
		}
		c.Pulse()
	}
}

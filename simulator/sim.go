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

// Simulator rover program

package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aamcrae/rover/drive"
	rio "github.com/aamcrae/rover/io"
	"github.com/aamcrae/rover/robot"
	"github.com/aamcrae/rover/sensor"
	"github.com/aamcrae/rover/status"
)

var port = flag.Int("port", 8080, "Web server port number")
var shuttle = flag.Int("shuttle", 250, "Ticks per shuttle leg, 0 to disable")
var report = flag.Duration("report", 2*time.Second, "Reporting interval")
var maxRPM = flag.Float64("rpm", 120, "Simulated wheel RPM at full power")

// SimChannel records the duty written to a PWM channel.
type SimChannel struct {
	mu   sync.Mutex
	duty uint32
}

func (c *SimChannel) SetDuty(duty, full uint32) error {
	c.mu.Lock()
	c.duty = duty
	c.mu.Unlock()
	return nil
}

func (c *SimChannel) Duty() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duty
}

// SimStrip decodes the bitstream sent to the LED strip.
type SimStrip struct {
	enc    *status.Encoder
	mu     sync.Mutex
	frame  status.Frame
	frames int
}

func (s *SimStrip) Write(b []byte) (int, error) {
	f, err := s.enc.Decode(b)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.frame = f
	s.frames++
	s.mu.Unlock()
	return len(b), nil
}

func (s *SimStrip) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frame) == 0 {
		return "-"
	}
	return fmt.Sprintf("%s x%d (%d frames)", s.frame[0], len(s.frame), s.frames)
}

// SimWheel generates encoder slot edges at a rate that follows
// the power of a motor.
type SimWheel struct {
	drive *drive.Drive
	motor int
	slots int
}

func (w *SimWheel) Wait(timeout time.Duration) (int, error) {
	p := w.drive.Snapshot().Power[w.motor]
	if p < 0 {
		p = -p
	}
	if p == 0 {
		time.Sleep(timeout)
		return 0, rio.ErrTimeout
	}
	pulses := *maxRPM * float64(p) / drive.MaxPower * float64(w.slots) / 60
	gap := time.Duration(float64(time.Second) / pulses)
	if gap > timeout {
		time.Sleep(timeout)
		return 0, rio.ErrTimeout
	}
	time.Sleep(gap)
	return 0, nil
}

// SimLine returns a fixed grayscale reading.
type SimLine int

func (l SimLine) Read() (int, error) {
	return int(l), nil
}

func main() {
	flag.Parse()
	c := robot.Default()
	c.Name = "sim"
	for i := range c.Motors {
		c.Motors[i].A = 2 * i
		c.Motors[i].B = 2*i + 1
	}
	enc, err := status.NewEncoder(status.WS2812, c.Order)
	if err != nil {
		log.Fatalf("encoder: %v", err)
	}
	strip := &SimStrip{enc: enc}
	d := &robot.Devices{Strip: strip}
	var chans [drive.Motors][2]*SimChannel
	for i := range d.Motors {
		chans[i] = [2]*SimChannel{{}, {}}
		d.Motors[i] = [2]drive.Channel{chans[i][0], chans[i][1]}
	}
	d.Line = [3]sensor.Reader{SimLine(200), SimLine(3800), SimLine(250)}
	var p drive.Program
	if *shuttle > 0 {
		p = drive.Shuttle{Speed: drive.MaxPower, Ticks: *shuttle}
	}
	// The wheels follow the drive, which only exists once the robot is built.
	left := &SimWheel{motor: drive.FrontLeft, slots: c.Slots}
	right := &SimWheel{motor: drive.FrontRight, slots: c.Slots}
	d.WheelLeft, d.WheelRight = left, right
	r, err := robot.Build(c, d, p)
	if err != nil {
		log.Fatalf("%s: %v", c.Name, err)
	}
	defer r.Close()
	left.drive, right.drive = r.Drive, r.Drive
	r.Status.Set(status.Ok)
	r.Start()
	go r.Run()
	if *port != 0 {
		go func() {
			log.Fatal(r.Serve(*port))
		}()
	}
	for {
		time.Sleep(*report)
		s := r.Snapshot()
		var b strings.Builder
		for i := range chans {
			fmt.Fprintf(&b, " %d/%d", chans[i][0].Duty(), chans[i][1].Duty())
		}
		fmt.Printf("%6d %-8s speed %4d power %v rpm %v duty%s strip %s\n", s.Ticks, s.State, s.Speed, s.Power, *s.RPM, b.String(), strip)
	}
}

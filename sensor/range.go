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

package sensor

import (
	"errors"
	"fmt"
	"log"
	"time"

	rio "github.com/aamcrae/rover/io"
)

const (
	ServoPeriod  = 20 * time.Millisecond // 50Hz
	MaxAngle     = 90
	minPulse     = 500 * time.Microsecond
	pulseRange   = 2000 * time.Microsecond
	triggerWidth = 10 * time.Microsecond
	echoTimeout  = 40 * time.Millisecond // Beyond the sensor's range
	usPerCm      = 58.0
)

// Pulser sets the high time of a fixed period PWM output.
type Pulser interface {
	SetPulse(width time.Duration) error
}

// Servo is a single axis hobby servo pointing the range sensor.
type Servo struct {
	out   Pulser
	angle int
}

// NewServo creates a servo and centres it.
func NewServo(out Pulser) (*Servo, error) {
	s := &Servo{out: out}
	return s, s.SetAngle(0)
}

// PulseWidth maps an angle in [-90, 90] degrees onto a 500-2500µs pulse.
// Angles outside the range are clamped.
func PulseWidth(angle int) time.Duration {
	if angle < -MaxAngle {
		angle = -MaxAngle
	} else if angle > MaxAngle {
		angle = MaxAngle
	}
	return minPulse + pulseRange*time.Duration(angle+MaxAngle)/(2*MaxAngle)
}

// SetAngle turns the servo.
func (s *Servo) SetAngle(angle int) error {
	if err := s.out.SetPulse(PulseWidth(angle)); err != nil {
		return fmt.Errorf("servo: %v", err)
	}
	s.angle = angle
	return nil
}

// Angle returns the last angle set.
func (s *Servo) Angle() int {
	return s.angle
}

// Ultrasonic is a trigger/echo range sensor, optionally mounted on a servo.
type Ultrasonic struct {
	trig  rio.Setter
	echo  EdgeInput // Both edges
	servo *Servo    // May be nil
	now   func() time.Time
	sleep func(time.Duration)
}

// NewUltrasonic creates a range sensor. servo may be nil.
func NewUltrasonic(trig rio.Setter, echo EdgeInput, servo *Servo) *Ultrasonic {
	return &Ultrasonic{trig: trig, echo: echo, servo: servo, now: time.Now, sleep: time.Sleep}
}

var errNoEcho = errors.New("ultrasonic: no echo")

// Echo triggers a measurement and returns the echo pulse width.
// If angle is non-zero the sensor is turned to it first and returned
// to centre afterwards.
func (u *Ultrasonic) Echo(angle int) (time.Duration, error) {
	if angle != 0 && u.servo != nil {
		if err := u.servo.SetAngle(angle); err != nil {
			return 0, err
		}
		defer func() {
			if err := u.servo.SetAngle(0); err != nil {
				log.Printf("ultrasonic: centring servo: %v", err)
			}
		}()
	}
	if err := u.trig.Set(1); err != nil {
		return 0, err
	}
	u.sleep(triggerWidth)
	if err := u.trig.Set(0); err != nil {
		return 0, err
	}
	if err := u.await(1); err != nil {
		return 0, err
	}
	start := u.now()
	if err := u.await(0); err != nil {
		return 0, err
	}
	return u.now().Sub(start), nil
}

// Distance returns the range in centimetres.
func (u *Ultrasonic) Distance(angle int) (float64, error) {
	w, err := u.Echo(angle)
	if err != nil {
		return 0, err
	}
	return float64(w.Microseconds()) / usPerCm, nil
}

// await waits for the echo input to reach v.
func (u *Ultrasonic) await(v int) error {
	deadline := u.now().Add(echoTimeout)
	for {
		left := deadline.Sub(u.now())
		if left <= 0 {
			return errNoEcho
		}
		got, err := u.echo.Wait(left)
		if err == rio.ErrTimeout {
			return errNoEcho
		}
		if err != nil {
			return err
		}
		if got == v {
			return nil
		}
	}
}

// Reader reads one raw analog value.
type Reader interface {
	Read() (int, error)
}

// Grayscale is the three channel line sensor.
type Grayscale struct {
	ch [3]Reader
}

// NewGrayscale creates a line sensor from its left, centre and right channels.
func NewGrayscale(l, c, r Reader) *Grayscale {
	return &Grayscale{ch: [3]Reader{l, c, r}}
}

// Read returns the raw left, centre and right values.
func (g *Grayscale) Read() ([3]int, error) {
	var v [3]int
	for i, c := range g.ch {
		var err error
		v[i], err = c.Read()
		if err != nil {
			return v, fmt.Errorf("grayscale %d: %v", i, err)
		}
	}
	return v, nil
}

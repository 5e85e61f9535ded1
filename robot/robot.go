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

// Package robot assembles the rover from its configuration and
// exposes it over HTTP and MQTT.
package robot

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	gpio "github.com/aamcrae/gpio"
	"github.com/aamcrae/rover/drive"
	rio "github.com/aamcrae/rover/io"
	"github.com/aamcrae/rover/sensor"
	"github.com/aamcrae/rover/status"
)

// Devices holds the opened hardware the robot is built from.
// Optional devices are nil when not configured.
type Devices struct {
	Motors     [drive.Motors][2]drive.Channel
	Strip      io.Writer
	StatusLED  status.LED
	WheelLeft  sensor.EdgeInput
	WheelRight sensor.EdgeInput
	Trigger    rio.Setter
	Echo       sensor.EdgeInput
	Servo      sensor.Pulser
	Line       [3]sensor.Reader
	closers    []func()
}

// OnClose registers a function to release a device.
func (d *Devices) OnClose(f func()) {
	d.closers = append(d.closers, f)
}

// Close releases the devices in reverse order of opening.
func (d *Devices) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Open opens the hardware described by the configuration.
func Open(c *Config) (*Devices, error) {
	d := new(Devices)
	fail := func(err error) (*Devices, error) {
		d.Close()
		return nil, err
	}
	for i, m := range c.Motors {
		for j, unit := range []int{m.A, m.B} {
			ch, err := openChannel(c, unit)
			if err != nil {
				return fail(fmt.Errorf("%s: %v", m.Name, err))
			}
			d.OnClose(ch.Close)
			d.Motors[i][j] = ch
		}
	}
	spi, err := rio.NewSpi(c.SpiBus, c.SpiCS, status.WS2812.Hz)
	if err != nil {
		return fail(fmt.Errorf("strip: %v", err))
	}
	d.OnClose(func() { spi.Close() })
	d.Strip = spi
	if c.StatusLED != None {
		led, err := gpio.OutputPin(c.StatusLED)
		if err != nil {
			return fail(fmt.Errorf("status LED %d: %v", c.StatusLED, err))
		}
		d.OnClose(led.Close)
		d.StatusLED = led
	}
	if c.WheelLeft != None {
		for _, w := range []struct {
			pin int
			in  *sensor.EdgeInput
		}{{c.WheelLeft, &d.WheelLeft}, {c.WheelRight, &d.WheelRight}} {
			p, err := rio.EdgePin(w.pin, rio.FALLING)
			if err != nil {
				return fail(fmt.Errorf("wheel %d: %v", w.pin, err))
			}
			d.OnClose(p.Close)
			*w.in = p
		}
	}
	if c.Trigger != None {
		trig, err := gpio.OutputPin(c.Trigger)
		if err != nil {
			return fail(fmt.Errorf("trigger %d: %v", c.Trigger, err))
		}
		d.OnClose(trig.Close)
		d.Trigger = trig
		echo, err := rio.EdgePin(c.Echo, rio.BOTH)
		if err != nil {
			return fail(fmt.Errorf("echo %d: %v", c.Echo, err))
		}
		d.OnClose(echo.Close)
		d.Echo = echo
	}
	if c.ServoUnit != None {
		pwm, err := rio.NewHwPWM(c.ServoChip, c.ServoUnit, sensor.ServoPeriod)
		if err != nil {
			return fail(fmt.Errorf("servo: %v", err))
		}
		d.OnClose(pwm.Close)
		d.Servo = pwm
	}
	if c.AdcDevice != None {
		for i, ch := range c.Adc {
			a, err := rio.NewAdc(c.AdcDevice, ch)
			if err != nil {
				return fail(err)
			}
			d.Line[i] = a
		}
	}
	return d, nil
}

// pwmChannel is an opened motor PWM output.
type pwmChannel interface {
	drive.Channel
	Close()
}

func openChannel(c *Config, unit int) (pwmChannel, error) {
	if !c.Software {
		return rio.NewHwPWM(c.Chip, unit, c.Period)
	}
	pin, err := gpio.OutputPin(unit)
	if err != nil {
		return nil, err
	}
	return &swChannel{rio.NewSwPWM(pin, c.Period), pin}, nil
}

// swChannel releases the GPIO after its software PWM.
type swChannel struct {
	*rio.SwPwm
	pin *gpio.Gpio
}

func (s *swChannel) Close() {
	s.SwPwm.Close()
	s.pin.Close()
}

// Robot is the assembled rover.
type Robot struct {
	Name    string
	Drive   *drive.Drive
	Loop    *drive.Loop
	Status  *status.Shared
	Strip   *status.Strip
	Blinker *status.Blinker
	Wheels  *sensor.Wheels     // nil if not fitted
	Range   *sensor.Ultrasonic // nil if not fitted
	Line    *sensor.Grayscale  // nil if not fitted

	devices   *Devices
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
	loopDone  chan struct{} // closed when Run returns
}

// New opens the hardware and builds the robot.
func New(c *Config, program drive.Program) (*Robot, error) {
	d, err := Open(c)
	if err != nil {
		return nil, err
	}
	r, err := Build(c, d, program)
	if err != nil {
		d.Close()
		return nil, err
	}
	return r, nil
}

// Build assembles the robot from already opened devices.
// The robot takes ownership of the devices.
func Build(c *Config, d *Devices, program drive.Program) (*Robot, error) {
	r := &Robot{Name: c.Name, devices: d, stop: make(chan struct{})}
	var motors [drive.Motors]*drive.Motor
	for i, m := range c.Motors {
		var err error
		motors[i], err = drive.NewMotor(m.Name, d.Motors[i][0], d.Motors[i][1], m.Min, m.Max, c.FullScale)
		if err != nil {
			return nil, err
		}
	}
	var err error
	r.Drive, err = drive.NewDrive(motors[drive.FrontLeft], motors[drive.FrontRight], motors[drive.BackLeft], motors[drive.BackRight])
	if err != nil {
		return nil, err
	}
	r.Loop = drive.NewLoop(r.Drive, c.Loop, program)
	enc, err := status.NewEncoder(status.WS2812, c.Order)
	if err != nil {
		return nil, err
	}
	r.Strip, err = status.NewStrip(enc, d.Strip, c.Leds)
	if err != nil {
		return nil, err
	}
	r.Status = status.NewShared(status.Off)
	r.Blinker = status.NewBlinker(d.StatusLED, r.Strip, r.Status, c.Blink)
	if d.WheelLeft != nil && d.WheelRight != nil {
		r.Wheels = sensor.NewWheels(c.Slots, c.Window)
	}
	if d.Trigger != nil && d.Echo != nil {
		var servo *sensor.Servo
		if d.Servo != nil {
			if servo, err = sensor.NewServo(d.Servo); err != nil {
				return nil, err
			}
		}
		r.Range = sensor.NewUltrasonic(d.Trigger, d.Echo, servo)
	}
	if d.Line[0] != nil && d.Line[1] != nil && d.Line[2] != nil {
		r.Line = sensor.NewGrayscale(d.Line[0], d.Line[1], d.Line[2])
	}
	log.Printf("%s: %d LED strip, wheels %v, range %v, line %v", r.Name, c.Leds, r.Wheels != nil, r.Range != nil, r.Line != nil)
	return r, nil
}

// Start starts the blinker and the wheel speed sampling in the background.
func (r *Robot) Start() {
	r.spawn(func() { r.Blinker.Run(r.stop) })
	if r.Wheels != nil {
		r.spawn(func() { sensor.Watch("left", r.devices.WheelLeft, &r.Wheels.Left, r.stop) })
		r.spawn(func() { sensor.Watch("right", r.devices.WheelRight, &r.Wheels.Right, r.stop) })
		r.spawn(func() { r.Wheels.Run(r.stop) })
	}
}

func (r *Robot) spawn(f func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		f()
	}()
}

// Run runs the control loop until the robot is closed.
// It returns immediately if the robot is already closed.
func (r *Robot) Run() {
	r.mu.Lock()
	if r.closed || r.loopDone != nil {
		r.mu.Unlock()
		return
	}
	done := make(chan struct{})
	r.loopDone = done
	r.mu.Unlock()
	defer close(done)
	r.Loop.Run(r.stop)
}

// Close stops the control loop and the background goroutines,
// hard stops the motors and releases the devices. The motors are
// only stopped once the loop has finished its last tick.
func (r *Robot) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		done := r.loopDone
		r.mu.Unlock()
		close(r.stop)
		if done != nil {
			<-done
		}
		r.wg.Wait()
		r.Drive.SetState(drive.HardStop)
		r.Drive.Update()
		if err := r.Strip.Show(status.Black); err != nil {
			log.Printf("%s: %v", r.Name, err)
		}
		r.devices.Close()
	})
}

// Snapshot is the externally visible state of the robot.
type Snapshot struct {
	Name   string               `json:"name"`
	Time   time.Time            `json:"time"`
	Ticks  int                  `json:"ticks"`
	State  string               `json:"state"`
	Speed  int                  `json:"speed"`
	Turn   int                  `json:"turn"`
	Power  [drive.Motors]int    `json:"power"`
	Duty   [drive.Motors]uint32 `json:"duty"`
	Status string               `json:"status"`
	Lit    bool                 `json:"lit"`
	RPM    *[2]float64          `json:"rpm,omitempty"`
	Line   *[3]int              `json:"line,omitempty"`
}

// Snapshot returns the current state. The motor values all come
// from the same tick.
func (r *Robot) Snapshot() Snapshot {
	d := r.Drive.Snapshot()
	s := Snapshot{
		Name:   r.Name,
		Time:   time.Now(),
		Ticks:  r.Loop.Count(),
		State:  d.State.String(),
		Speed:  d.Speed,
		Turn:   d.Turn,
		Power:  d.Power,
		Duty:   d.Duty,
		Status: r.Status.Get().String(),
		Lit:    r.Blinker.On(),
	}
	if r.Wheels != nil {
		var rpm [2]float64
		rpm[0], rpm[1] = r.Wheels.RPM()
		s.RPM = &rpm
	}
	if r.Line != nil {
		if v, err := r.Line.Read(); err == nil {
			s.Line = &v
		}
	}
	return s
}

// Command changes the drive or status. Absent fields are left unchanged.
type Command struct {
	State  *string `json:"state,omitempty"`
	Speed  *int    `json:"speed,omitempty"`
	Turn   *int    `json:"turn,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Apply validates the command and then applies all of it.
// Speed and turn are clamped rather than rejected.
func (r *Robot) Apply(cmd Command) error {
	var st drive.State
	var code status.Code
	var err error
	if cmd.State != nil {
		if st, err = drive.ParseState(*cmd.State); err != nil {
			return err
		}
	}
	if cmd.Status != nil {
		if code, err = status.ParseCode(*cmd.Status); err != nil {
			return err
		}
	}
	if cmd.Speed != nil {
		r.Drive.SetSpeed(*cmd.Speed)
	}
	if cmd.Turn != nil {
		r.Drive.SetTurn(*cmd.Turn)
	}
	if cmd.State != nil {
		r.Drive.SetState(st)
	}
	if cmd.Status != nil {
		r.Status.Set(code)
	}
	return nil
}

// Measure takes a range reading with the sensor turned to angle.
func (r *Robot) Measure(angle int) (float64, error) {
	if r.Range == nil {
		return 0, fmt.Errorf("%s: no range sensor", r.Name)
	}
	return r.Range.Distance(angle)
}

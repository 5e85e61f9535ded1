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

package robot

import (
	"fmt"
	"strings"
	"time"

	"github.com/aamcrae/config"
	"github.com/aamcrae/rover/drive"
	rerrors "github.com/aamcrae/rover/errors"
	rio "github.com/aamcrae/rover/io"
	"github.com/aamcrae/rover/sensor"
	"github.com/aamcrae/rover/status"
)

// None marks an unused pin or unit.
const None = -1

// MotorConfig is the wiring and duty limits of one motor.
// A and B are PWM units (or GPIO pins in software PWM mode); their
// order sets the motor's forward direction.
type MotorConfig struct {
	Name     string
	A, B     int
	Min, Max int
}

// Config is the rover hardware configuration, read from a configuration file.
type Config struct {
	Name      string
	Chip      int           // PWM chip for the motors
	Period    time.Duration // Motor PWM period
	FullScale uint32        // Duty full scale value
	Software  bool          // Motors on GPIOs with software PWM
	Loop      time.Duration // Control loop period
	Motors    [drive.Motors]MotorConfig

	SpiBus, SpiCS int
	Leds          int
	Order         status.Order
	Blink         time.Duration
	StatusLED     int

	WheelLeft, WheelRight int
	Slots                 int
	Window                time.Duration

	Trigger, Echo        int
	ServoChip, ServoUnit int
	AdcDevice            int
	Adc                  [3]int

	Broker   string
	Topic    string
	Interval time.Duration
	Port     int
}

var motorKeys = [drive.Motors]string{"front-left", "front-right", "back-left", "back-right"}

// Default returns the configuration used for anything not set in the file.
func Default() *Config {
	c := &Config{
		Name:       "rover",
		Period:     50 * time.Microsecond, // 20kHz
		FullScale:  0xffff,
		Loop:       drive.Period,
		Leds:       24,
		Order:      status.OrderGRB,
		Blink:      status.BlinkPeriod,
		StatusLED:  None,
		WheelLeft:  None,
		WheelRight: None,
		Slots:      sensor.DefaultSlots,
		Window:     sensor.SampleWindow,
		Trigger:    None,
		Echo:       None,
		ServoChip:  None,
		ServoUnit:  None,
		AdcDevice:  None,
		Interval:   time.Second,
	}
	for i, k := range motorKeys {
		c.Motors[i] = MotorConfig{Name: k, A: None, B: None, Min: 20, Max: 100}
	}
	return c
}

// ParseConfig reads and validates the rover configuration.
// Sample config:
//
//	[rover]
//	name=rover1
//	[drive]
//	chip=0                   # PWM chip
//	period=50us              # PWM period
//	fullscale=65535
//	mode=hw                  # hw or sw (software PWM on GPIOs)
//	loop=20ms                # control loop period
//	front-left=0,1,20,100    # channel A, channel B, min duty %, max duty %
//	front-right=3,2,20,100
//	back-left=4,5,20,100
//	back-right=7,6,20,100
//	[strip]
//	spi=0,0                  # bus, chip select
//	leds=24
//	order=grb
//	blink=500ms
//	[status]
//	led=25
//	[wheels]
//	pins=7,6                 # left, right
//	slots=20
//	window=200ms
//	[ultrasonic]
//	pins=9,8                 # trigger, echo
//	[servo]
//	pwm=1,0                  # chip, unit
//	[grayscale]
//	adc=0,0,1,2              # IIO device, left, centre, right channels
//	[mqtt]
//	broker=tcp://localhost:1883
//	topic=rover/rover1
//	interval=1s
//	[http]
//	port=8080
func ParseConfig(conf *config.Config) (*Config, error) {
	c := Default()
	if s := conf.GetSection("rover"); s != nil {
		if err := str(s, "name", &c.Name); err != nil {
			return nil, err
		}
	}
	if err := c.parseDrive(conf.GetSection("drive")); err != nil {
		return nil, err
	}
	if err := c.parseStrip(conf.GetSection("strip")); err != nil {
		return nil, err
	}
	if s := conf.GetSection("status"); s != nil {
		if err := ints(s, "led", &c.StatusLED); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("wheels"); s != nil {
		if err := ints(s, "pins", &c.WheelLeft, &c.WheelRight); err != nil {
			return nil, err
		}
		if err := ints(s, "slots", &c.Slots); err != nil {
			return nil, err
		}
		if err := duration(s, "window", &c.Window); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("ultrasonic"); s != nil {
		if err := ints(s, "pins", &c.Trigger, &c.Echo); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("servo"); s != nil {
		if err := ints(s, "pwm", &c.ServoChip, &c.ServoUnit); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("grayscale"); s != nil {
		if err := ints(s, "adc", &c.AdcDevice, &c.Adc[0], &c.Adc[1], &c.Adc[2]); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("mqtt"); s != nil {
		if err := str(s, "broker", &c.Broker); err != nil {
			return nil, err
		}
		c.Topic = "rover/" + c.Name
		if err := str(s, "topic", &c.Topic); err != nil {
			return nil, err
		}
		if err := duration(s, "interval", &c.Interval); err != nil {
			return nil, err
		}
	}
	if s := conf.GetSection("http"); s != nil {
		if err := ints(s, "port", &c.Port); err != nil {
			return nil, err
		}
	}
	return c, c.Validate()
}

func (c *Config) parseDrive(s *config.Section) error {
	if s == nil {
		return rerrors.Invalid("config", "drive", "no [drive] section")
	}
	if err := ints(s, "chip", &c.Chip); err != nil {
		return err
	}
	if err := duration(s, "period", &c.Period); err != nil {
		return err
	}
	fs := int(c.FullScale)
	if err := ints(s, "fullscale", &fs); err != nil {
		return err
	}
	if fs <= 0 {
		return rerrors.Invalid("drive", "fullscale", "%d", fs)
	}
	c.FullScale = uint32(fs)
	mode := "hw"
	if err := str(s, "mode", &mode); err != nil {
		return err
	}
	switch mode {
	case "hw":
		c.Software = false
	case "sw":
		c.Software = true
	default:
		return rerrors.Invalid("drive", "mode", "%q is not hw or sw", mode)
	}
	if err := duration(s, "loop", &c.Loop); err != nil {
		return err
	}
	for i, k := range motorKeys {
		m := &c.Motors[i]
		if !has(s, k) {
			return rerrors.Invalid("drive", k, "motor not configured")
		}
		if err := ints(s, k, &m.A, &m.B, &m.Min, &m.Max); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) parseStrip(s *config.Section) error {
	if s == nil {
		return rerrors.Invalid("config", "strip", "no [strip] section")
	}
	if err := ints(s, "spi", &c.SpiBus, &c.SpiCS); err != nil {
		return err
	}
	if err := ints(s, "leds", &c.Leds); err != nil {
		return err
	}
	if has(s, "order") {
		var o string
		if err := str(s, "order", &o); err != nil {
			return err
		}
		var err error
		if c.Order, err = status.ParseOrder(o); err != nil {
			return rerrors.Invalid("strip", "order", "%v", err)
		}
	}
	return duration(s, "blink", &c.Blink)
}

// Validate checks the configuration for setups that cannot work.
func (c *Config) Validate() error {
	if c.Leds <= 0 {
		return rerrors.Invalid("strip", "leds", "%d", c.Leds)
	}
	enc, err := status.NewEncoder(status.WS2812, c.Order)
	if err != nil {
		return err
	}
	if n := enc.Size(c.Leds); n > rio.SpiMaxTransfer {
		return rerrors.Invalid("strip", "leds", "%d LEDs need %d bytes, SPI takes at most %d", c.Leds, n, rio.SpiMaxTransfer)
	}
	if c.Loop <= 0 || c.Blink <= 0 || c.Window <= 0 || c.Period <= 0 {
		return rerrors.Invalid("config", "period", "periods must be positive")
	}
	used := make(map[int]string)
	for _, m := range c.Motors {
		if m.A < 0 || m.B < 0 {
			return rerrors.Invalid(m.Name, "channel", "%d,%d", m.A, m.B)
		}
		if m.A == m.B {
			return rerrors.Invalid(m.Name, "channel", "A and B are both %d", m.A)
		}
		if m.Min < 0 || m.Max > 100 || m.Min > m.Max {
			return rerrors.Invalid(m.Name, "duty", "min %d, max %d", m.Min, m.Max)
		}
		for _, ch := range []int{m.A, m.B} {
			if other, ok := used[ch]; ok {
				return rerrors.Invalid(m.Name, "channel", "%d already used by %s", ch, other)
			}
			used[ch] = m.Name
		}
	}
	if (c.WheelLeft == None) != (c.WheelRight == None) {
		return rerrors.Invalid("wheels", "pins", "both wheels are required")
	}
	if (c.Trigger == None) != (c.Echo == None) {
		return rerrors.Invalid("ultrasonic", "pins", "trigger and echo are required")
	}
	if c.Broker != "" && c.Interval <= 0 {
		return rerrors.Invalid("mqtt", "interval", "%s", c.Interval)
	}
	if c.Slots <= 0 {
		return rerrors.Invalid("wheels", "slots", "%d", c.Slots)
	}
	return nil
}

// has reports whether the key is present in the section.
func has(s *config.Section, key string) bool {
	_, err := s.GetArg(key)
	return err == nil
}

// ints parses a comma separated list of integers. Absent keys leave
// the values unchanged.
func ints(s *config.Section, key string, v ...*int) error {
	if !has(s, key) {
		return nil
	}
	fmtStr := strings.TrimSuffix(strings.Repeat("%d,", len(v)), ",")
	args := make([]interface{}, len(v))
	for i := range v {
		args[i] = v[i]
	}
	n, err := s.Parse(key, fmtStr, args...)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	if n != len(v) {
		return fmt.Errorf("%s: argument count", key)
	}
	return nil
}

func str(s *config.Section, key string, v *string) error {
	if !has(s, key) {
		return nil
	}
	a, err := s.GetArg(key)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*v = strings.TrimSpace(a)
	return nil
}

func duration(s *config.Section, key string, v *time.Duration) error {
	if !has(s, key) {
		return nil
	}
	a, err := s.GetArg(key)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*v, err = time.ParseDuration(strings.TrimSpace(a))
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	return nil
}

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
	"bytes"
	"errors"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	rio "github.com/aamcrae/rover/io"
	. "github.com/smartystreets/goconvey/convey"
)

type edge struct {
	v     int
	after time.Duration
	err   error
}

type testInput struct {
	mu    sync.Mutex
	edges []edge
	clk   *time.Time
}

func (in *testInput) Wait(timeout time.Duration) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.edges) == 0 {
		return 0, rio.ErrTimeout
	}
	e := in.edges[0]
	in.edges = in.edges[1:]
	if in.clk != nil {
		*in.clk = in.clk.Add(e.after)
	}
	return e.v, e.err
}

type testPulser struct {
	widths     []time.Duration
	failCentre bool
}

func (p *testPulser) SetPulse(w time.Duration) error {
	if p.failCentre && w == PulseWidth(0) {
		return errors.New("servo stalled")
	}
	p.widths = append(p.widths, w)
	return nil
}

type testPin struct {
	values []int
}

func (p *testPin) Set(v int) error {
	p.values = append(p.values, v)
	return nil
}

func TestWheels(t *testing.T) {
	Convey("wheel speed", t, func() {
		w := NewWheels(0, 0)

		Convey("is computed from the pulses in each window", func() {
			for i := 0; i < 4; i++ {
				w.Left.Pulse()
			}
			w.Right.Pulse()
			w.Sample()
			l, r := w.RPM()
			So(l, ShouldEqual, 60.0)
			So(r, ShouldEqual, 15.0)

			Convey("and the counters restart after sampling", func() {
				w.Sample()
				l, r := w.RPM()
				So(l, ShouldEqual, 0.0)
				So(r, ShouldEqual, 0.0)
			})
		})

		Convey("loses no pulses counted concurrently with sampling", func() {
			var wg sync.WaitGroup
			var taken int64
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 100; i++ {
					taken += w.Left.Take()
				}
			}()
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 1000; i++ {
						w.Left.Pulse()
					}
				}()
			}
			wg.Wait()
			<-done
			taken += w.Left.Take()
			So(taken, ShouldEqual, int64(8000))
		})

		Convey("counts edges until stopped", func() {
			in := &testInput{edges: []edge{{v: 0}, {v: 0}, {v: 0}}}
			stop := make(chan struct{})
			done := make(chan struct{})
			go func() {
				Watch("left", in, &w.Right, stop)
				close(done)
			}()
			for {
				in.mu.Lock()
				n := len(in.edges)
				in.mu.Unlock()
				if n == 0 {
					break
				}
				time.Sleep(time.Millisecond)
			}
			close(stop)
			<-done
			So(w.Right.Take(), ShouldEqual, int64(3))
		})
	})
}

func TestServo(t *testing.T) {
	Convey("servo pulse widths", t, func() {
		So(PulseWidth(-90), ShouldEqual, 500*time.Microsecond)
		So(PulseWidth(0), ShouldEqual, 1500*time.Microsecond)
		So(PulseWidth(90), ShouldEqual, 2500*time.Microsecond)
		So(PulseWidth(200), ShouldEqual, 2500*time.Microsecond)
		So(PulseWidth(-135), ShouldEqual, 500*time.Microsecond)
	})

	Convey("a new servo is centred", t, func() {
		p := &testPulser{}
		s, err := NewServo(p)
		So(err, ShouldBeNil)
		So(p.widths, ShouldResemble, []time.Duration{1500 * time.Microsecond})
		So(s.SetAngle(45), ShouldBeNil)
		So(s.Angle(), ShouldEqual, 45)
	})
}

func TestUltrasonic(t *testing.T) {
	Convey("the range sensor", t, func() {
		clk := time.Unix(0, 0)
		trig := &testPin{}
		p := &testPulser{}
		servo, _ := NewServo(p)
		in := &testInput{clk: &clk}
		u := NewUltrasonic(trig, in, servo)
		u.now = func() time.Time { return clk }
		u.sleep = func(d time.Duration) { clk = clk.Add(d) }

		Convey("measures the echo width", func() {
			in.edges = []edge{{v: 1, after: 100 * time.Microsecond}, {v: 0, after: 580 * time.Microsecond}}
			d, err := u.Distance(0)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 10.0)
			So(trig.values, ShouldResemble, []int{1, 0})
			So(len(p.widths), ShouldEqual, 1)
		})

		Convey("turns the sensor and returns it to centre", func() {
			in.edges = []edge{{v: 1}, {v: 0, after: 58 * time.Microsecond}}
			_, err := u.Distance(-90)
			So(err, ShouldBeNil)
			So(p.widths, ShouldResemble, []time.Duration{1500 * time.Microsecond, 500 * time.Microsecond, 1500 * time.Microsecond})
		})

		Convey("logs a failure to return to centre", func() {
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)
			p.failCentre = true
			in.edges = []edge{{v: 1}, {v: 0, after: 58 * time.Microsecond}}
			d, err := u.Distance(45)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 1.0)
			So(buf.String(), ShouldContainSubstring, "centring servo")
			So(buf.String(), ShouldContainSubstring, "servo stalled")
			So(servo.Angle(), ShouldEqual, 45)
		})

		Convey("fails without an echo", func() {
			_, err := u.Echo(0)
			So(err, ShouldEqual, errNoEcho)
		})
	})
}

type testADC int

func (a testADC) Read() (int, error) { return int(a), nil }

func TestGrayscale(t *testing.T) {
	Convey("grayscale reads three channels", t, func() {
		g := NewGrayscale(testADC(10), testADC(2000), testADC(30))
		v, err := g.Read()
		So(err, ShouldBeNil)
		So(v, ShouldResemble, [3]int{10, 2000, 30})
	})
}

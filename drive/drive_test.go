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

package drive

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testDrive struct {
	*Drive
	a, b [Motors]*testChannel
}

func newTestDrive() *testDrive {
	td := new(testDrive)
	var m [Motors]*Motor
	for i, name := range []string{"fl", "fr", "bl", "br"} {
		m[i], td.a[i], td.b[i] = newTestMotor(name)
	}
	var err error
	td.Drive, err = NewDrive(m[FrontLeft], m[FrontRight], m[BackLeft], m[BackRight])
	if err != nil {
		panic(err)
	}
	return td
}

func (td *testDrive) setPowers(p ...int) {
	for i, m := range td.Motors() {
		m.SetPower(p[i])
	}
}

func (td *testDrive) powers() [Motors]int {
	return td.Snapshot().Power
}

func TestDrive(t *testing.T) {
	Convey("a new drive", t, func() {
		td := newTestDrive()

		Convey("starts stopped with neutral outputs", func() {
			So(td.State(), ShouldEqual, Stop)
			So(td.powers(), ShouldResemble, [Motors]int{0, 0, 0, 0})
			for i := 0; i < Motors; i++ {
				So(td.a[i].writes, ShouldEqual, 1)
				So(td.a[i].duty, ShouldEqual, testFull)
				So(td.b[i].duty, ShouldEqual, testFull)
			}
		})

		Convey("missing motors are rejected", func() {
			m := td.Motors()
			_, err := NewDrive(m[0], nil, m[2], m[3])
			So(err, ShouldNotBeNil)
		})

		Convey("moving at 30 reaches full speed in 30 ticks", func() {
			td.SetSpeed(30)
			td.SetState(Move)
			for i := 0; i < 29; i++ {
				td.Update()
			}
			So(td.powers(), ShouldResemble, [Motors]int{29, 29, 29, 29})
			td.Update()
			So(td.powers(), ShouldResemble, [Motors]int{30, 30, 30, 30})
			for i := 0; i < Motors; i++ {
				So(td.a[i].duty, ShouldEqual, uint32(36700))
				So(td.b[i].duty, ShouldEqual, testFull)
			}

			Convey("and does not overshoot", func() {
				td.Update()
				So(td.powers(), ShouldResemble, [Motors]int{30, 30, 30, 30})
			})
		})

		Convey("move converges from any start without overshoot", func() {
			for _, c := range []struct{ from, to int }{{-100, 100}, {100, -100}, {-7, 12}, {55, 55}, {0, -1}} {
				td.setPowers(c.from, c.from, c.from, c.from)
				td.SetSpeed(c.to)
				td.SetState(Move)
				n := c.to - c.from
				if n < 0 {
					n = -n
				}
				last := c.from
				for i := 0; i < n; i++ {
					td.Update()
					p := td.powers()[FrontLeft]
					So(p-last == 1 || last-p == 1, ShouldBeTrue)
					last = p
				}
				So(td.powers(), ShouldResemble, [Motors]int{c.to, c.to, c.to, c.to})
			}
		})

		Convey("stop ramps down by one per tick", func() {
			td.setPowers(5, -3, 0, 1)
			td.SetState(Stop)
			td.Update()
			So(td.powers(), ShouldResemble, [Motors]int{4, -2, 0, 0})
			for i := 0; i < 4; i++ {
				td.Update()
			}
			So(td.powers(), ShouldResemble, [Motors]int{0, 0, 0, 0})
		})

		Convey("hard stop zeroes all motors in one tick", func() {
			td.setPowers(40, -20, 10, 0)
			td.SetState(HardStop)
			td.Update()
			So(td.powers(), ShouldResemble, [Motors]int{0, 0, 0, 0})
			for i := 0; i < Motors; i++ {
				So(td.a[i].duty, ShouldEqual, testFull)
				So(td.b[i].duty, ShouldEqual, testFull)
			}
		})

		Convey("turn states leave the motors alone", func() {
			td.setPowers(10, 10, 10, 10)
			td.SetTurn(20)
			for _, s := range []State{LongTurn, InPlaceTurn} {
				td.SetState(s)
				td.Update()
				So(td.powers(), ShouldResemble, [Motors]int{10, 10, 10, 10})
			}
			So(td.a[0].writes, ShouldEqual, 1)
		})

		Convey("speed and turn are clamped", func() {
			td.SetSpeed(-500)
			td.SetTurn(-5)
			s := td.Snapshot()
			So(s.Speed, ShouldEqual, -MaxPower)
			So(s.Turn, ShouldEqual, 0)
			td.SetTurn(1000)
			So(td.Snapshot().Turn, ShouldEqual, MaxPower)
		})

		Convey("an output failure does not stop the other motors", func() {
			td.a[FrontLeft].err = errors.New("gone")
			td.SetSpeed(10)
			td.SetState(Move)
			td.Update()
			td.Update()
			So(td.powers(), ShouldResemble, [Motors]int{2, 2, 2, 2})
			So(td.a[BackRight].duty, ShouldEqual, td.Motors()[BackRight].Duty())
		})
	})

	Convey("state names", t, func() {
		for s := HardStop; s <= InPlaceTurn; s++ {
			p, err := ParseState(s.String())
			So(err, ShouldBeNil)
			So(p, ShouldEqual, s)
		}
		_, err := ParseState("sideways")
		So(err, ShouldNotBeNil)
		So(State(9).String(), ShouldEqual, "state(9)")
	})
}

type testClock struct {
	t     time.Time
	work  time.Duration // advance on every reading, so one tick measures work
	slept []time.Duration
}

func (c *testClock) now() time.Time {
	t := c.t
	c.t = c.t.Add(c.work)
	return t
}

func (c *testClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func TestLoop(t *testing.T) {
	Convey("the control loop", t, func() {
		td := newTestDrive()
		clk := &testClock{t: time.Unix(1000, 0), work: 4 * time.Millisecond}
		var counts []int
		prog := ProgramFunc(func(count int, d *Drive) {
			counts = append(counts, count)
			d.SetSpeed(50)
			d.SetState(Move)
		})
		l := NewLoop(td.Drive, 0, prog)
		l.now = clk.now
		l.sleep = clk.sleep

		Convey("sleeps for the remainder of the period", func() {
			So(l.Tick(), ShouldEqual, 16*time.Millisecond)
			So(clk.slept, ShouldResemble, []time.Duration{16 * time.Millisecond})
			So(td.powers()[FrontLeft], ShouldEqual, 1)
		})

		Convey("runs the program before each update", func() {
			for i := 0; i < 3; i++ {
				l.Tick()
			}
			So(counts, ShouldResemble, []int{0, 1, 2})
			So(l.Count(), ShouldEqual, 3)
			So(td.powers()[BackLeft], ShouldEqual, 3)
		})

		Convey("does not sleep or catch up after an overrun", func() {
			clk.work = 30 * time.Millisecond
			So(l.Tick(), ShouldEqual, time.Duration(0))
			clk.work = 2 * time.Millisecond
			So(l.Tick(), ShouldEqual, 18*time.Millisecond)
			So(clk.slept, ShouldResemble, []time.Duration{18 * time.Millisecond})
		})

		Convey("stops when asked", func() {
			stop := make(chan struct{})
			close(stop)
			l.Run(stop)
			So(l.Count(), ShouldEqual, 0)
		})
	})

	Convey("the shuttle program alternates move and stop", t, func() {
		td := newTestDrive()
		s := Shuttle{Speed: 100, Ticks: 250}
		s.Step(0, td.Drive)
		So(td.State(), ShouldEqual, Move)
		So(td.Snapshot().Speed, ShouldEqual, 100)
		s.Step(250, td.Drive)
		So(td.State(), ShouldEqual, Stop)
		s.Step(500, td.Drive)
		So(td.State(), ShouldEqual, Move)
	})
}

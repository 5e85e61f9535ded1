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

package status

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testLED struct {
	values []int
	err    error
}

func (l *testLED) Set(v int) error {
	l.values = append(l.values, v)
	return l.err
}

type render struct {
	code Code
	on   bool
}

type testRenderer struct {
	calls []render
	err   error
}

func (r *testRenderer) Render(c Code, on bool) error {
	r.calls = append(r.calls, render{c, on})
	return r.err
}

func TestBlinker(t *testing.T) {
	Convey("the blinker", t, func() {
		led := &testLED{}
		r := &testRenderer{}
		st := NewShared(Ok)
		b := NewBlinker(led, r, st, 0)
		So(b.period, ShouldEqual, BlinkPeriod)

		Convey("alternates between the status and off", func() {
			b.Toggle()
			So(b.On(), ShouldBeTrue)
			st.Set(Error)
			b.Toggle()
			b.Toggle()
			So(led.values, ShouldResemble, []int{1, 0, 1})
			So(r.calls, ShouldResemble, []render{{Ok, true}, {Error, false}, {Error, true}})
		})

		Convey("keeps going after output errors", func() {
			led.err = errors.New("led")
			r.err = errors.New("strip")
			b.Toggle()
			b.Toggle()
			So(len(r.calls), ShouldEqual, 2)
			So(b.On(), ShouldBeFalse)
		})

		Convey("runs on a timer until stopped", func() {
			fast := NewBlinker(nil, r, st, time.Millisecond)
			stop := make(chan struct{})
			done := make(chan struct{})
			go func() {
				fast.Run(stop)
				close(done)
			}()
			time.Sleep(20 * time.Millisecond)
			close(stop)
			<-done
			So(len(r.calls), ShouldBeGreaterThan, 0)
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("status codes map to colours", t, func() {
		So(Ok.Color(), ShouldEqual, White)
		So(Error.Color(), ShouldEqual, Red)
		So(Off.Color(), ShouldEqual, Black)
		So(Code(7).Color(), ShouldEqual, Black)
		So(Red.R(), ShouldEqual, uint8(0xFF))
		So(Red.G(), ShouldEqual, uint8(0))
		So(Red.String(), ShouldEqual, "#ff0000")
	})

	Convey("status names", t, func() {
		c, err := ParseCode(" Error ")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, Error)
		So(Ok.String(), ShouldEqual, "ok")
		_, err = ParseCode("panic")
		So(err, ShouldNotBeNil)
	})
}

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
	"bytes"
	"errors"
	"testing"
	"time"

	rerrors "github.com/aamcrae/rover/errors"
	. "github.com/smartystreets/goconvey/convey"
)

// samples expands encoded bytes to one value per clock cycle.
func samples(b []byte) []int {
	var s []int
	for _, v := range b {
		for i := 7; i >= 0; i-- {
			s = append(s, int(v>>i)&1)
		}
	}
	return s
}

// pulse returns the high and low cycle counts of the bit window at s.
func pulse(s []int) (high, low int) {
	for _, v := range s {
		if v == 1 {
			if low != 0 {
				return -1, -1
			}
			high++
		} else {
			low++
		}
	}
	return
}

func TestEncoder(t *testing.T) {
	Convey("the WS2812 encoder", t, func() {
		e, err := NewEncoder(WS2812, OrderGRB)
		So(err, ShouldBeNil)

		Convey("has a 1.25µs bit and a 50µs latch", func() {
			So(e.BitPeriod(), ShouldEqual, 1250*time.Nanosecond)
			So(e.LatchCycles(), ShouldEqual, 400)
		})

		Convey("emits 24 bits per LED followed by the latch", func() {
			b := e.Encode(NewFrame(24, Red))
			So(len(b), ShouldEqual, e.Size(24))
			s := samples(b)
			bits := 24 * 24
			for i := 0; i < bits; i++ {
				h, l := pulse(s[i*10 : i*10+10])
				So(h == 7 && l == 3 || h == 2 && l == 8, ShouldBeTrue)
			}
			latch := s[bits*10:]
			So(len(latch), ShouldBeGreaterThanOrEqualTo, e.LatchCycles())
			So(bytes.Count(b[bits*10/8:], []byte{0}), ShouldEqual, len(b)-bits*10/8)
		})

		Convey("sends green, red, blue, most significant bit first", func() {
			s := samples(e.Encode(Frame{RGB(0x80, 0x01, 0x00)}))
			var got []int
			for i := 0; i < 24; i++ {
				h, _ := pulse(s[i*10 : i*10+10])
				if h == 7 {
					got = append(got, 1)
				} else {
					got = append(got, 0)
				}
			}
			want := []int{
				0, 0, 0, 0, 0, 0, 0, 1, // green 0x01
				1, 0, 0, 0, 0, 0, 0, 0, // red 0x80
				0, 0, 0, 0, 0, 0, 0, 0, // blue
			}
			So(got, ShouldResemble, want)
		})

		Convey("a zero bit starts the stream as 2 high, 8 low", func() {
			b := e.Encode(Frame{Black})
			So(b[0], ShouldEqual, byte(0xC0))
			So(b[1], ShouldEqual, byte(0x30))
		})

		Convey("re-encoding is identical", func() {
			f := Frame{White, Red, RGB(1, 2, 3)}
			So(e.Encode(f), ShouldResemble, e.Encode(f))
		})

		Convey("decoding recovers the frame", func() {
			f := Frame{White, Red, Black, RGB(0x12, 0x34, 0x56)}
			d, err := e.Decode(e.Encode(f))
			So(err, ShouldBeNil)
			So(d, ShouldResemble, f)

			Convey("and rejects truncated or damaged streams", func() {
				b := e.Encode(f)
				_, err := e.Decode(b[:40])
				So(err, ShouldNotBeNil)
				b[0] = 0xF0
				_, err = e.Decode(b)
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("RGB order sends the packed value unchanged", t, func() {
		e, err := NewEncoder(WS2812, OrderRGB)
		So(err, ShouldBeNil)
		s := samples(e.Encode(Frame{Red}))
		h, _ := pulse(s[0:10])
		So(h, ShouldEqual, 7)
		d, err := e.Decode(e.Encode(Frame{RGB(9, 8, 7)}))
		So(err, ShouldBeNil)
		So(d, ShouldResemble, Frame{RGB(9, 8, 7)})
	})

	Convey("invalid timing is rejected", t, func() {
		for _, tm := range []Timing{
			{Hz: 0, T1: 2, T2: 5, T3: 3, Latch: time.Microsecond},
			{Hz: 8_000_000, T1: 0, T2: 5, T3: 3, Latch: time.Microsecond},
			{Hz: 8_000_000, T1: 2, T2: 5, T3: 3},
			{Hz: 8_000_000, T1: 40, T2: 20, T3: 20, Latch: time.Microsecond},
		} {
			_, err := NewEncoder(tm, OrderGRB)
			So(err, ShouldHaveSameTypeAs, rerrors.ConfigError{})
		}
	})

	Convey("colour order names", t, func() {
		o, err := ParseOrder("RGB")
		So(err, ShouldBeNil)
		So(o, ShouldEqual, OrderRGB)
		_, err = ParseOrder("bgr")
		So(err, ShouldNotBeNil)
	})
}

type testWriter struct {
	frames [][]byte
	err    error
	short  bool
}

func (w *testWriter) Write(b []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.frames = append(w.frames, append([]byte(nil), b...))
	if w.short {
		return len(b) - 1, nil
	}
	return len(b), nil
}

func TestStrip(t *testing.T) {
	Convey("a 24 LED strip", t, func() {
		e, _ := NewEncoder(WS2812, OrderGRB)
		w := &testWriter{}
		s, err := NewStrip(e, w, 24)
		So(err, ShouldBeNil)
		So(s.Len(), ShouldEqual, 24)
		So(s.Frame(), ShouldResemble, NewFrame(24, Black))

		Convey("renders the error status as 24 red LEDs", func() {
			So(s.Render(Error, true), ShouldBeNil)
			So(len(w.frames), ShouldEqual, 1)
			f, err := e.Decode(w.frames[0])
			So(err, ShouldBeNil)
			So(f, ShouldResemble, NewFrame(24, Red))
			So(s.Frame(), ShouldResemble, f)

			Convey("and the same frame again on the next render", func() {
				So(s.Render(Error, true), ShouldBeNil)
				So(w.frames[1], ShouldResemble, w.frames[0])
			})
		})

		Convey("renders black when off", func() {
			So(s.Render(Ok, false), ShouldBeNil)
			f, _ := e.Decode(w.frames[0])
			So(f, ShouldResemble, NewFrame(24, Black))
		})

		Convey("reports output failures", func() {
			w.err = errors.New("bus error")
			So(s.Show(White), ShouldNotBeNil)
			So(s.Frame(), ShouldResemble, NewFrame(24, Black))
			w.err = nil
			w.short = true
			So(s.Show(White), ShouldNotBeNil)
		})
	})

	Convey("a strip needs LEDs", t, func() {
		e, _ := NewEncoder(WS2812, OrderGRB)
		_, err := NewStrip(e, &testWriter{}, 0)
		So(err, ShouldHaveSameTypeAs, rerrors.ConfigError{})
		_, err = NewStrip(e, nil, 4)
		So(err, ShouldNotBeNil)
	})

	Convey("a strip must fit in one transfer", t, func() {
		e, _ := NewEncoder(WS2812, OrderGRB)
		w := &limitedWriter{max: 4096}
		_, err := NewStrip(e, w, 134)
		So(err, ShouldBeNil)
		_, err = NewStrip(e, w, 135)
		So(err, ShouldHaveSameTypeAs, rerrors.ConfigError{})
		_, err = NewStrip(e, &testWriter{}, 135)
		So(err, ShouldBeNil)
	})
}

type limitedWriter struct {
	testWriter
	max int
}

func (w *limitedWriter) MaxTransfer() int {
	return w.max
}
